package errors

import "testing"

func TestClassifyConnectionReason(t *testing.T) {
	tests := []struct {
		name           string
		errText        string
		wantReason     string
		wantRetryable  bool
	}{
		{"permission denied", "ssh: handshake failed: permission denied", ReasonAuthFailed, false},
		{"no route", "dial tcp: no route to host", ReasonNetworkUnreachable, true},
		{"dns failure", "lookup cluster.example.edu: no such host", ReasonNetworkUnreachable, true},
		{"refused", "dial tcp 10.0.0.1:22: connection refused", ReasonRefused, true},
		{"timeout", "dial tcp: i/o timeout", ReasonTimeout, true},
		{"unknown falls back to refused", "something weird happened", ReasonRefused, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, retryable := classifyConnectionReason(tt.errText)
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
			if retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", retryable, tt.wantRetryable)
			}
		})
	}
}

func TestWrapConnection_PassesThroughRVError(t *testing.T) {
	original := New(KindConnection, "already structured")
	if got := WrapConnection(original); got != original {
		t.Errorf("expected WrapConnection to pass through an existing *RVError unchanged")
	}
}

func TestWrapConnection_Nil(t *testing.T) {
	if WrapConnection(nil) != nil {
		t.Error("expected nil in, nil out")
	}
}

func TestWrapParse(t *testing.T) {
	err := WrapParse("live job record", "garbage|not|enough|fields")
	if err.Kind != KindParse {
		t.Errorf("Kind = %v, want %v", err.Kind, KindParse)
	}
}

func TestAllocatorError(t *testing.T) {
	cause := New(KindConnection, "dial failed")
	err := AllocatorError("every strategy failed to submit", cause)
	if err.Kind != KindAllocator {
		t.Errorf("Kind = %v, want %v", err.Kind, KindAllocator)
	}
	if err.Unwrap() != cause {
		t.Error("expected Unwrap to expose the cause")
	}
}
