package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func samplePayload(secret string, epoch int64) Payload {
	p := Payload{
		User:    "jdoe",
		JobID:   "4242",
		JobName: "train",
		Event:   EventStarted,
		Node:    "udc-an1",
		TS:      time.Unix(epoch, 0).UTC().Format(time.RFC3339),
		Epoch:   epoch,
	}
	p.Sig = Sign(secret, p.User, p.JobID, p.Event, p.Epoch)
	return p
}

func TestVerify_AcceptsValidPayload(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := NewVerifier("s3cret", NewRateLimiter())
	v.now = func() time.Time { return now }

	p := samplePayload("s3cret", now.Unix())
	if err := v.Verify(p); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerify_RejectsBadSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := NewVerifier("s3cret", NewRateLimiter())
	v.now = func() time.Time { return now }

	p := samplePayload("s3cret", now.Unix())
	p.Sig = "deadbeef"
	if err := v.Verify(p); err == nil {
		t.Fatal("expected a signature mismatch error")
	}
}

func TestVerify_RejectsUnknownEvent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := NewVerifier("s3cret", NewRateLimiter())
	v.now = func() time.Time { return now }

	p := samplePayload("s3cret", now.Unix())
	p.Event = Event("BOGUS")
	p.Sig = Sign("s3cret", p.User, p.JobID, p.Event, p.Epoch)
	if err := v.Verify(p); err == nil {
		t.Fatal("expected an unknown-event error")
	}
}

func TestVerify_RejectsClockSkew(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := NewVerifier("s3cret", NewRateLimiter())
	v.now = func() time.Time { return now }

	p := samplePayload("s3cret", now.Add(-20*time.Minute).Unix())
	if err := v.Verify(p); err == nil {
		t.Fatal("expected a clock skew error past the 10-minute window")
	}
}

func TestVerify_RejectsOverRateLimit(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewRateLimiter()
	v := NewVerifier("s3cret", limiter)
	v.now = func() time.Time { return now }

	for i := 0; i < rateLimit; i++ {
		p := samplePayload("s3cret", now.Unix())
		if err := v.Verify(p); err != nil {
			t.Fatalf("Verify call %d: %v", i, err)
		}
	}
	p := samplePayload("s3cret", now.Unix())
	if err := v.Verify(p); err == nil {
		t.Fatal("expected the 21st notification this hour to be rate-limited")
	}
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	r := NewRateLimiter()
	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < rateLimit; i++ {
		if !r.Allow("jdoe", base) {
			t.Fatalf("Allow call %d should still be within budget", i)
		}
	}
	if r.Allow("jdoe", base) {
		t.Fatal("expected the budget to be exhausted within the window")
	}
	if !r.Allow("jdoe", base.Add(rateLimitWindow+time.Second)) {
		t.Error("expected the budget to reset once the window has elapsed")
	}
}

func TestReferenceReceiver_EndToEnd(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := NewVerifier("s3cret", NewRateLimiter())
	v.now = func() time.Time { return now }
	receiver := NewReferenceReceiver(v)
	srv := httptest.NewServer(receiver.Router())
	defer srv.Close()

	p := samplePayload("s3cret", now.Unix())
	body, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	resp, err := http.Post(srv.URL+"/notify", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	received := receiver.Received()
	if len(received) != 1 || received[0].JobID != "4242" {
		t.Fatalf("Received() = %+v, want one payload for job 4242", received)
	}
}

func TestReferenceReceiver_RejectsBadSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := NewVerifier("s3cret", NewRateLimiter())
	v.now = func() time.Time { return now }
	receiver := NewReferenceReceiver(v)
	srv := httptest.NewServer(receiver.Router())
	defer srv.Close()

	p := samplePayload("s3cret", now.Unix())
	p.Sig = "tampered"
	body, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	resp, err := http.Post(srv.URL+"/notify", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}
