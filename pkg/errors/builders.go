package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// New builds a non-retryable RVError of the given kind.
func New(kind Kind, message string) *RVError {
	return &RVError{Kind: kind, Message: message, Timestamp: time.Now()}
}

// Newf builds a non-retryable RVError with a formatted message.
func Newf(kind Kind, format string, args ...any) *RVError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches a cause to a new RVError of the given kind.
func Wrap(kind Kind, cause error, message string) *RVError {
	return &RVError{Kind: kind, Message: message, Cause: cause, Timestamp: time.Now()}
}

// NotInitialized builds the canonical "run setup first" error.
func NotInitialized() *RVError {
	return New(KindNotInitialized, "no configuration found; run `rv init` first")
}

// RemoteExit builds an error carrying the remote command's exit code, which
// callers propagate verbatim as rv's own process exit code (spec.md §6).
func RemoteExit(code int, stderr string) *RVError {
	return &RVError{
		Kind:     KindRemoteExit,
		Message:  fmt.Sprintf("remote command exited %d", code),
		ExitCode: code,
		Cause:    stderrors.New(stderr),
	}
}

// classifyConnectionReason inspects a transport error string and maps it to
// one of the documented connection sub-codes. Unmatched errors fall back to
// ReasonRefused, the most common real-world cause.
func classifyConnectionReason(errText string) (reason string, retryable bool) {
	lower := strings.ToLower(errText)
	switch {
	case strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "authentication failed") ||
		strings.Contains(lower, "no supported methods remain"):
		return ReasonAuthFailed, false
	case strings.Contains(lower, "no route to host") ||
		strings.Contains(lower, "name or service not known") ||
		strings.Contains(lower, "lookup") && strings.Contains(lower, "no such host"):
		return ReasonNetworkUnreachable, true
	case strings.Contains(lower, "connection refused"):
		return ReasonRefused, true
	case strings.Contains(lower, "i/o timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded"):
		return ReasonTimeout, true
	default:
		return ReasonRefused, true
	}
}

// WrapConnection classifies a raw transport error into a KindConnection
// RVError with the appropriate sub-code and retryability.
func WrapConnection(err error) *RVError {
	if err == nil {
		return nil
	}
	var existing *RVError
	if stderrors.As(err, &existing) {
		return existing
	}
	reason, retryable := classifyConnectionReason(err.Error())
	return &RVError{
		Kind:      KindConnection,
		Reason:    reason,
		Message:   err.Error(),
		Cause:     err,
		Timestamp: time.Now(),
		Retryable: retryable,
	}
}

// AllocatorError builds a KindAllocator error for allocation-engine-level
// failures: no viable strategies, every submission failed, the monitor
// timed out, or every submission died without a winner emerging.
func AllocatorError(message string, cause error) *RVError {
	return &RVError{Kind: KindAllocator, Message: message, Cause: cause, Timestamp: time.Now()}
}

// WrapParse builds a KindParse error naming the grammar that failed to match.
func WrapParse(what string, line string) *RVError {
	return &RVError{
		Kind:    KindParse,
		Message: fmt.Sprintf("could not parse %s: %q", what, line),
	}
}
