// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package notify implements both sides of the job-notification wire
// contract: signing the payload a batch script POSTs on state transitions,
// and verifying it on receipt (spec.md §6).
package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Event is a closed enum of the lifecycle transitions a job notifies on.
type Event string

const (
	EventStarted     Event = "STARTED"
	EventCompleted   Event = "COMPLETED"
	EventFailed      Event = "FAILED"
	EventResubmitted Event = "RESUBMITTED"
)

func (e Event) valid() bool {
	switch e {
	case EventStarted, EventCompleted, EventFailed, EventResubmitted:
		return true
	default:
		return false
	}
}

// Payload is the notification body a batch script POSTs.
type Payload struct {
	User    string `json:"user"`
	JobID   string `json:"jobId"`
	JobName string `json:"jobName"`
	Event   Event  `json:"event"`
	Node    string `json:"node"`
	TS      string `json:"ts"`
	Epoch   int64  `json:"epoch"`
	Sig     string `json:"sig"`
}

// maxSkew is the acceptable drift between a payload's epoch and the
// receiver's clock.
const maxSkew = 10 * time.Minute

// rateLimit is the per-user notification budget.
const rateLimit = 20
const rateLimitWindow = time.Hour

// Sign computes the hex HMAC-SHA256 signature over "user:jobID:event:epoch",
// the exact string the bash template and the Go verifier must agree on.
func Sign(secret, user, jobID string, event Event, epoch int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedString(user, jobID, event, epoch)))
	return hex.EncodeToString(mac.Sum(nil))
}

func signedString(user, jobID string, event Event, epoch int64) string {
	return fmt.Sprintf("%s:%s:%s:%d", user, jobID, event, epoch)
}

// RateLimiter tracks per-user notification counts in a rolling window. It
// is an in-memory sliding-window log of timestamps: the reference receiver is test-only
// scaffolding, so "in-memory" is sufficient for the contract it enforces.
type RateLimiter struct {
	mu     sync.Mutex
	events map[string][]time.Time
}

// NewRateLimiter builds an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{events: make(map[string][]time.Time)}
}

// Allow records one event for user at now and reports whether the user is
// still within budget (rateLimit events per rateLimitWindow).
func (r *RateLimiter) Allow(user string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-rateLimitWindow)
	kept := r.events[user][:0]
	for _, t := range r.events[user] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= rateLimit {
		r.events[user] = kept
		return false
	}
	r.events[user] = append(kept, now)
	return true
}

// Verifier checks incoming notification payloads against the wire
// contract: signature, event enum, clock skew, and per-user rate limit.
type Verifier struct {
	secret  string
	limiter *RateLimiter
	now     func() time.Time
}

// NewVerifier builds a Verifier bound to secret. now defaults to time.Now.
func NewVerifier(secret string, limiter *RateLimiter) *Verifier {
	return &Verifier{secret: secret, limiter: limiter, now: time.Now}
}

// Verify rejects a Payload that fails signature check, names an unknown
// event, has skewed more than maxSkew from the receiver's clock, or
// belongs to a user over their hourly rate limit.
func (v *Verifier) Verify(p Payload) error {
	if !p.Event.valid() {
		return fmt.Errorf("notify: unknown event %q", p.Event)
	}

	want := Sign(v.secret, p.User, p.JobID, p.Event, p.Epoch)
	if !hmac.Equal([]byte(want), []byte(p.Sig)) {
		return fmt.Errorf("notify: signature mismatch for job %s", p.JobID)
	}

	now := v.now()
	skew := now.Sub(time.Unix(p.Epoch, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return fmt.Errorf("notify: clock skew %s exceeds %s", skew, maxSkew)
	}

	if v.limiter != nil && !v.limiter.Allow(p.User, now) {
		return fmt.Errorf("notify: user %s exceeded %d notifications/hour", p.User, rateLimit)
	}

	return nil
}
