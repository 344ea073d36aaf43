// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

// ReferenceReceiver is a minimal, test-only HTTP server demonstrating the
// notification wire contract end-to-end. It is not the out-of-scope
// production notification service; it exists so internal/notify's own
// tests can exercise Verify against a real request round-trip.
type ReferenceReceiver struct {
	verifier *Verifier

	mu       sync.Mutex
	received []Payload
}

// NewReferenceReceiver builds a ReferenceReceiver backed by v.
func NewReferenceReceiver(v *Verifier) *ReferenceReceiver {
	return &ReferenceReceiver{verifier: v}
}

// Router builds the mux.Router this receiver answers on: a single POST
// /notify endpoint, mirroring the batch script's target.
func (r *ReferenceReceiver) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/notify", r.handleNotify).Methods(http.MethodPost)
	return router
}

func (r *ReferenceReceiver) handleNotify(w http.ResponseWriter, req *http.Request) {
	var p Payload
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	if err := r.verifier.Verify(p); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	r.mu.Lock()
	r.received = append(r.received, p)
	r.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// Received returns every payload this receiver has accepted, for test
// assertions.
func (r *ReferenceReceiver) Received() []Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Payload, len(r.received))
	copy(out, r.received)
	return out
}
