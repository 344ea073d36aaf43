// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides metrics collection for the allocation engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the recording interface implemented by *Registry and NoOp;
// nothing outside this package's tests calls its methods.
type Recorder interface {
	RecordProbe(gpuType string)
	RecordStrategy(gpuType string, pruned bool)
	RecordSubmission(gpuType string, ok bool)
	RecordWinnerLatency(gpuType string, d time.Duration)
	RecordCancellation(count int)
	RecordTailPoll(stream string)
	RecordReconnect()
}

// Registry is a real, process-wide Prometheus Recorder.
type Registry struct {
	probesTotal        *prometheus.CounterVec
	strategiesTotal    *prometheus.CounterVec
	submissionsTotal   *prometheus.CounterVec
	winnerLatencySecs  *prometheus.HistogramVec
	cancellationsTotal prometheus.Counter
	tailPollsTotal     *prometheus.CounterVec
	reconnectsTotal    prometheus.Counter
}

// NewRegistry builds a Registry and registers every collector against reg.
// Pass prometheus.NewRegistry() for an isolated test registry, or
// prometheus.DefaultRegisterer for the process default.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		probesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rv",
			Subsystem: "allocator",
			Name:      "probes_total",
			Help:      "Dry-run backfill probes issued, by GPU type.",
		}, []string{"gpu_type"}),
		strategiesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rv",
			Subsystem: "allocator",
			Name:      "strategies_total",
			Help:      "Candidate strategies generated, by GPU type and whether dominance-pruned.",
		}, []string{"gpu_type", "pruned"}),
		submissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rv",
			Subsystem: "allocator",
			Name:      "submissions_total",
			Help:      "Strategy submissions attempted, by GPU type and outcome.",
		}, []string{"gpu_type", "outcome"}),
		winnerLatencySecs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rv",
			Subsystem: "allocator",
			Name:      "winner_latency_seconds",
			Help:      "Elapsed time from submission to a winning job observed RUNNING.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 900, 3600},
		}, []string{"gpu_type"}),
		cancellationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rv",
			Subsystem: "allocator",
			Name:      "cancellations_total",
			Help:      "Losing submissions cancelled once a winner was picked.",
		}),
		tailPollsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rv",
			Subsystem: "tail",
			Name:      "polls_total",
			Help:      "Log-tail polls issued, by stream.",
		}, []string{"stream"}),
		reconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rv",
			Subsystem: "remoteexec",
			Name:      "reconnects_total",
			Help:      "Transport reconnects after a dropped control connection.",
		}),
	}
}

func (r *Registry) RecordProbe(gpuType string) {
	r.probesTotal.WithLabelValues(gpuType).Inc()
}

func (r *Registry) RecordStrategy(gpuType string, pruned bool) {
	r.strategiesTotal.WithLabelValues(gpuType, boolLabel(pruned)).Inc()
}

func (r *Registry) RecordSubmission(gpuType string, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "succeeded"
	}
	r.submissionsTotal.WithLabelValues(gpuType, outcome).Inc()
}

func (r *Registry) RecordWinnerLatency(gpuType string, d time.Duration) {
	r.winnerLatencySecs.WithLabelValues(gpuType).Observe(d.Seconds())
}

func (r *Registry) RecordCancellation(count int) {
	r.cancellationsTotal.Add(float64(count))
}

func (r *Registry) RecordTailPoll(stream string) {
	r.tailPollsTotal.WithLabelValues(stream).Inc()
}

func (r *Registry) RecordReconnect() {
	r.reconnectsTotal.Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Handler returns the Prometheus scrape handler for reg, for `rv status
// --metrics-addr` to mount at /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// NoOp is a Recorder that discards everything, used wherever a caller has
// not opted into metrics collection.
type NoOp struct{}

func (NoOp) RecordProbe(string) {}
func (NoOp) RecordStrategy(string, bool) {}
func (NoOp) RecordSubmission(string, bool) {}
func (NoOp) RecordWinnerLatency(string, time.Duration) {}
func (NoOp) RecordCancellation(int) {}
func (NoOp) RecordTailPoll(string) {}
func (NoOp) RecordReconnect() {}
