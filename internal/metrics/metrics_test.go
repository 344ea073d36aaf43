package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 8)
	c.Collect(ch)
	close(ch)
	var total float64
	for m := range ch {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if pb.Counter != nil {
			total += pb.Counter.GetValue()
		}
	}
	return total
}

func TestRegistry_RecordProbeIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	r.RecordProbe("a100_80")
	r.RecordProbe("a100_80")
	r.RecordProbe("v100")

	if got := counterValue(t, r.probesTotal); got != 3 {
		t.Errorf("probesTotal = %v, want 3", got)
	}
}

func TestRegistry_RecordSubmissionLabelsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	r.RecordSubmission("v100", true)
	r.RecordSubmission("v100", false)

	if got := counterValue(t, r.submissionsTotal); got != 2 {
		t.Errorf("submissionsTotal = %v, want 2", got)
	}
}

func TestRegistry_RecordWinnerLatencyObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	r.RecordWinnerLatency("h200", 42*time.Second)
	// No panic, and the vec now has exactly one observed series.
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather: %v", err)
	}
}

func TestNoOp_DiscardsWithoutPanicking(t *testing.T) {
	var n NoOp
	n.RecordProbe("x")
	n.RecordStrategy("x", true)
	n.RecordSubmission("x", false)
	n.RecordWinnerLatency("x", time.Second)
	n.RecordCancellation(2)
	n.RecordTailPoll("out")
	n.RecordReconnect()
}
