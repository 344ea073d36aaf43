package allocator

import (
	"context"
	"testing"
	"time"

	"github.com/rvcli/rv/internal/model"
	rverrors "github.com/rvcli/rv/pkg/errors"
)

// fakeMonitorAdapter answers ListJobs from a fixed queue (one entry per
// call), ListHistory from a static map, and records CancelMany calls.
type fakeMonitorAdapter struct {
	liveQueue [][]model.Job
	liveCalls int
	history   []model.JobAccounting
	cancelled []string
	cancelErr error
}

func (f *fakeMonitorAdapter) ListJobs(ctx context.Context) ([]model.Job, error) {
	idx := f.liveCalls
	f.liveCalls++
	if idx >= len(f.liveQueue) {
		return f.liveQueue[len(f.liveQueue)-1], nil
	}
	return f.liveQueue[idx], nil
}

func (f *fakeMonitorAdapter) ListHistory(ctx context.Context, since time.Time) ([]model.JobAccounting, error) {
	return f.history, nil
}

func (f *fakeMonitorAdapter) CancelMany(ctx context.Context, jobIDs []string) error {
	f.cancelled = append(f.cancelled, jobIDs...)
	return f.cancelErr
}

// testClock advances one second per call, letting the overall-timeout check
// progress deterministically without a real sleep.
func testClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func TestMonitor_FirstRunningWins(t *testing.T) {
	adapter := &fakeMonitorAdapter{
		liveQueue: [][]model.Job{
			{{ID: "1", State: model.StatePending}, {ID: "2", State: model.StatePending}},
			{{ID: "1", State: model.StateRunning, Nodes: []string{"udc-an1"}}, {ID: "2", State: model.StatePending}},
		},
	}
	submissions := []model.Submission{
		{JobID: "1", State: model.StatePending},
		{JobID: "2", State: model.StatePending},
	}
	opts := MonitorOptions{Sleep: func(time.Duration) {}, Now: testClock(time.Now())}

	outcome, err := Monitor(context.Background(), adapter, submissions, opts)
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if outcome.Winner == nil || outcome.Winner.JobID != "1" {
		t.Fatalf("Winner = %+v, want job 1", outcome.Winner)
	}
	if len(adapter.cancelled) != 1 || adapter.cancelled[0] != "2" {
		t.Errorf("cancelled = %+v, want [2]", adapter.cancelled)
	}
}

func TestMonitor_VanishedJobReconciledAsCompletedWins(t *testing.T) {
	adapter := &fakeMonitorAdapter{
		liveQueue: [][]model.Job{
			{{ID: "1", State: model.StatePending}},
			{}, // job 1 vanished: completed too fast to observe RUNNING
		},
		history: []model.JobAccounting{{ID: "1", State: model.StateCompleted}},
	}
	submissions := []model.Submission{{JobID: "1", State: model.StatePending}}
	opts := MonitorOptions{Sleep: func(time.Duration) {}, Now: testClock(time.Now())}

	outcome, err := Monitor(context.Background(), adapter, submissions, opts)
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if outcome.Winner == nil || outcome.Winner.State != model.StateCompleted {
		t.Fatalf("Winner = %+v, want a reconciled COMPLETED winner", outcome.Winner)
	}
}

func TestMonitor_VanishedJobReconciledAsFailedDoesNotWin(t *testing.T) {
	adapter := &fakeMonitorAdapter{
		liveQueue: [][]model.Job{
			{{ID: "1", State: model.StatePending}},
			{},
		},
		history: []model.JobAccounting{{ID: "1", State: model.StateFailed}},
	}
	submissions := []model.Submission{{JobID: "1", State: model.StatePending}}
	opts := MonitorOptions{Sleep: func(time.Duration) {}, Now: testClock(time.Now())}

	_, err := Monitor(context.Background(), adapter, submissions, opts)
	if err == nil {
		t.Fatal("expected an all-dead error once the only submission resolves to FAILED")
	}
	rv, ok := err.(*rverrors.RVError)
	if !ok || rv.Kind != rverrors.KindAllocator {
		t.Errorf("err = %v, want KindAllocator", err)
	}
}

func TestMonitor_AllDeadFails(t *testing.T) {
	adapter := &fakeMonitorAdapter{
		liveQueue: [][]model.Job{
			{{ID: "1", State: model.StateFailed}, {ID: "2", State: model.StateCancelled}},
		},
	}
	submissions := []model.Submission{
		{JobID: "1", State: model.StatePending},
		{JobID: "2", State: model.StatePending},
	}
	opts := MonitorOptions{Sleep: func(time.Duration) {}, Now: testClock(time.Now())}

	_, err := Monitor(context.Background(), adapter, submissions, opts)
	if err == nil {
		t.Fatal("expected an error when every submission dies without a winner")
	}
}

func TestMonitor_OverallTimeout(t *testing.T) {
	adapter := &fakeMonitorAdapter{
		liveQueue: [][]model.Job{{{ID: "1", State: model.StatePending}}},
	}
	submissions := []model.Submission{{JobID: "1", State: model.StatePending}}

	base := time.Now()
	opts := MonitorOptions{
		Sleep:          func(time.Duration) {},
		Now:            testClock(base),
		OverallTimeout: 500 * time.Millisecond,
	}

	_, err := Monitor(context.Background(), adapter, submissions, opts)
	if err == nil {
		t.Fatal("expected a timeout error once the clock passes OverallTimeout")
	}
}
