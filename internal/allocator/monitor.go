package allocator

import (
	"context"
	"time"

	"github.com/rvcli/rv/internal/model"
	rverrors "github.com/rvcli/rv/pkg/errors"
	"github.com/rvcli/rv/pkg/retry"
)

// defaultMonitorTimeout is the monitor loop's overall wall-clock budget
// (spec.md §4.3.6).
const defaultMonitorTimeout = 2 * time.Hour

// historyLookback is how far back the vanished-job reconciliation pass
// consults accounting history.
const historyLookback = time.Hour

// monitorAdapter is the subset of internal/scheduler.Adapter the monitor
// loop needs.
type monitorAdapter interface {
	ListJobs(ctx context.Context) ([]model.Job, error)
	ListHistory(ctx context.Context, since time.Time) ([]model.JobAccounting, error)
	CancelMany(ctx context.Context, jobIDs []string) error
}

// MonitorOptions configures one Monitor call; zero values fall back to the
// spec's defaults.
type MonitorOptions struct {
	Backoff        retry.BackoffStrategy
	OverallTimeout time.Duration

	// Sleep and Now are overridable so tests can drive the loop without
	// real wall-clock waits; production callers leave them nil.
	Sleep func(time.Duration)
	Now   func() time.Time
}

// Outcome is the result of a completed monitor loop: the winning
// submission, the final state of every submission, and how long the race
// took from the first poll to the winner being picked.
type Outcome struct {
	Winner         *model.Submission
	Submissions    []model.Submission
	ElapsedSeconds float64
}

// Monitor polls the live job listing with adaptive backoff until one
// submission starts running (or is reconciled as already completed),
// cancels every other in-flight submission, and returns the winner
// (spec.md §4.3.6).
func Monitor(ctx context.Context, adapter monitorAdapter, submissions []model.Submission, opts MonitorOptions) (*Outcome, error) {
	if opts.Backoff == nil {
		opts.Backoff = retry.NewMonitorBackoff()
	}
	if opts.OverallTimeout <= 0 {
		opts.OverallTimeout = defaultMonitorTimeout
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	subs := make([]model.Submission, len(submissions))
	copy(subs, submissions)

	start := opts.Now()
	deadline := start.Add(opts.OverallTimeout)
	attempt := 0

	for {
		if opts.Now().After(deadline) {
			return nil, rverrors.AllocatorError("monitor loop exceeded its overall timeout", nil)
		}

		jobs, err := adapter.ListJobs(ctx)
		if err != nil {
			return nil, err
		}
		liveByID := make(map[string]model.Job, len(jobs))
		for _, j := range jobs {
			liveByID[j.ID] = j
		}

		winnerIdx := -1
		for i := range subs {
			if subs[i].State.IsTerminal() {
				continue
			}

			job, stillLive := liveByID[subs[i].JobID]
			if stillLive {
				subs[i].State = job.State
				subs[i].Nodes = job.Nodes
				subs[i].LastPolledAt = opts.Now()
				if job.State == model.StateRunning {
					winnerIdx = i
					break
				}
				continue
			}

			// Vanished from the live listing: reconcile against accounting
			// history (spec.md §4.3.6's vanished-job reconciliation rule).
			if subs[i].State != model.StatePending && subs[i].State != model.StateRunning {
				continue
			}
			history, err := adapter.ListHistory(ctx, opts.Now().Add(-historyLookback))
			if err != nil {
				return nil, err
			}
			rec, found := findAccounting(history, subs[i].JobID)
			switch {
			case found && rec.State == model.StateCompleted:
				subs[i].State = model.StateCompleted
				subs[i].LastPolledAt = opts.Now()
				winnerIdx = i
			case found:
				subs[i].State = rec.State
				subs[i].LastPolledAt = opts.Now()
			default:
				// Accounting hasn't caught up yet; leave state unchanged
				// and try again next tick.
			}
			if winnerIdx >= 0 {
				break
			}
		}

		if winnerIdx >= 0 {
			winner := subs[winnerIdx]
			var toCancel []string
			for i := range subs {
				if i == winnerIdx {
					continue
				}
				if subs[i].State == model.StatePending || subs[i].State == model.StateRunning {
					toCancel = append(toCancel, subs[i].JobID)
					subs[i].State = model.StateCancelled
				}
			}
			if len(toCancel) > 0 {
				if err := adapter.CancelMany(ctx, toCancel); err != nil {
					return nil, err
				}
			}
			return &Outcome{
				Winner:         &winner,
				Submissions:    subs,
				ElapsedSeconds: opts.Now().Sub(start).Seconds(),
			}, nil
		}

		if allDead(subs) {
			return nil, rverrors.AllocatorError("every submission died without a winner emerging", nil)
		}

		delay, _ := opts.Backoff.NextDelay(attempt)
		attempt++
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		opts.Sleep(delay)
	}
}

func findAccounting(history []model.JobAccounting, jobID string) (model.JobAccounting, bool) {
	for _, rec := range history {
		if rec.ID == jobID {
			return rec, true
		}
	}
	return model.JobAccounting{}, false
}

// allDead reports whether every submission has reached a non-pending,
// non-running state without any of them becoming the winner.
func allDead(subs []model.Submission) bool {
	for _, s := range subs {
		if s.State == model.StatePending || s.State == model.StateRunning {
			return false
		}
	}
	return true
}
