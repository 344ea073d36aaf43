package allocator

import (
	"context"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-multierror"

	"github.com/rvcli/rv/internal/model"
	"github.com/rvcli/rv/internal/script"
	rverrors "github.com/rvcli/rv/pkg/errors"
)

// submitConcurrency bounds the worker pool fanning out strategy submissions;
// 16 strategies is the ranking phase's own ceiling, so this never queues.
const submitConcurrency = 16

// submitter is the subset of internal/scheduler.Adapter the submission
// phase needs.
type submitter interface {
	Submit(ctx context.Context, scriptText string) (string, error)
	WriteEnvFile(ctx context.Context, jobID string, vars map[string]string) error
}

// Submit synthesizes and submits every strategy concurrently, absorbing
// per-strategy failures into one aggregated error rather than aborting the
// batch (spec.md §4.3.5). It fails only if zero submissions succeed.
func Submit(ctx context.Context, adapter submitter, strategies []model.Strategy, req model.UserRequest, opts script.Options, envVars map[string]string) ([]model.Submission, error) {
	pool := workerpool.New(submitConcurrency)

	var mu sync.Mutex
	var submissions []model.Submission
	var errs *multierror.Error

	recordErr := func(label string, stage string, err error) {
		mu.Lock()
		errs = multierror.Append(errs, fmt.Errorf("strategy %s: %s: %w", label, stage, err))
		mu.Unlock()
	}

	for _, s := range strategies {
		s := s
		pool.Submit(func() {
			scriptText, err := script.Synthesize(s, req, opts)
			if err != nil {
				recordErr(s.Label, "synthesize", err)
				return
			}

			jobID, err := adapter.Submit(ctx, scriptText)
			if err != nil {
				recordErr(s.Label, "submit", err)
				return
			}

			if len(envVars) > 0 {
				if err := adapter.WriteEnvFile(ctx, jobID, envVars); err != nil {
					recordErr(s.Label, "write env file", err)
					return
				}
			}

			mu.Lock()
			submissions = append(submissions, model.Submission{
				Strategy: s,
				JobID:    jobID,
				State:    model.StatePending,
			})
			mu.Unlock()
		})
	}
	pool.StopWait()

	if len(submissions) == 0 {
		var cause error
		if errs != nil {
			cause = errs.ErrorOrNil()
		}
		return nil, rverrors.AllocatorError("every strategy failed to submit", cause)
	}
	return submissions, nil
}
