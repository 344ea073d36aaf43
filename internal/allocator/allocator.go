package allocator

import (
	"context"
	"time"

	"github.com/rvcli/rv/internal/model"
	"github.com/rvcli/rv/internal/script"
	rverrors "github.com/rvcli/rv/pkg/errors"
)

// Adapter is everything the end-to-end allocation pipeline needs from the
// scheduler transport. *internal/scheduler.Adapter satisfies it directly.
type Adapter interface {
	batchProber
	submitter
	monitorAdapter
	gresProber
}

// Result is the full outcome of one Allocate call: every strategy that was
// tried, the monitor's verdict, and the post-submission hardware check.
type Result struct {
	Strategies   []model.Strategy
	Outcome      *Outcome
	Verification *Verification
}

// Options bundles the knobs Allocate threads through to the script
// synthesizer and the monitor loop.
type Options struct {
	Script  script.Options
	EnvVars map[string]string
	Monitor MonitorOptions

	// PreferCheckpoint narrows the generated strategy set to
	// checkpoint-and-resubmit strategies when any were generated, instead
	// of racing every kind side by side.
	PreferCheckpoint bool
}

// Allocate runs the full pipeline described in spec.md §4.3: filter
// compatible GPU types, probe backfill windows, generate candidate
// strategies, rank them, submit every surviving strategy concurrently,
// monitor the race to a winner, and verify what was actually allocated.
func Allocate(ctx context.Context, adapter Adapter, req model.UserRequest, opts Options) (*Result, error) {
	types := CompatibleTypes(req)
	if len(types) == 0 {
		return nil, rverrors.AllocatorError("no GPU type satisfies this request's constraints", nil)
	}

	probes, err := BackfillProbes(ctx, adapter, req, types, time.Now())
	if err != nil {
		return nil, err
	}

	strategies := GenerateStrategies(req, types, probes)
	if len(strategies) == 0 {
		return nil, rverrors.AllocatorError("no viable strategies were generated for this request", nil)
	}

	if opts.PreferCheckpoint {
		strategies = filterCheckpoint(strategies)
	}

	strategies = Rank(strategies, req.GPUType)

	submissions, err := Submit(ctx, adapter, strategies, req, opts.Script, opts.EnvVars)
	if err != nil {
		return nil, err
	}

	outcome, err := Monitor(ctx, adapter, submissions, opts.Monitor)
	if err != nil {
		return nil, err
	}

	verification, err := Verify(ctx, adapter, *outcome.Winner)
	if err != nil {
		return nil, err
	}

	return &Result{
		Strategies:   strategies,
		Outcome:      outcome,
		Verification: verification,
	}, nil
}

// filterCheckpoint narrows strategies to KindCheckpoint entries, leaving
// the set untouched if none were generated (not every GPU type produces a
// checkpoint strategy).
func filterCheckpoint(strategies []model.Strategy) []model.Strategy {
	var checkpointOnly []model.Strategy
	for _, s := range strategies {
		if s.Kind == model.KindCheckpoint {
			checkpointOnly = append(checkpointOnly, s)
		}
	}
	if len(checkpointOnly) == 0 {
		return strategies
	}
	return checkpointOnly
}
