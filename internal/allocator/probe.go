package allocator

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rvcli/rv/internal/gpuspec"
	"github.com/rvcli/rv/internal/model"
	"github.com/rvcli/rv/internal/scheduler"
)

// backfillWindow is how close an estimated start must be to "now" for a
// probe to count as backfillable (spec.md §4.3.2).
const backfillWindow = 300 * time.Second

// refinementStep is the probe grid spacing used once a cliff is found
// between a backfillable and a non-backfillable walltime.
const refinementStep = 15 * time.Minute

// coarseGrid is the walltime grid probed before any refinement.
var coarseGrid = []time.Duration{
	30 * time.Minute,
	1 * time.Hour,
	2 * time.Hour,
	2*time.Hour + 59*time.Minute,
	4 * time.Hour,
	6 * time.Hour,
}

// batchProber is the subset of internal/scheduler.Adapter the backfill
// probe phase needs.
type batchProber interface {
	ProbeBatch(ctx context.Context, specs []scheduler.ProbeSpec) ([]scheduler.ProbeResult, error)
}

// probeRequest pairs a ProbeSpec with the type/walltime it represents, so
// results can be regrouped after a batched call returns them flat.
type probeRequest struct {
	gpuType  gpuspec.GPUType
	walltime time.Duration
	spec     scheduler.ProbeSpec
}

// BackfillProbes runs the coarse-grid-then-refinement backfill probe for
// every compatible, probeable GPU type and returns one BackfillProbe per
// type. MIG is skipped: it is free and instant, so spec.md §4.3.3 never
// consults a backfill ceiling for it.
func BackfillProbes(ctx context.Context, prober batchProber, req model.UserRequest, types []gpuspec.GPUSpec, now time.Time) (map[gpuspec.GPUType]model.BackfillProbe, error) {
	results := make(map[gpuspec.GPUType]model.BackfillProbe)

	var coarseReqs []probeRequest
	for _, spec := range types {
		if spec.Type == gpuspec.MIG {
			continue
		}
		count := probeCount(req, spec)
		for _, wt := range coarseGrid {
			if wt > spec.MaxWalltime {
				continue
			}
			coarseReqs = append(coarseReqs, probeRequest{
				gpuType:  spec.Type,
				walltime: wt,
				spec:     buildProbeSpec(req, spec, count, wt),
			})
		}
	}

	coarseOutcomes, err := runProbeBatch(ctx, prober, coarseReqs, now)
	if err != nil {
		return nil, err
	}

	byType := make(map[gpuspec.GPUType][]probeOutcome)
	for _, o := range coarseOutcomes {
		byType[o.gpuType] = append(byType[o.gpuType], o)
	}

	var refineReqs []probeRequest
	pending := make(map[gpuspec.GPUType]struct {
		lo, hi time.Duration
	})

	for _, spec := range types {
		if spec.Type == gpuspec.MIG {
			continue
		}
		outcomes := byType[spec.Type]
		if len(outcomes) == 0 {
			results[spec.Type] = model.BackfillProbe{GPUType: spec.Type}
			continue
		}
		sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].walltime < outcomes[j].walltime })

		allBackfill := true
		for _, o := range outcomes {
			if !o.backfillable {
				allBackfill = false
				break
			}
		}
		if allBackfill {
			results[spec.Type] = model.BackfillProbe{
				GPUType:            spec.Type,
				MaxBackfillSeconds: int(outcomes[len(outcomes)-1].walltime.Seconds()),
				FullyBackfillable:  true,
			}
			continue
		}

		var lastBackfillable, firstNonBackfillable *time.Duration
		for _, o := range outcomes {
			wt := o.walltime
			if o.backfillable {
				lastBackfillable = &wt
			} else if firstNonBackfillable == nil {
				firstNonBackfillable = &wt
			}
		}

		if lastBackfillable == nil {
			results[spec.Type] = model.BackfillProbe{GPUType: spec.Type}
			continue
		}
		if firstNonBackfillable == nil {
			results[spec.Type] = model.BackfillProbe{
				GPUType:            spec.Type,
				MaxBackfillSeconds: int(lastBackfillable.Seconds()),
				FullyBackfillable:  true,
			}
			continue
		}

		count := probeCount(req, spec)
		pending[spec.Type] = struct {
			lo, hi time.Duration
		}{lo: *lastBackfillable, hi: *firstNonBackfillable}

		for wt := *lastBackfillable + refinementStep; wt < *firstNonBackfillable; wt += refinementStep {
			refineReqs = append(refineReqs, probeRequest{
				gpuType:  spec.Type,
				walltime: wt,
				spec:     buildProbeSpec(req, spec, count, wt),
			})
		}
	}

	refineOutcomes, err := runProbeBatch(ctx, prober, refineReqs, now)
	if err != nil {
		return nil, err
	}
	refinedByType := make(map[gpuspec.GPUType][]probeOutcome)
	for _, o := range refineOutcomes {
		refinedByType[o.gpuType] = append(refinedByType[o.gpuType], o)
	}

	for gpuType, p := range pending {
		best := p.lo
		for _, o := range refinedByType[gpuType] {
			if o.backfillable && o.walltime > best {
				best = o.walltime
			}
		}
		results[gpuType] = model.BackfillProbe{
			GPUType:            gpuType,
			MaxBackfillSeconds: int(best.Seconds()),
			FullyBackfillable:  false,
		}
	}

	return results, nil
}

type probeOutcome struct {
	gpuType      gpuspec.GPUType
	walltime     time.Duration
	backfillable bool
}

func runProbeBatch(ctx context.Context, prober batchProber, reqs []probeRequest, now time.Time) ([]probeOutcome, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	specs := make([]scheduler.ProbeSpec, len(reqs))
	for i, r := range reqs {
		specs[i] = r.spec
	}
	results, err := prober.ProbeBatch(ctx, specs)
	if err != nil {
		return nil, err
	}
	outcomes := make([]probeOutcome, len(reqs))
	for i, r := range reqs {
		backfillable := false
		if i < len(results) && results[i].EstimatedStart != nil {
			backfillable = results[i].EstimatedStart.Sub(now) < backfillWindow
		}
		outcomes[i] = probeOutcome{gpuType: r.gpuType, walltime: r.walltime, backfillable: backfillable}
	}
	return outcomes, nil
}

// probeCount is the actual per-node GPU count the probe should request:
// gpuCount itself when single-node is feasible, otherwise the 2-node
// split's per-node share.
func probeCount(req model.UserRequest, spec gpuspec.GPUSpec) int {
	if req.GPUCount <= spec.MaxPerJob {
		return req.GPUCount
	}
	return int(math.Ceil(float64(req.GPUCount) / 2))
}

func buildProbeSpec(req model.UserRequest, spec gpuspec.GPUSpec, count int, walltime time.Duration) scheduler.ProbeSpec {
	return scheduler.ProbeSpec{
		Partition:       spec.Partition,
		GRES:            string(spec.Type),
		Count:           count,
		WalltimeSeconds: int(walltime.Seconds()),
		Account:         req.Account,
		Features:        spec.Features,
	}
}
