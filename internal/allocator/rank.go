package allocator

import (
	"sort"

	"github.com/rvcli/rv/internal/gpuspec"
	"github.com/rvcli/rv/internal/model"
)

// maxStrategies is the ranking phase's truncation limit (spec.md §4.3.4).
const maxStrategies = 16

// scoreWeights are the ranking formula's named constants (spec.md §4.3.4).
const (
	backfillBonus      = 10000
	requestedTypeBonus = 500
	costWeight         = 2000
	checkpointPenalty  = 200
	migBonus           = 1000
	interactiveBonus   = 300
)

// Rank scores every strategy, sorts descending, prunes dominated candidates
// within each (gpuType, topology, checkpoint) bucket, and truncates to
// maxStrategies. requestedType is nil when the user did not pin a hardware
// class.
func Rank(strategies []model.Strategy, requestedType *gpuspec.GPUType) []model.Strategy {
	if len(strategies) == 0 {
		return nil
	}

	maxSU := 0.0
	for _, s := range strategies {
		if s.EstimatedSU > maxSU {
			maxSU = s.EstimatedSU
		}
	}

	scored := make([]model.Strategy, len(strategies))
	copy(scored, strategies)
	for i := range scored {
		scored[i].Score = score(scored[i], requestedType, maxSU)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	pruned := pruneDominated(scored)

	if len(pruned) > maxStrategies {
		pruned = pruned[:maxStrategies]
	}
	return pruned
}

func score(s model.Strategy, requestedType *gpuspec.GPUType, maxSU float64) float64 {
	total := 0.0
	if s.BackfillEligible {
		total += backfillBonus
	}
	total -= float64(s.EstimatedWaitSeconds)
	if requestedType != nil && s.GPUType == *requestedType {
		total += requestedTypeBonus
	}
	if maxSU > 0 {
		total += costWeight * (1 - s.EstimatedSU/maxSU)
	}
	if s.Checkpoint {
		total -= checkpointPenalty
	}
	if s.Kind == model.KindMIG {
		total += migBonus
	}
	if s.Kind == model.KindInteractive {
		total += interactiveBonus
	}
	return total
}

// pruneDominated drops any candidate that another candidate in the same
// bucket dominates on both wait and SU, without ever pruning across
// gpuType/topology/checkpoint buckets (spec.md §4.3.4, §8.3).
func pruneDominated(strategies []model.Strategy) []model.Strategy {
	kept := make([]model.Strategy, 0, len(strategies))
	for i, candidate := range strategies {
		dominated := false
		for j, other := range strategies {
			if i == j || candidate.Bucket() != other.Bucket() {
				continue
			}
			if other.Dominates(candidate) && !candidate.Dominates(other) {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, candidate)
		}
	}
	return kept
}
