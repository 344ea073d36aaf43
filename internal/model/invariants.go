package model

import "github.com/rvcli/rv/internal/gpuspec"

// CheckTopology validates invariant spec.md §8.1: a Strategy's
// GPUsPerNode × Nodes must equal the originating request's GPUCount, with
// single-node strategies pinned at Nodes == 1 and multi-node at Nodes == 2.
func (s Strategy) CheckTopology(gpuCount int) bool {
	if s.GPUsPerNode*s.Nodes != gpuCount {
		return false
	}
	switch s.Topology {
	case TopologySingleNode:
		return s.Nodes == 1
	case TopologyMultiNode:
		return s.Nodes == 2
	default:
		return false
	}
}

// CheckWalltime validates invariant spec.md §8.2: a Strategy's walltime
// never exceeds its GPUSpec's max walltime.
func (s Strategy) CheckWalltime(spec gpuspec.GPUSpec) bool {
	return float64(s.WalltimeSeconds) <= spec.MaxWalltime.Seconds()
}

// Dominates reports whether s dominates other on both wait and SU — used
// by the ranking dominance-pruning rule (spec.md §4.3.4, §8.3). Only
// meaningful within the same (gpuType, topology, checkpoint) bucket; callers
// are responsible for bucketing before calling this.
func (s Strategy) Dominates(other Strategy) bool {
	return s.EstimatedWaitSeconds <= other.EstimatedWaitSeconds && s.EstimatedSU <= other.EstimatedSU
}

// Bucket returns the dominance-pruning bucket key for a strategy: the
// (gpuType, topology, checkpoint) triple the pruning rule groups within.
func (s Strategy) Bucket() [3]string {
	checkpoint := "0"
	if s.Checkpoint {
		checkpoint = "1"
	}
	return [3]string{string(s.GPUType), string(s.Topology), checkpoint}
}
