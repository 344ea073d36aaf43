// Package allocator is the allocation engine's heart: it turns a
// UserRequest into a ranked set of concrete scheduler submissions, submits
// them concurrently, monitors the race, and verifies the winner.
package allocator

import (
	"github.com/rvcli/rv/internal/gpuspec"
	"github.com/rvcli/rv/internal/model"
)

// CompatibleTypes filters the GPUSpec table down to the hardware classes
// that can possibly satisfy req (spec.md §4.3.1).
func CompatibleTypes(req model.UserRequest) []gpuspec.GPUSpec {
	var out []gpuspec.GPUSpec
	for _, spec := range gpuspec.All() {
		if req.GPUType != nil && spec.Type != *req.GPUType {
			continue
		}
		if spec.VRAMGB < req.VRAMFloorGB {
			continue
		}
		if req.GPUCount > spec.MaxPerUser {
			continue
		}

		switch spec.Type {
		case gpuspec.MIG:
			if req.GPUCount != 1 {
				continue
			}
		case gpuspec.RTX3090:
			if req.GPUCount > spec.MaxPerJob {
				continue
			}
		default:
			singleNodeFeasible := req.GPUCount <= spec.MaxPerJob
			twoNodeFeasible := req.GPUCount >= 4 && req.GPUCount%2 == 0 &&
				req.GPUCount/2 <= spec.PerNode &&
				req.GPUCount <= spec.MaxPerUser
			if !singleNodeFeasible && !twoNodeFeasible {
				continue
			}
		}

		out = append(out, spec)
	}
	return out
}
