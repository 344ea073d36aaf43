package allocator

import (
	"fmt"
	"time"

	"github.com/rvcli/rv/internal/gpuspec"
	"github.com/rvcli/rv/internal/model"
)

// migMaxVRAMGB and interactive* gate the MIG and rtx3090 specials beyond
// what the compatibility filter already checked (spec.md §4.3.3).
const (
	migMaxVRAMGB         = 10
	interactiveMaxGPUs   = 2
	interactiveMaxVRAMGB = 24
)

var interactiveMaxWalltime = 12 * time.Hour

// GenerateStrategies emits up to four variants per compatible standard GPU
// type plus the MIG and interactive-rtx3090 specials, each carrying an
// estimated wait and service-unit cost for the ranking phase.
func GenerateStrategies(req model.UserRequest, types []gpuspec.GPUSpec, probes map[gpuspec.GPUType]model.BackfillProbe) []model.Strategy {
	var out []model.Strategy
	seq := 0
	nextID := func() string {
		seq++
		return fmt.Sprintf("s%d", seq)
	}

	for _, spec := range types {
		switch spec.Type {
		case gpuspec.MIG:
			if req.GPUCount == 1 && req.VRAMFloorGB <= migMaxVRAMGB &&
				req.TotalTimeSeconds <= int(spec.MaxWalltime.Seconds()) {
				out = append(out, migStrategy(nextID(), req, spec))
			}
			continue
		case gpuspec.RTX3090:
			if req.GPUCount <= interactiveMaxGPUs &&
				req.TotalTimeSeconds <= int(interactiveMaxWalltime.Seconds()) &&
				req.VRAMFloorGB <= interactiveMaxVRAMGB {
				out = append(out, interactiveStrategy(nextID(), req, spec, probes[spec.Type]))
			}
			continue
		}

		probe := probes[spec.Type]
		maxWalltime := int(spec.MaxWalltime.Seconds())

		if req.GPUCount <= spec.MaxPerJob && req.TotalTimeSeconds <= maxWalltime {
			out = append(out, directStrategy(nextID(), req, spec, probe, 1, req.GPUCount, model.TopologySingleNode))
		}
		if probe.MaxBackfillSeconds > 0 && req.TotalTimeSeconds > probe.MaxBackfillSeconds && req.GPUCount <= spec.MaxPerJob {
			out = append(out, checkpointStrategy(nextID(), req, spec, probe, 1, req.GPUCount, model.TopologySingleNode))
		}

		perNode := req.GPUCount / 2
		if req.GPUCount >= 4 && req.GPUCount%2 == 0 && perNode <= spec.PerNode {
			if req.TotalTimeSeconds <= maxWalltime {
				out = append(out, directStrategy(nextID(), req, spec, probe, 2, perNode, model.TopologyMultiNode))
			}
			if probe.MaxBackfillSeconds > 0 && req.TotalTimeSeconds > probe.MaxBackfillSeconds {
				out = append(out, checkpointStrategy(nextID(), req, spec, probe, 2, perNode, model.TopologyMultiNode))
			}
		}
	}

	return out
}

func directStrategy(id string, req model.UserRequest, spec gpuspec.GPUSpec, probe model.BackfillProbe, nodes, gpusPerNode int, topology model.Topology) model.Strategy {
	kind := model.KindDirect
	timeMin := 0
	backfillEligible := false

	switch {
	case probe.MaxBackfillSeconds > 0 && req.TotalTimeSeconds <= probe.MaxBackfillSeconds:
		kind = model.KindBackfill
		backfillEligible = true
	case probe.MaxBackfillSeconds > 0:
		timeMin = probe.MaxBackfillSeconds
	}

	s := model.Strategy{
		ID:                   id,
		Kind:                 kind,
		GPUType:              spec.Type,
		Partition:            spec.Partition,
		Resource:             spec.GRES(gpusPerNode),
		WalltimeSeconds:      req.TotalTimeSeconds,
		TimeMinSeconds:       timeMin,
		GPUsPerNode:          gpusPerNode,
		Nodes:                nodes,
		Topology:             topology,
		ConstraintFeatures:   spec.Features,
		BackfillEligible:     backfillEligible,
		EstimatedSU:          estimatedSU(req, spec),
		EstimatedWaitSeconds: estimatedWait(req, probe, backfillEligible),
		Label:                fmt.Sprintf("%s-direct-%s", spec.Type, topology),
	}
	return s
}

// checkpointStrategy builds a self-resubmitting strategy whose segment
// walltime is pinned at the probed backfill ceiling (spec.md §4.3.3 item 2).
func checkpointStrategy(id string, req model.UserRequest, spec gpuspec.GPUSpec, probe model.BackfillProbe, nodes, gpusPerNode int, topology model.Topology) model.Strategy {
	return model.Strategy{
		ID:                   id,
		Kind:                 model.KindCheckpoint,
		GPUType:              spec.Type,
		Partition:            spec.Partition,
		Resource:             spec.GRES(gpusPerNode),
		WalltimeSeconds:      probe.MaxBackfillSeconds,
		GPUsPerNode:          gpusPerNode,
		Nodes:                nodes,
		Topology:             topology,
		Checkpoint:           true,
		ConstraintFeatures:   spec.Features,
		BackfillEligible:     true,
		EstimatedSU:          estimatedSU(req, spec),
		EstimatedWaitSeconds: 30,
		Label:                fmt.Sprintf("%s-checkpoint-%s", spec.Type, topology),
	}
}

func migStrategy(id string, req model.UserRequest, spec gpuspec.GPUSpec) model.Strategy {
	return model.Strategy{
		ID:                   id,
		Kind:                 model.KindMIG,
		GPUType:              spec.Type,
		Partition:            spec.Partition,
		Resource:             spec.GRES(1),
		WalltimeSeconds:      req.TotalTimeSeconds,
		GPUsPerNode:          1,
		Nodes:                1,
		Topology:             model.TopologySingleNode,
		BackfillEligible:     true,
		EstimatedSU:          0,
		EstimatedWaitSeconds: 30,
		Label:                "mig",
	}
}

func interactiveStrategy(id string, req model.UserRequest, spec gpuspec.GPUSpec, probe model.BackfillProbe) model.Strategy {
	backfillEligible := probe.MaxBackfillSeconds > 0 && req.TotalTimeSeconds <= probe.MaxBackfillSeconds
	return model.Strategy{
		ID:                   id,
		Kind:                 model.KindInteractive,
		GPUType:              spec.Type,
		Partition:            spec.Partition,
		Resource:             spec.GRES(req.GPUCount),
		WalltimeSeconds:      req.TotalTimeSeconds,
		GPUsPerNode:          req.GPUCount,
		Nodes:                1,
		Topology:             model.TopologySingleNode,
		ConstraintFeatures:   spec.Features,
		BackfillEligible:     backfillEligible,
		EstimatedSU:          estimatedSU(req, spec),
		EstimatedWaitSeconds: estimatedWait(req, probe, backfillEligible),
		Label:                "interactive-rtx3090",
	}
}

// estimatedSU projects the service-unit cost of running the full requested
// duration on spec's hardware, independent of how the strategy segments it.
func estimatedSU(req model.UserRequest, spec gpuspec.GPUSpec) float64 {
	gpuHours := float64(req.GPUCount) * float64(req.TotalTimeSeconds) / 3600.0
	return spec.CostPerGPUHour * gpuHours
}

// estimatedWait implements spec.md §4.3.3's estimated-wait formula.
func estimatedWait(req model.UserRequest, probe model.BackfillProbe, backfillEligible bool) int {
	if backfillEligible {
		return 30
	}
	if probe.MaxBackfillSeconds <= 0 {
		return int(time.Hour.Seconds())
	}
	ratio := float64(req.TotalTimeSeconds) / float64(probe.MaxBackfillSeconds)
	wait := 3600 * ratio
	if cap := (24 * time.Hour).Seconds(); wait > cap {
		wait = cap
	}
	return int(wait)
}
