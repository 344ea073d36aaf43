package allocator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rvcli/rv/internal/gpuspec"
	"github.com/rvcli/rv/internal/model"
	rverrors "github.com/rvcli/rv/pkg/errors"
)

// Verification is the winner's post-submission hardware check (spec.md
// §4.3.7).
type Verification struct {
	ObservedGPULabel string
	ObservedCount    int
	Mismatch         bool
	Warnings         []string
}

// gresProber is the subset of internal/scheduler.Adapter the verification
// phase needs.
type gresProber interface {
	NodeGRES(ctx context.Context, nodes []string) (map[string]string, error)
}

// Verify queries the winning submission's allocated node(s) and compares
// the observed gres label to what the strategy asked for.
func Verify(ctx context.Context, adapter gresProber, winner model.Submission) (*Verification, error) {
	spec, ok := gpuspec.Lookup(winner.Strategy.GPUType)
	if !ok {
		return nil, rverrors.Newf(rverrors.KindAllocator, "unknown gpu type %q on winning strategy", winner.Strategy.GPUType)
	}

	if len(winner.Nodes) == 0 {
		return &Verification{Mismatch: true, Warnings: []string{"winning job reported no allocated nodes"}}, nil
	}

	gresByNode, err := adapter.NodeGRES(ctx, winner.Nodes)
	if err != nil {
		return nil, err
	}

	label, count := parseGRES(gresByNode[winner.Nodes[0]])

	v := &Verification{
		ObservedGPULabel: label,
		ObservedCount:    count,
		Mismatch:         mismatched(winner.Strategy.GPUType, label),
	}
	v.Warnings = topologyWarnings(winner.Strategy, spec)
	return v, nil
}

// parseGRES extracts the type label and count from a gres string like
// "gpu:a100_80:4(S:0-1)" or "gpu:a100:4".
func parseGRES(gres string) (label string, count int) {
	for _, part := range strings.Split(gres, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "gpu:") {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) < 3 {
			continue
		}
		label = fields[1]
		countField := fields[2]
		if idx := strings.IndexByte(countField, '('); idx >= 0 {
			countField = countField[:idx]
		}
		n, err := strconv.Atoi(countField)
		if err == nil {
			count = n
		}
		return label, count
	}
	return "", 0
}

// mismatched applies spec.md §4.3.7's a100 ambiguity rule: a bare "a100"
// node label (no 40/80 GB suffix) is compatible with either A100 variant,
// so it never counts as a mismatch; only an observed label that names the
// wrong variant does.
func mismatched(requested gpuspec.GPUType, observedLabel string) bool {
	if observedLabel == "" {
		return true
	}
	if string(requested) == observedLabel {
		return false
	}
	if observedLabel == "a100" && (requested == gpuspec.A100_40 || requested == gpuspec.A100_80) {
		return false
	}
	return true
}

// topologyWarnings flags known hazards: multi-node jobs on partitions
// without a high-bandwidth interconnect, and multi-GPU jobs on partitions
// without NVLink.
func topologyWarnings(s model.Strategy, spec gpuspec.GPUSpec) []string {
	var warnings []string
	if s.Topology == model.TopologyMultiNode && !spec.InfiniBand {
		warnings = append(warnings, fmt.Sprintf("multi-node job on partition %q has no InfiniBand interconnect", spec.Partition))
	}
	if s.GPUsPerNode > 1 && !spec.NVLink {
		warnings = append(warnings, fmt.Sprintf("multi-GPU job on partition %q has no NVLink", spec.Partition))
	}
	return warnings
}
