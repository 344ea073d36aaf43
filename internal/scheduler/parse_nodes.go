package scheduler

import (
	"strconv"
	"strings"

	rverrors "github.com/rvcli/rv/pkg/errors"
)

// NodeState is the closed, suffix-stripped node state.
type NodeState string

const (
	NodeIdle      NodeState = "idle"
	NodeAllocated NodeState = "allocated"
	NodeMixed     NodeState = "mixed"
	NodeDraining  NodeState = "draining"
	NodeDown      NodeState = "down"
	NodeUnknown   NodeState = "unknown"
)

var nodeStateSuffixes = "*~#$@"

// NodeInfo is one row of the node inventory listing.
type NodeInfo struct {
	Name  string
	State NodeState
	GRES  string

	CPUsAlloc int
	CPUsIdle  int
	CPUsOther int
	CPUsTotal int

	MemoryMB int

	// GPUsFree is a policy estimate (not authoritative): idle nodes report
	// every GPU free, allocated/draining/down report none, mixed reports
	// half of the gres-declared count.
	GPUsFree int
	GPUsTotal int
}

var nodeStateTable = map[string]NodeState{
	"idle":      NodeIdle,
	"allocated": NodeAllocated,
	"alloc":     NodeAllocated,
	"mixed":     NodeMixed,
	"draining":  NodeDraining,
	"drain":     NodeDraining,
	"down":      NodeDown,
}

func lookupNodeState(raw string) NodeState {
	trimmed := strings.TrimRight(raw, nodeStateSuffixes)
	if state, ok := nodeStateTable[strings.ToLower(trimmed)]; ok {
		return state
	}
	return NodeUnknown
}

// ParseNodeInventory parses whitespace-separated rows "name state gres cpus
// mem", where gres may itself contain commas inside parentheses (so it is
// not simply whitespace-split); memory is always the last field and cpus
// (alloc/idle/other/total) is second-to-last.
func ParseNodeInventory(text string) ([]NodeInfo, error) {
	var nodes []NodeInfo
	for _, line := range splitNonEmptyLines(text) {
		fields := splitNodeRow(line)
		if len(fields) < 5 {
			return nil, rverrors.WrapParse("node inventory record", line)
		}

		name := fields[0]
		state := lookupNodeState(fields[1])

		memStr := fields[len(fields)-1]
		cpuStr := fields[len(fields)-2]
		gres := strings.Join(fields[2:len(fields)-2], " ")

		mem, err := strconv.Atoi(memStr)
		if err != nil {
			return nil, rverrors.WrapParse("node memory", line)
		}

		cpuParts := strings.Split(cpuStr, "/")
		if len(cpuParts) != 4 {
			return nil, rverrors.WrapParse("node cpu load string", line)
		}
		alloc, _ := strconv.Atoi(cpuParts[0])
		idle, _ := strconv.Atoi(cpuParts[1])
		other, _ := strconv.Atoi(cpuParts[2])
		total, _ := strconv.Atoi(cpuParts[3])

		gpuTotal := gresGPUCount(gres)
		gpuFree := estimateFreeGPUs(state, gpuTotal)

		nodes = append(nodes, NodeInfo{
			Name:      name,
			State:     state,
			GRES:      gres,
			CPUsAlloc: alloc,
			CPUsIdle:  idle,
			CPUsOther: other,
			CPUsTotal: total,
			MemoryMB:  mem,
			GPUsFree:  gpuFree,
			GPUsTotal: gpuTotal,
		})
	}
	return nodes, nil
}

// splitNodeRow splits on whitespace but keeps a parenthesized group (gres's
// "(S:0-1)"-style socket annotation) joined to its preceding token.
func splitNodeRow(line string) []string {
	var fields []string
	depth := 0
	start := -1
	for i, r := range line {
		switch {
		case r == '(':
			depth++
			if start < 0 {
				start = i
			}
		case r == ')':
			depth--
		case r == ' ' || r == '\t':
			if depth == 0 {
				if start >= 0 {
					fields = append(fields, line[start:i])
					start = -1
				}
			} else if start < 0 {
				start = i
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		fields = append(fields, line[start:])
	}
	return fields
}

// gresGPUCount extracts the numeric GPU count from a gres string like
// "gpu:a100_80:4(S:0-1)" or "gpu:a100_80:4,gpu:v100:2" (sums across types).
func gresGPUCount(gres string) int {
	total := 0
	for _, part := range strings.Split(gres, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "gpu:") {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) < 3 {
			continue
		}
		countField := fields[2]
		if idx := strings.IndexByte(countField, '('); idx >= 0 {
			countField = countField[:idx]
		}
		n, err := strconv.Atoi(countField)
		if err == nil {
			total += n
		}
	}
	return total
}

func estimateFreeGPUs(state NodeState, total int) int {
	switch state {
	case NodeIdle:
		return total
	case NodeAllocated, NodeDraining, NodeDown:
		return 0
	case NodeMixed:
		return total / 2
	default:
		return 0
	}
}
