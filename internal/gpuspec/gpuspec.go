// Package gpuspec holds the closed table of GPU hardware classes rv can
// request and their scheduler-facing limits. The table is static
// configuration data; nothing in this package mutates it at runtime.
package gpuspec

import (
	"strconv"
	"time"
)

// GPUType is a closed enum of hardware classes the allocator reasons about.
type GPUType string

const (
	MIG     GPUType = "mig"
	RTX3090 GPUType = "rtx3090"
	A6000   GPUType = "a6000"
	A40     GPUType = "a40"
	A100_40 GPUType = "a100_40"
	A100_80 GPUType = "a100_80"
	V100    GPUType = "v100"
	H200    GPUType = "h200"
)

// GPUSpec is the immutable resource envelope for one GPUType.
type GPUSpec struct {
	Type GPUType

	// Partition is the scheduler partition that carries this hardware class.
	Partition string

	// GRESPrefix is the gres selector prefix used to build a request string,
	// e.g. "gpu:a100_80:" + count.
	GRESPrefix string

	VRAMGB int

	// CostPerGPUHour is the cluster's service-unit cost per GPU-hour. Zero
	// for MIG, which is free on this cluster.
	CostPerGPUHour float64

	// MaxPerUser bounds how many of this type a single user may hold
	// concurrently across all their jobs.
	MaxPerUser int

	// MaxPerJob bounds how many may be requested by a single job on a
	// single node.
	MaxPerJob int

	MaxWalltime time.Duration

	// PerNode is the physical GPU count available on one node of this
	// partition.
	PerNode int

	NodeMemoryGB int

	// Features are optional constraint tags (e.g. "hbm3") a strategy may
	// request via --constraint.
	Features []string

	InfiniBand bool
	NVLink     bool
}

// table is the static GPUSpec configuration. Values are representative of a
// typical academic HPC cluster's GPU partitions, not any specific site.
var table = map[GPUType]GPUSpec{
	MIG: {
		Type:        MIG,
		Partition:   "mig",
		GRESPrefix:  "gpu:mig:",
		VRAMGB:      10,
		MaxPerUser:  4,
		MaxPerJob:   1,
		MaxWalltime: 24 * time.Hour,
		PerNode:     7,
		NodeMemoryGB: 128,
	},
	RTX3090: {
		Type:        RTX3090,
		Partition:   "interactive",
		GRESPrefix:  "gpu:rtx3090:",
		VRAMGB:      24,
		CostPerGPUHour: 0.5,
		MaxPerUser:  2,
		MaxPerJob:   2,
		MaxWalltime: 12 * time.Hour,
		PerNode:     2,
		NodeMemoryGB: 128,
	},
	A6000: {
		Type:        A6000,
		Partition:   "gpu",
		GRESPrefix:  "gpu:a6000:",
		VRAMGB:      48,
		CostPerGPUHour: 1.0,
		MaxPerUser:  8,
		MaxPerJob:   4,
		MaxWalltime: 7 * 24 * time.Hour,
		PerNode:     4,
		NodeMemoryGB: 256,
	},
	A40: {
		Type:        A40,
		Partition:   "gpu",
		GRESPrefix:  "gpu:a40:",
		VRAMGB:      48,
		CostPerGPUHour: 1.0,
		MaxPerUser:  8,
		MaxPerJob:   4,
		MaxWalltime: 7 * 24 * time.Hour,
		PerNode:     4,
		NodeMemoryGB: 256,
	},
	A100_40: {
		Type:        A100_40,
		Partition:   "gpu-a100",
		GRESPrefix:  "gpu:a100_40:",
		VRAMGB:      40,
		CostPerGPUHour: 2.0,
		MaxPerUser:  8,
		MaxPerJob:   4,
		MaxWalltime: 7 * 24 * time.Hour,
		PerNode:     4,
		NodeMemoryGB: 512,
		InfiniBand:  true,
		NVLink:      true,
	},
	A100_80: {
		Type:        A100_80,
		Partition:   "gpu-a100",
		GRESPrefix:  "gpu:a100_80:",
		VRAMGB:      80,
		CostPerGPUHour: 3.0,
		MaxPerUser:  8,
		MaxPerJob:   4,
		MaxWalltime: 7 * 24 * time.Hour,
		PerNode:     4,
		NodeMemoryGB: 512,
		InfiniBand:  true,
		NVLink:      true,
	},
	V100: {
		Type:        V100,
		Partition:   "gpu-v100",
		GRESPrefix:  "gpu:v100:",
		VRAMGB:      32,
		CostPerGPUHour: 1.5,
		MaxPerUser:  8,
		MaxPerJob:   4,
		MaxWalltime: 7 * 24 * time.Hour,
		PerNode:     4,
		NodeMemoryGB: 256,
	},
	H200: {
		Type:        H200,
		Partition:   "gpu-h200",
		GRESPrefix:  "gpu:h200:",
		VRAMGB:      141,
		CostPerGPUHour: 5.0,
		MaxPerUser:  4,
		MaxPerJob:   4,
		MaxWalltime: 7 * 24 * time.Hour,
		PerNode:     4,
		NodeMemoryGB: 1024,
		InfiniBand:  true,
		NVLink:      true,
	},
}

// Lookup returns the GPUSpec for t and whether it exists.
func Lookup(t GPUType) (GPUSpec, bool) {
	spec, ok := table[t]
	return spec, ok
}

// All returns every GPUSpec in a deterministic order (declaration order
// above), for callers that need to iterate the whole table.
func All() []GPUSpec {
	order := []GPUType{MIG, RTX3090, A6000, A40, A100_40, A100_80, V100, H200}
	specs := make([]GPUSpec, 0, len(order))
	for _, t := range order {
		specs = append(specs, table[t])
	}
	return specs
}

// GRES renders the gres selector string for count units of this type.
func (s GPUSpec) GRES(count int) string {
	return s.GRESPrefix + strconv.Itoa(count)
}
