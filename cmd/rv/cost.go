// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rvcli/rv/internal/gpuspec"
	"github.com/rvcli/rv/internal/pathutil"
)

var (
	costGPUCount int
	costGPUType  string
	costTime     string
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Estimate the service-unit cost of a request before submitting it",
	RunE:  runCost,
}

func init() {
	costCmd.Flags().IntVar(&costGPUCount, "gpus", 1, "number of GPUs")
	costCmd.Flags().StringVar(&costGPUType, "gpu-type", "", "GPU type; omit to estimate across every known type")
	costCmd.Flags().StringVar(&costTime, "time", "01:00:00", "requested walltime (HH:MM:SS or shorthand like 2h)")
}

type costEstimate struct {
	GPUType        gpuspec.GPUType `json:"gpuType"`
	GPUHours       float64         `json:"gpuHours"`
	EstimatedSU    float64         `json:"estimatedSU"`
	CostPerGPUHour float64         `json:"costPerGPUHour"`
}

func runCost(cmd *cobra.Command, args []string) error {
	seconds, err := pathutil.ParseDuration(costTime)
	if err != nil {
		return fmt.Errorf("--time: %w", err)
	}
	gpuHours := float64(costGPUCount) * float64(seconds) / 3600.0

	var specs []gpuspec.GPUSpec
	if costGPUType != "" {
		spec, ok := gpuspec.Lookup(gpuspec.GPUType(costGPUType))
		if !ok {
			return fmt.Errorf("--gpu-type: unknown GPU type %q", costGPUType)
		}
		specs = []gpuspec.GPUSpec{spec}
	} else {
		specs = gpuspec.All()
	}

	estimates := make([]costEstimate, len(specs))
	for i, spec := range specs {
		estimates[i] = costEstimate{
			GPUType:        spec.Type,
			GPUHours:       gpuHours,
			EstimatedSU:    spec.CostPerGPUHour * gpuHours,
			CostPerGPUHour: spec.CostPerGPUHour,
		}
	}

	if jsonOutput {
		return printJSON(estimates)
	}

	fmt.Printf("%-10s %-12s %-10s\n", "TYPE", "GPU-HOURS", "EST. SU")
	for _, e := range estimates {
		fmt.Printf("%-10s %-12.2f %-10.2f\n", e.GPUType, e.GPUHours, e.EstimatedSU)
	}
	return nil
}
