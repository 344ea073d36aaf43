// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rvcli/rv/internal/gpuspec"
)

var gpuCmd = &cobra.Command{
	Use:   "gpu",
	Short: "List known GPU types and their static specs",
	RunE:  runGPU,
}

func runGPU(cmd *cobra.Command, args []string) error {
	specs := gpuspec.All()

	if jsonOutput {
		return printJSON(specs)
	}

	fmt.Printf("%-10s %-12s %-8s %-10s %-10s %-10s %-4s %-4s\n", "TYPE", "PARTITION", "VRAM GB", "SU/GPU-HR", "MAX/USER", "MAX/JOB", "IB", "NVL")
	for _, s := range specs {
		fmt.Printf("%-10s %-12s %-8d %-10.2f %-10d %-10d %-4t %-4t\n",
			s.Type, s.Partition, s.VRAMGB, s.CostPerGPUHour, s.MaxPerUser, s.MaxPerJob, s.InfiniBand, s.NVLink)
	}
	return nil
}
