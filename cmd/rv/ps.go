// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List this user's live jobs",
	RunE:  runPS,
}

func runPS(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	jobs, err := conn.adapter.ListJobs(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(jobs)
	}

	if len(jobs) == 0 {
		fmt.Println("no live jobs")
		return nil
	}

	fmt.Printf("%-10s %-20s %-10s %-15s %-10s\n", "JOB ID", "NAME", "STATE", "RESOURCE", "NODES")
	fmt.Println(strings.Repeat("-", 70))
	for _, j := range jobs {
		fmt.Printf("%-10s %-20s %-10s %-15s %-10s\n", j.ID, j.Name, j.State, j.Resource, strings.Join(j.Nodes, ","))
	}
	return nil
}
