// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop JOB_ID [JOB_ID...]",
	Short: "Cancel one or more jobs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.adapter.CancelMany(ctx, args); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]any{"cancelled": args})
	}
	fmt.Println("cancelled:", args)
	return nil
}
