// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rvcli/rv/internal/model"
	"github.com/rvcli/rv/internal/tail"
)

var (
	logsStream    string
	logsNodeCount int
	logsNode      int
	logsRaw       bool
	logsSilent    bool
)

var logsCmd = &cobra.Command{
	Use:   "logs JOB_ID OUT_PATH ERR_PATH",
	Short: "Stream a job's stdout/stderr until it terminates",
	Args:  cobra.ExactArgs(3),
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsStream, "stream", "both", "out, err, or both")
	logsCmd.Flags().IntVar(&logsNodeCount, "nodes", 1, "node count for a multi-node job")
	logsCmd.Flags().IntVar(&logsNode, "node", -1, "limit tailing to one node index (0-based); -1 means all")
	logsCmd.Flags().BoolVar(&logsRaw, "raw", false, "keep progress-bar carriage-return lines")
	logsCmd.Flags().BoolVar(&logsSilent, "silent", false, "suppress printed output, just resolve the final state")
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	jobID, outPath, errPath := args[0], args[1], args[2]

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := tail.Options{
		Stream:    tail.Stream(logsStream),
		NodeCount: logsNodeCount,
		Raw:       logsRaw,
		Silent:    logsSilent,
	}
	if logsNode >= 0 {
		opts.NodeFilter = &logsNode
	}

	tailer := tail.NewTailer(conn.exec, conn.adapter)
	result, err := tailer.Tail(ctx, jobID, outPath, errPath, opts)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(result)
	}

	fmt.Printf("final state: %s, exit code: %d\n", result.FinalState, result.ExitCode)
	if result.FinalState == model.StateFailed && result.ExitCode != 0 {
		return &remoteExitError{code: result.ExitCode}
	}
	return nil
}
