// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command rv is the client-side CLI for racing GPU allocation strategies
// across a Slurm cluster's partitions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set at build time).
	Version   = "dev"
	BuildTime = ""
	Commit    = ""

	// Global flags.
	jsonOutput bool
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "rv",
		Short: "Race GPU allocation strategies across a Slurm cluster",
		Long:  `rv submits many candidate Slurm job strategies at once and keeps whichever starts first, cancelling the rest.`,
	}
)

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime)
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(forwardCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(costCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(gpuCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(sshCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(upgradeCmd)
}

// remoteExitError carries a job's nonzero exit code, propagated verbatim
// per spec.md §6's exit-code policy instead of collapsing to exit 1.
type remoteExitError struct{ code int }

func (e *remoteExitError) Error() string { return fmt.Sprintf("remote command exited %d", e.code) }

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		if re, ok := err.(*remoteExitError); ok {
			os.Exit(re.code)
		}
		fmt.Fprintln(os.Stderr, "rv:", err)
		os.Exit(1)
	}
}
