// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

var (
	syncLocalDir  string
	syncRemoteDir string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror a local project directory to cluster scratch space (file-sync collaborator, not part of this engine)",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncLocalDir, "local", ".", "local directory to mirror")
	syncCmd.Flags().StringVar(&syncRemoteDir, "remote", "", "remote scratch directory")
}

func runSync(cmd *cobra.Command, args []string) error {
	var syncer FileSyncer = unimplementedCollaborator{name: "rv sync's file syncer"}
	return syncer.Sync(cmd.Context(), syncLocalDir, syncRemoteDir)
}
