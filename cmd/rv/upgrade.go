// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Fetch and install a newer rv release (update collaborator, not part of this engine)",
	RunE:  runUpgrade,
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	var updater Updater = unimplementedCollaborator{name: "rv upgrade's updater"}
	version, err := updater.CheckLatest(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println("latest version:", version)
	return updater.Install(cmd.Context(), version)
}
