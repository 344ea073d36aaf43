// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Re-run provisioning against the already-configured cluster account (provisioning collaborator, not part of this engine)",
	RunE:  runUp,
}

func runUp(cmd *cobra.Command, args []string) error {
	var provisioner SetupProvisioner = unimplementedCollaborator{name: "rv up's provisioner"}
	return provisioner.Update(cmd.Context())
}
