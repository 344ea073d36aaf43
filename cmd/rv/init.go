// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

var (
	initHost string
	initUser string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap config.toml for a cluster account (provisioning collaborator, not part of this engine)",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initHost, "host", "", "cluster login node hostname")
	initCmd.Flags().StringVar(&initUser, "user", "", "cluster username")
}

func runInit(cmd *cobra.Command, args []string) error {
	var provisioner SetupProvisioner = unimplementedCollaborator{name: "rv init's provisioner"}
	return provisioner.Provision(cmd.Context(), initHost, initUser)
}
