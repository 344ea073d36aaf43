// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:                "exec -- COMMAND [ARGS...]",
	Short:              "Run a command interactively on the login node over the shared SSH connection",
	Args:               cobra.MinimumNArgs(1),
	DisableFlagParsing: true,
	RunE:               runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	code, err := conn.exec.ExecInteractive(ctx, args)
	if err != nil {
		return err
	}
	if code != 0 {
		return &remoteExitError{code: code}
	}
	return nil
}
