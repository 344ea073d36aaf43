// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

var sshCmd = &cobra.Command{
	Use:                "ssh [-- COMMAND [ARGS...]]",
	Short:              "Open an interactive shell on the login node, or run one command",
	DisableFlagParsing: true,
	RunE:               runSSH,
}

func runSSH(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	argv := args
	if len(argv) == 0 {
		argv = []string{"$SHELL", "-l"}
	}

	code, err := conn.exec.ExecInteractive(ctx, argv)
	if err != nil {
		return err
	}
	if code != 0 {
		return &remoteExitError{code: code}
	}
	return nil
}
