// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rvcli/rv/internal/store"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage persisted environment variables forwarded into batch scripts",
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted environment variables",
	RunE:  runEnvList,
}

var envSetCmd = &cobra.Command{
	Use:   "set KEY=VALUE",
	Short: "Set one persisted environment variable",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnvSet,
}

var envUnsetCmd = &cobra.Command{
	Use:   "unset KEY",
	Short: "Remove one persisted environment variable",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnvUnset,
}

func init() {
	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envSetCmd)
	envCmd.AddCommand(envUnsetCmd)
}

func runEnvList(cmd *cobra.Command, args []string) error {
	vars, err := store.LoadEnv()
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(vars)
	}

	for k, v := range vars {
		fmt.Printf("%s=%s\n", k, v)
	}
	return nil
}

func runEnvSet(cmd *cobra.Command, args []string) error {
	key, value, ok := strings.Cut(args[0], "=")
	if !ok {
		return fmt.Errorf("expected KEY=VALUE, got %q", args[0])
	}
	return store.SetEnvVar(key, value)
}

func runEnvUnset(cmd *cobra.Command, args []string) error {
	return store.UnsetEnvVar(args[0])
}
