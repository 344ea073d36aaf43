// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rvcli/rv/internal/metrics"
)

var statusMetricsAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cluster node inventory, queue state, and fairshare",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090) instead of exiting")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if statusMetricsAddr != "" {
		return serveStatusMetrics(statusMetricsAddr)
	}

	state, err := conn.adapter.GetSystemState(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(state)
	}

	fmt.Printf("fairshare: %.4f\n", state.FairShare)
	fmt.Printf("running jobs: %d, pending jobs: %d\n", len(state.Running), len(state.Pending))
	fmt.Printf("%-15s %-10s %-20s %-8s\n", "NODE", "STATE", "GRES", "GPUS FREE")
	for _, n := range state.Nodes {
		fmt.Printf("%-15s %-10s %-20s %-8d\n", n.Name, n.State, n.GRES, n.GPUsFree)
	}
	return nil
}

// serveStatusMetrics blocks serving /metrics from a fresh Prometheus
// registry holding rv's collectors until the process is killed; rv status is the
// only command that wires internal/metrics to an HTTP listener, since
// the allocator and tailer otherwise run as one-shot CLI invocations
// with nothing long-lived to scrape.
func serveStatusMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	metrics.NewRegistry(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))

	fmt.Println("serving metrics on", addr)
	return http.ListenAndServe(addr, mux)
}
