// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os/user"

	"github.com/rvcli/rv/internal/remoteexec"
	"github.com/rvcli/rv/internal/scheduler"
	"github.com/rvcli/rv/pkg/config"
	"github.com/rvcli/rv/pkg/logging"
)

// connection bundles the adapter every in-scope command dials against,
// plus the parsed local config it was built from.
type connection struct {
	cfg     *config.Config
	exec    *remoteexec.Executor
	adapter *scheduler.Adapter
}

// connect loads ~/.rv/config.toml and dials the cluster login node. It is
// the rv-domain analogue of the teacher CLI's createClient().
func connect(ctx context.Context) (*connection, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var logger logging.Logger = logging.NoOpLogger{}
	if debug {
		logger = logging.NewLogger(logging.DefaultConfig())
	}

	execCfg := remoteexec.Config{Hostname: cfg.Connection.Hostname, User: cfg.Connection.User}
	exec, err := remoteexec.NewExecutor(ctx, execCfg, logger)
	if err != nil {
		return nil, err
	}

	account := cfg.Defaults.Account
	clusterUser := cfg.Connection.User
	if clusterUser == "" {
		if u, err := user.Current(); err == nil {
			clusterUser = u.Username
		}
	}

	return &connection{
		cfg:     cfg,
		exec:    exec,
		adapter: scheduler.NewAdapter(exec, clusterUser, account),
	}, nil
}

func (c *connection) Close() error {
	return c.exec.Close()
}
