// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/blinklabs-io/taleledger/internal/config"
	"github.com/blinklabs-io/taleledger/internal/node"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func serveRun(cfg *config.Config) {
	logger := commonRun()
	logger.Debug("config loaded", "config", cfg, "component", programName)
	n, err := node.Open(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	if err := n.Run(signalCtx); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	logger.Info("shutdown complete", "component", programName)
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and metrics endpoint",
		Run: func(cmd *cobra.Command, args []string) {
			serveRun(mustConfig(cmd))
		},
	}
}
