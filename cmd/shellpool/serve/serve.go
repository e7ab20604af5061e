// Copyright 2025 The shellpool Authors
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
//
// SPDX-License-Identifier: Apache-2.0

package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shellpool/shellpool/internal/agent"
	"github.com/shellpool/shellpool/internal/env"
	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/internal/host"
	"github.com/shellpool/shellpool/internal/logging"
	"github.com/shellpool/shellpool/internal/pool"
	"github.com/shellpool/shellpool/internal/pool/poolrpc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Command      string = "serve"
	CommandAlias string = "s"
)

func NewServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:     Command,
		Aliases: []string{CommandAlias},
		Short:   "Run the shellpool daemon",
		Long: `Run the shellpool daemon: a local terminal host plus the session pool,
exposed to agents over a unix control socket.

Examples:
  shellpool serve
  shellpool serve --socket /tmp/pool.sock --profiles-file ./profiles.yaml
  shellpool serve --log-level debug --log-file /tmp/shellpool.log
`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logfile := viper.GetString(env.LOG_FILE.ViperKey)
			if logfile != "" {
				if err := logging.SetupFileLogger(cmd, logfile, viper.GetString(env.LOG_LEVEL.ViperKey)); err != nil {
					return err
				}
			}

			logger, ok := cmd.Context().Value(logging.CtxLogger).(*slog.Logger)
			if !ok || logger == nil {
				return errdefs.ErrLoggerNotFound
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runDaemon(ctx, logger)
		},
	}

	setupServeCmdFlags(serveCmd)
	return serveCmd
}

func setupServeCmdFlags(serveCmd *cobra.Command) {
	serveCmd.Flags().String("log-file", "", "Optional log file for the daemon")
	_ = viper.BindPFlag(env.LOG_FILE.ViperKey, serveCmd.Flags().Lookup("log-file"))
}

// runDaemon wires host, pool, agent and RPC server and blocks until the
// context is cancelled or the RPC server dies.
func runDaemon(ctx context.Context, logger *slog.Logger) error {
	runPath := viper.GetString(env.RUN_PATH.ViperKey)
	if err := os.MkdirAll(runPath, 0o700); err != nil {
		return fmt.Errorf("cannot create run path %q: %w", runPath, err)
	}

	terminalHost, err := host.NewExec(ctx, logger, host.ExecOptions{
		ProfilesFile: viper.GetString(env.PROFILES_FILE.ViperKey),
		RunPath:      runPath,
	})
	if err != nil {
		return err
	}

	sessionPool := pool.New(ctx, logger, terminalHost, pool.Options{})
	if err := sessionPool.Start(); err != nil {
		_ = terminalHost.Close(ctx)
		return err
	}

	service := agent.NewService(logger, sessionPool)
	adapter := &poolrpc.PoolAgentRPC{Ctx: ctx, Core: service}
	server := poolrpc.NewServer(logger, viper.GetString(env.SOCKET.ViperKey))

	if err := server.OpenSocket(ctx); err != nil {
		_ = sessionPool.Close(err)
		_ = terminalHost.Close(ctx)
		return err
	}

	rpcReadyCh := make(chan error)
	rpcDoneCh := make(chan error)
	go server.Serve(ctx, adapter, rpcReadyCh, rpcDoneCh)

	if err := <-rpcReadyCh; err != nil {
		_ = sessionPool.Close(err)
		_ = terminalHost.Close(ctx)
		return fmt.Errorf("%w: %w", errdefs.ErrStartRPCServer, err)
	}

	logger.InfoContext(ctx, "shellpool daemon ready",
		"socket", viper.GetString(env.SOCKET.ViperKey), "run_path", runPath)

	var exitErr error
	select {
	case <-ctx.Done():
		logger.WarnContext(ctx, "shutdown signal received")
	case err := <-rpcDoneCh:
		if err != nil {
			logger.ErrorContext(ctx, "rpc server exited", "error", err)
			exitErr = fmt.Errorf("%w: %w", errdefs.ErrRPCServerExited, err)
		}
	}

	if err := sessionPool.Close(exitErr); err != nil {
		logger.ErrorContext(ctx, "error closing pool", "error", err)
	}
	if err := terminalHost.Close(context.Background()); err != nil {
		logger.ErrorContext(ctx, "error closing host", "error", err)
	}

	logger.Info("shellpool daemon stopped")
	return exitErr
}
