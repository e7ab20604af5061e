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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shellpool/shellpool/cmd/shellpool/exec"
	"github.com/shellpool/shellpool/cmd/shellpool/get"
	"github.com/shellpool/shellpool/cmd/shellpool/serve"
	"github.com/shellpool/shellpool/cmd/shellpool/sessions"
	"github.com/shellpool/shellpool/cmd/shellpool/version"
	"github.com/shellpool/shellpool/internal/env"
	"github.com/shellpool/shellpool/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelInfo)
	handler := &logging.ReformatHandler{
		Inner:  slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar}),
		Writer: os.Stderr,
	}
	logger := slog.New(handler)

	ctx := context.WithValue(context.Background(), logging.CtxLogger, logger)
	ctx = context.WithValue(ctx, logging.CtxLevelVar, &levelVar)

	rootCmd := NewRootCmd()
	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shellpool",
		Short: "shellpool manages a pool of interactive shell sessions for agents",
		Long: `shellpool runs a daemon that owns a pool of interactive shell sessions
and lets a calling agent open, reuse, and address them by id, with
per-session working directory, shell kind and comment metadata.

Examples:
  shellpool serve
  shellpool get profiles
  shellpool get sessions
  shellpool exec --kind bash -- uname -a
  shellpool exec --profile "Bash" --cwd /tmp --comment "scratch" -- ls
  shellpool sessions close 4f1c...
`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := LoadConfig(); err != nil {
				fmt.Fprintln(os.Stderr, "Config error:", err)
				os.Exit(1)
			}

			levelVar, ok := cmd.Context().Value(logging.CtxLevelVar).(*slog.LevelVar)
			if ok && levelVar != nil {
				levelVar.Set(logging.ParseLevel(viper.GetString(env.LOG_LEVEL.ViperKey)))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	setupRootCmd(rootCmd)
	return rootCmd
}

func setupRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(serve.NewServeCmd())
	rootCmd.AddCommand(get.NewGetCmd())
	rootCmd.AddCommand(exec.NewExecCmd())
	rootCmd.AddCommand(sessions.NewSessionsCmd())
	rootCmd.AddCommand(version.NewVersionCmd())

	rootCmd.PersistentFlags().String("config", "", "config file (default is $HOME/.shellpool/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("run-path", "", "Run path directory")
	rootCmd.PersistentFlags().String("profiles-file", "", "Profile catalog YAML file")
	rootCmd.PersistentFlags().String("socket", "", "Daemon control socket path")

	if err := viper.BindPFlag(env.CONFIG_FILE.ViperKey, rootCmd.PersistentFlags().Lookup("config")); err != nil {
		slog.Warn("failed to bind flag", "flag", "config", "error", err)
	}
	if err := viper.BindPFlag(env.LOG_LEVEL.ViperKey, rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		slog.Warn("failed to bind flag", "flag", "log-level", "error", err)
	}
	if err := viper.BindPFlag(env.RUN_PATH.ViperKey, rootCmd.PersistentFlags().Lookup("run-path")); err != nil {
		slog.Warn("failed to bind flag", "flag", "run-path", "error", err)
	}
	if err := viper.BindPFlag(env.PROFILES_FILE.ViperKey, rootCmd.PersistentFlags().Lookup("profiles-file")); err != nil {
		slog.Warn("failed to bind flag", "flag", "profiles-file", "error", err)
	}
	if err := viper.BindPFlag(env.SOCKET.ViperKey, rootCmd.PersistentFlags().Lookup("socket")); err != nil {
		slog.Warn("failed to bind flag", "flag", "socket", "error", err)
	}
}

// LoadConfig resolves the config file, run path, profiles file and socket
// with viper → env → default precedence.
func LoadConfig() error {
	var configFile string
	if viper.GetString(env.CONFIG_FILE.ViperKey) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home dir: %w", err)
		}
		configPath := filepath.Join(home, ".shellpool")
		configFile = filepath.Join(configPath, "config.yaml")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configPath)
	}
	_ = env.CONFIG_FILE.BindEnv()
	if err := env.CONFIG_FILE.Set(configFile); err != nil {
		return fmt.Errorf("failed to set config file: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home dir: %w", err)
	}

	_ = env.RUN_PATH.BindEnv()
	env.RUN_PATH.SetDefault(filepath.Join(home, ".shellpool", "run"))

	_ = env.PROFILES_FILE.BindEnv()
	env.PROFILES_FILE.SetDefault(filepath.Join(home, ".shellpool", "profiles.yaml"))

	_ = env.SOCKET.BindEnv()
	env.SOCKET.SetDefault(filepath.Join(viper.GetString(env.RUN_PATH.ViperKey), "pool.sock"))

	_ = env.LOG_LEVEL.BindEnv()
	env.LOG_LEVEL.SetDefault("info")

	_ = env.LOG_FILE.BindEnv()

	if err := viper.ReadInConfig(); err != nil {
		// File not found is OK if ENV is set
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return err
		}
	}

	return nil
}
