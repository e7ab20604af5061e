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

package exec

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shellpool/shellpool/internal/env"
	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/internal/logging"
	"github.com/shellpool/shellpool/pkg/api"
	"github.com/shellpool/shellpool/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

const (
	Command      string = "exec"
	CommandAlias string = "x"
)

func NewExecCmd() *cobra.Command {
	execCmd := &cobra.Command{
		Use:     Command + " [flags] -- COMMAND [ARG...]",
		Aliases: []string{CommandAlias},
		Short:   "Execute a command on a pooled session",
		Long: `Execute a command on a pooled session, opening or reusing one first.

Exactly one of --kind, --profile or --session selects the target:
  --kind     reuses the current session of that shell kind, creating it if needed
  --profile  always opens a fresh session from the named catalog profile
  --session  addresses an already-open session by id

Examples:
  shellpool exec --kind bash -- uname -a
  shellpool exec --profile "Bash" --cwd /tmp --comment "scratch" -- ls -la
  shellpool exec --session 4f1c... -- make test
`,
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, ok := cmd.Context().Value(logging.CtxLogger).(*slog.Logger)
			if !ok || logger == nil {
				return errdefs.ErrLoggerNotFound
			}
			return runExec(cmd, logger, strings.Join(args, " "))
		},
	}

	setupExecCmdFlags(execCmd)
	return execCmd
}

func setupExecCmdFlags(execCmd *cobra.Command) {
	execCmd.Flags().String("kind", "", "Shell kind: powershell|cmd|bash|wsl|ubuntu")
	execCmd.Flags().String("profile", "", "Catalog profile name")
	execCmd.Flags().String("session", "", "Existing session id")
	execCmd.Flags().String("cwd", "", "Working directory for the command")
	execCmd.Flags().String("comment", "", "Comment attached to the session")

	_ = viper.BindPFlag("shellpool.exec.kind", execCmd.Flags().Lookup("kind"))
	_ = viper.BindPFlag("shellpool.exec.profile", execCmd.Flags().Lookup("profile"))
	_ = viper.BindPFlag("shellpool.exec.session", execCmd.Flags().Lookup("session"))
	_ = viper.BindPFlag("shellpool.exec.cwd", execCmd.Flags().Lookup("cwd"))
	_ = viper.BindPFlag("shellpool.exec.comment", execCmd.Flags().Lookup("comment"))
}

//nolint:gocognit // sequential command flow
func runExec(cmd *cobra.Command, logger *slog.Logger, command string) error {
	kind := viper.GetString("shellpool.exec.kind")
	profile := viper.GetString("shellpool.exec.profile")
	sessionID := viper.GetString("shellpool.exec.session")

	selectors := 0
	for _, sel := range []string{kind, profile, sessionID} {
		if sel != "" {
			selectors++
		}
	}
	if selectors != 1 {
		return fmt.Errorf("%w: exactly one of --kind, --profile or --session is required", errdefs.ErrInvalidFlag)
	}

	socket := viper.GetString(env.SOCKET.ViperKey)
	logger.Debug("exec command invoked",
		"socket", socket, "kind", kind, "profile", profile, "session", sessionID, "command", command)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		logger.Debug("flag value", "name", f.Name, "value", f.Value.String())
	})

	pool, err := client.Dial(socket, 0)
	if err != nil {
		return err
	}
	defer pool.Close()

	if sessionID == "" {
		opened, openErr := pool.OpenSession(&api.OpenSessionArgs{
			Kind:    kind,
			Profile: profile,
			Comment: viper.GetString("shellpool.exec.comment"),
		})
		if openErr != nil {
			return openErr
		}
		printMessage(opened.Message)
		sessionID = string(opened.Session.ID)
	}

	reply, err := pool.RunCommand(&api.RunCommandArgs{
		SessionID:  sessionID,
		Command:    command,
		WorkingDir: viper.GetString("shellpool.exec.cwd"),
	})
	if err != nil {
		return err
	}
	printMessage(reply.Message)

	// Mirror a verified non-zero exit status so scripts can chain on it.
	if reply.Result.Verified && reply.Result.ExitCode != 0 {
		return fmt.Errorf("command exited with code %d", reply.Result.ExitCode)
	}
	return nil
}

// printMessage renders to stdout, with a marker prefix only when a human is
// watching on a terminal.
func printMessage(msg string) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stdout, "> "+msg)
		return
	}
	fmt.Fprintln(os.Stdout, msg)
}
