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

package get

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shellpool/shellpool/internal/env"
	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/internal/logging"
	"github.com/shellpool/shellpool/pkg/api"
	"github.com/shellpool/shellpool/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	yamlout "go.yaml.in/yaml/v3"
)

const outputFormatSessionsInput = "shellpool.get.sessions.output"

// NewGetSessionsCmd lists the live sessions of a running daemon.
func NewGetSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sessions",
		Aliases:      []string{"session", "sess", "s"},
		Short:        "Get sessions",
		Long:         "List the sessions currently held by the shellpool daemon.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, ok := cmd.Context().Value(logging.CtxLogger).(*slog.Logger)
			if !ok || logger == nil {
				return errdefs.ErrLoggerNotFound
			}

			socket := viper.GetString(env.SOCKET.ViperKey)
			logger.Debug("get sessions command invoked", "socket", socket)

			pool, err := client.Dial(socket, 0)
			if err != nil {
				return err
			}
			defer pool.Close()

			reply, err := pool.ListSessions()
			if err != nil {
				return err
			}

			switch format := viper.GetString(outputFormatSessionsInput); format {
			case "":
				return printSessionsTable(reply)
			case "yaml":
				out, merr := yamlout.Marshal(reply.Sessions)
				if merr != nil {
					return merr
				}
				fmt.Fprint(os.Stdout, string(out))
				return nil
			default:
				return fmt.Errorf("%w: unsupported output format %q", errdefs.ErrInvalidFlag, format)
			}
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output format: yaml (default: human-readable)")
	_ = viper.BindPFlag(outputFormatSessionsInput, cmd.Flags().Lookup("output"))
	return cmd
}

func printSessionsTable(reply *api.ListSessionsReply) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if len(reply.Sessions) == 0 {
		fmt.Fprintln(tw, "no sessions found")
		return tw.Flush()
	}

	fmt.Fprintln(tw, "ID\tKIND\tPROFILE\tCOMMENT\tCREATED\tLAST USED")
	for _, s := range reply.Sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			s.ShellKind,
			s.ProfileName,
			s.Comment,
			s.CreatedAt.Format(time.RFC3339),
			s.LastUsedAt.Format(time.RFC3339),
		)
	}
	return tw.Flush()
}
