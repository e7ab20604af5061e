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

package sessions

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
	"github.com/spf13/viper"
)

func NewSessionsCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "comment ID TEXT...",
		Short:        "Update a session's comment",
		Long:         "Update a session's comment; the change is re-stamped into the shell's environment.",
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, ok := cmd.Context().Value(logging.CtxLogger).(*slog.Logger)
			if !ok || logger == nil {
				return errdefs.ErrLoggerNotFound
			}

			socket := viper.GetString(env.SOCKET.ViperKey)
			logger.Debug("sessions comment command invoked", "socket", socket, "id", args[0])

			pool, err := client.Dial(socket, 0)
			if err != nil {
				return err
			}
			defer pool.Close()

			reply, err := pool.UpdateComment(&api.UpdateCommentArgs{
				SessionID: args[0],
				Comment:   strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, reply.Message)
			return nil
		},
	}
}
