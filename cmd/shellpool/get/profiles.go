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
	"runtime"

	"github.com/shellpool/shellpool/internal/catalog"
	"github.com/shellpool/shellpool/internal/env"
	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/internal/logging"
	"github.com/shellpool/shellpool/pkg/api"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	yamlout "go.yaml.in/yaml/v3"
)

const outputFormatProfilesInput = "shellpool.get.profiles.output"

// NewGetProfilesCmd lists the profile catalog for the local platform. Reads
// the catalog file directly; the daemon does not need to be running.
func NewGetProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "profiles",
		Aliases:      []string{"profile", "prof", "p"},
		Short:        "Get profiles",
		Long:         "List the profile catalog entries available on this platform.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, ok := cmd.Context().Value(logging.CtxLogger).(*slog.Logger)
			if !ok || logger == nil {
				return errdefs.ErrLoggerNotFound
			}

			profilesFile := viper.GetString(env.PROFILES_FILE.ViperKey)
			logger.Debug("get profiles command invoked", "profiles_file", profilesFile)

			doc, err := catalog.Load(profilesFile)
			if err != nil {
				logger.Debug("error loading profile catalog", "error", err)
				fmt.Fprintln(os.Stderr, "Could not load profile catalog")
				return err
			}

			platform := api.PlatformForGOOS(runtime.GOOS)
			bucket := doc.Platforms.Bucket(platform)

			switch format := viper.GetString(outputFormatProfilesInput); format {
			case "":
				return catalog.PrintProfilesTable(os.Stdout, platform, bucket)
			case "yaml":
				out, merr := yamlout.Marshal(doc)
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
	_ = viper.BindPFlag(outputFormatProfilesInput, cmd.Flags().Lookup("output"))

	_ = cmd.RegisterFlagCompletionFunc(
		"output",
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return []string{"yaml"}, cobra.ShellCompDirectiveNoFileComp
		},
	)
	return cmd
}
