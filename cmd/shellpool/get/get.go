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
	"github.com/spf13/cobra"
)

const (
	Command      string = "get"
	CommandAlias string = "g"
)

func NewGetCmd() *cobra.Command {
	getCmd := &cobra.Command{
		Use:          Command,
		Aliases:      []string{CommandAlias},
		Short:        "Get shellpool resources",
		Long:         "Get profiles and sessions from the shellpool environment.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	getCmd.AddCommand(NewGetProfilesCmd())
	getCmd.AddCommand(NewGetSessionsCmd())
	return getCmd
}
