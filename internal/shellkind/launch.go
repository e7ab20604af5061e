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

package shellkind

import "github.com/shellpool/shellpool/pkg/api"

// launchTable maps each concrete shell kind onto the fixed executable used
// for direct (non-profile) creation. The host resolves the name through its
// own PATH; no absolute paths here.
//
//nolint:gochecknoglobals // launch table
var launchTable = map[api.ShellKind]api.LaunchSpec{
	api.ShellKindPowerShell: {Name: "powershell", Path: "powershell.exe"},
	api.ShellKindCmd:        {Name: "cmd", Path: "cmd.exe"},
	api.ShellKindBash:       {Name: "bash", Path: "bash", Args: []string{"-i"}},
	api.ShellKindWSL:        {Name: "wsl", Path: "wsl.exe"},
	api.ShellKindUbuntu:     {Name: "ubuntu", Path: "ubuntu.exe"},
}

// LaunchFor returns the direct-creation launch spec for kind. Unknown kinds
// have no fixed executable and report false.
func LaunchFor(kind api.ShellKind) (api.LaunchSpec, bool) {
	spec, ok := launchTable[kind]
	return spec, ok
}
