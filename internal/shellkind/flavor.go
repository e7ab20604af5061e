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

import (
	"strings"

	"github.com/shellpool/shellpool/pkg/api"
)

// Flavor picks the syntax family used when composing instructions for a
// session: assignment operators and quoting differ across the three.
type Flavor int

const (
	FlavorBash Flavor = iota
	FlavorPowerShell
	FlavorCmd
)

func (f Flavor) String() string {
	switch f {
	case FlavorPowerShell:
		return "powershell"
	case FlavorCmd:
		return "cmd"
	case FlavorBash:
		return "bash"
	default:
		return "bash"
	}
}

// FlavorOf resolves the instruction syntax for a session. A known kind
// decides directly; otherwise the launch path is matched heuristically and
// bash syntax is the default.
func FlavorOf(kind api.ShellKind, launchPath string) Flavor {
	switch kind {
	case api.ShellKindPowerShell:
		return FlavorPowerShell
	case api.ShellKindCmd:
		return FlavorCmd
	case api.ShellKindBash, api.ShellKindWSL, api.ShellKindUbuntu:
		return FlavorBash
	}

	p := strings.ToLower(launchPath)
	switch {
	case strings.Contains(p, "powershell"), strings.Contains(p, "pwsh"):
		return FlavorPowerShell
	case strings.Contains(p, "cmd"):
		return FlavorCmd
	default:
		return FlavorBash
	}
}
