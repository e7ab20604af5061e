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

// Package shellkind classifies shell sessions from free-text profile names
// and launch paths. Classification is a fixed, ordered rule table; the first
// matching rule wins, so "wsl-ubuntu" is wsl, not ubuntu.
package shellkind

import (
	"strings"

	"github.com/shellpool/shellpool/pkg/api"
)

type rule struct {
	match func(haystack string) bool
	kind  api.ShellKind
}

func anyOf(keywords ...string) func(string) bool {
	return func(haystack string) bool {
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				return true
			}
		}
		return false
	}
}

func allOf(keywords ...string) func(string) bool {
	return func(haystack string) bool {
		for _, kw := range keywords {
			if !strings.Contains(haystack, kw) {
				return false
			}
		}
		return true
	}
}

// Order matters. PowerShell before cmd, git-bash before wsl, wsl before
// ubuntu, and bare bash only after the wsl/ubuntu rules so names like
// "WSL bash" or an ubuntu profile launching /bin/bash keep their kind.
//
//nolint:gochecknoglobals // rule table
var rules = []rule{
	{match: anyOf("powershell", "pwsh"), kind: api.ShellKindPowerShell},
	{match: anyOf("cmd"), kind: api.ShellKindCmd},
	{match: allOf("git", "bash"), kind: api.ShellKindBash},
	{match: anyOf("wsl"), kind: api.ShellKindWSL},
	{match: anyOf("ubuntu"), kind: api.ShellKindUbuntu},
	{match: anyOf("bash"), kind: api.ShellKindBash},
}

// Infer classifies a session from its profile name and launch path. Both
// inputs are optional; no match leaves the kind unknown.
func Infer(profileName, launchPath string) api.ShellKind {
	haystack := strings.ToLower(profileName + " " + launchPath)
	for _, r := range rules {
		if r.match(haystack) {
			return r.kind
		}
	}
	return api.ShellKindUnknown
}
