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
	"testing"

	"github.com/shellpool/shellpool/pkg/api"
)

func Test_Infer(t *testing.T) {
	tests := []struct {
		name        string
		profileName string
		launchPath  string
		expected    api.ShellKind
	}{
		{
			name:        "powershell by profile name",
			profileName: "Windows PowerShell",
			expected:    api.ShellKindPowerShell,
		},
		{
			name:       "pwsh by path",
			launchPath: "/usr/local/bin/pwsh",
			expected:   api.ShellKindPowerShell,
		},
		{
			name:       "cmd by path",
			launchPath: `C:\Windows\System32\cmd.exe`,
			expected:   api.ShellKindCmd,
		},
		{
			name:        "git bash maps to bash",
			profileName: "Git Bash",
			launchPath:  `C:\Program Files\Git\bin\bash.exe`,
			expected:    api.ShellKindBash,
		},
		{
			name:        "wsl wins over ubuntu",
			profileName: "WSL Ubuntu-22.04",
			expected:    api.ShellKindWSL,
		},
		{
			name:        "wsl wins over bare bash",
			profileName: "WSL bash",
			expected:    api.ShellKindWSL,
		},
		{
			name:        "ubuntu wins over bash launch path",
			profileName: "Ubuntu",
			launchPath:  "/bin/bash",
			expected:    api.ShellKindUbuntu,
		},
		{
			name:       "plain bash path",
			launchPath: "/usr/bin/bash",
			expected:   api.ShellKindBash,
		},
		{
			name:        "ubuntu named",
			profileName: "Ubuntu",
			expected:    api.ShellKindUbuntu,
		},
		{
			name:        "case insensitive",
			profileName: "POWERSHELL 7",
			expected:    api.ShellKindPowerShell,
		},
		{
			name:        "powershell wins over cmd",
			profileName: "powershell",
			launchPath:  `C:\Windows\System32\cmd.exe`,
			expected:    api.ShellKindPowerShell,
		},
		{
			name:     "no inputs",
			expected: api.ShellKindUnknown,
		},
		{
			name:        "no match",
			profileName: "fish",
			launchPath:  "/usr/bin/fish",
			expected:    api.ShellKindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer(tt.profileName, tt.launchPath)
			if got != tt.expected {
				t.Errorf("Infer(%q, %q) = %v, want %v", tt.profileName, tt.launchPath, got, tt.expected)
			}
		})
	}
}

func Test_FlavorOf(t *testing.T) {
	tests := []struct {
		name       string
		kind       api.ShellKind
		launchPath string
		expected   Flavor
	}{
		{
			name:     "known powershell",
			kind:     api.ShellKindPowerShell,
			expected: FlavorPowerShell,
		},
		{
			name:     "known cmd",
			kind:     api.ShellKindCmd,
			expected: FlavorCmd,
		},
		{
			name:     "wsl uses bash syntax",
			kind:     api.ShellKindWSL,
			expected: FlavorBash,
		},
		{
			name:     "ubuntu uses bash syntax",
			kind:     api.ShellKindUbuntu,
			expected: FlavorBash,
		},
		{
			name:       "unknown kind falls back to path",
			kind:       api.ShellKindUnknown,
			launchPath: `C:\Windows\System32\WindowsPowerShell\v1.0\powershell.exe`,
			expected:   FlavorPowerShell,
		},
		{
			name:       "unknown kind cmd path",
			kind:       api.ShellKindUnknown,
			launchPath: `C:\Windows\System32\cmd.exe`,
			expected:   FlavorCmd,
		},
		{
			name:     "unknown everything defaults to bash",
			kind:     api.ShellKindUnknown,
			expected: FlavorBash,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlavorOf(tt.kind, tt.launchPath)
			if got != tt.expected {
				t.Errorf("FlavorOf(%v, %q) = %v, want %v", tt.kind, tt.launchPath, got, tt.expected)
			}
		})
	}
}
