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

package agent

import (
	"fmt"
	"strings"

	"github.com/shellpool/shellpool/internal/pool"
	"github.com/shellpool/shellpool/pkg/api"
)

// renderOpened composes the reply line for a created or reused session.
// Every message carries the id and comment so the caller can address the
// session later.
func renderOpened(s pool.ManagedSession, reused bool) string {
	var b strings.Builder
	if reused {
		fmt.Fprintf(&b, "Reusing session %s", s.ID)
	} else {
		fmt.Fprintf(&b, "Opened session %s", s.ID)
	}
	if s.ShellKind.Known() {
		fmt.Fprintf(&b, " (%s)", s.ShellKind)
	}
	if s.ProfileName != "" {
		fmt.Fprintf(&b, " from profile %q", s.ProfileName)
	}
	if s.Comment != "" {
		fmt.Fprintf(&b, ", comment: %q", s.Comment)
	}
	return b.String()
}

// renderResult composes the reply line for one command run. An unverified
// result says so explicitly; the pool only inferred completion.
func renderResult(r api.ExecutionResult, s pool.ManagedSession) string {
	var b strings.Builder
	if r.Verified {
		fmt.Fprintf(&b, "Command finished with exit code %d on session %s", r.ExitCode, s.ID)
	} else {
		fmt.Fprintf(&b, "Command sent to session %s; the exit status could not be verified", s.ID)
	}
	if s.Comment != "" {
		fmt.Fprintf(&b, ", comment: %q", s.Comment)
	}
	return b.String()
}
