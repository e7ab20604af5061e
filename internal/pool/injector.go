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

package pool

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shellpool/shellpool/internal/env"
	"github.com/shellpool/shellpool/internal/shellkind"
)

// Injector stamps a session's id and comment into its environment so that
// prompt-rendering tooling inside the shell can display them. It must run
// after every creation, reuse and comment update; the variables always
// reflect the registry's current view of the session.
type Injector struct {
	logger *slog.Logger
}

func NewInjector(logger *slog.Logger) *Injector {
	return &Injector{logger: logger}
}

// Apply emits the two assignment instructions into the session. Injection is
// fire and forget: send failures are logged, never surfaced, so a wedged
// shell cannot fail the operation that triggered the re-stamp.
func (i *Injector) Apply(ctx context.Context, s ManagedSession) {
	flavor := shellkind.FlavorOf(s.ShellKind, s.Handle.LaunchPath())

	for _, instruction := range metadataAssignments(flavor, string(s.ID), s.Comment) {
		if err := s.Handle.SendText(ctx, instruction); err != nil {
			i.logger.WarnContext(ctx, "could not inject prompt metadata",
				"id", s.ID, "flavor", flavor.String(), "err", err)
		}
	}
}

// metadataAssignments composes the flavor-specific variable assignments for
// the identifier and comment variables.
func metadataAssignments(flavor shellkind.Flavor, id, comment string) []string {
	pairs := []struct {
		key   string
		value string
	}{
		{env.SESSION_ID.Key, escapeMetaValue(id)},
		{env.SESSION_COMMENT.Key, escapeMetaValue(comment)},
	}

	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		switch flavor {
		case shellkind.FlavorPowerShell:
			out = append(out, fmt.Sprintf(`$env:%s = "%s"`, p.key, p.value))
		case shellkind.FlavorCmd:
			out = append(out, fmt.Sprintf(`set "%s=%s"`, p.key, p.value))
		case shellkind.FlavorBash:
			out = append(out, fmt.Sprintf(`export %s="%s"`, p.key, p.value))
		}
	}
	return out
}

var lineBreakRun = regexp.MustCompile(`[\r\n]+`)

// escapeMetaValue makes a freeform value safe to embed inside a quoted shell
// assignment. Backslashes and quotes are escaped; line break runs collapse
// to a single space so a multi-line comment cannot smuggle extra commands
// into the session.
func escapeMetaValue(v string) string {
	v = lineBreakRun.ReplaceAllString(v, " ")
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}
