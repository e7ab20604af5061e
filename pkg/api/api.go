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

package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoCompletionSignal marks hosts that cannot report structured command
// completion for a session. Executors fall back to optimistic settling.
var ErrNoCompletionSignal = errors.New("host does not signal command completion")

// SessionID is the opaque token the pool hands to callers. Assigned at
// registration, immutable afterwards.
type SessionID string

// HandleKey identifies a host-side session handle. The pool keeps a reverse
// HandleKey->SessionID association so closed notifications can be resolved
// back to pool entries.
type HandleKey string

// ShellKind is the coarse classification of a session's command interpreter.
type ShellKind string

const (
	ShellKindPowerShell ShellKind = "powershell"
	ShellKindCmd        ShellKind = "cmd"
	ShellKindBash       ShellKind = "bash"
	ShellKindWSL        ShellKind = "wsl"
	ShellKindUbuntu     ShellKind = "ubuntu"
	ShellKindUnknown    ShellKind = "unknown"
)

// ParseShellKind maps caller input onto a known ShellKind. The empty string
// is not a kind; callers with no preference should open by profile instead.
func ParseShellKind(s string) (ShellKind, error) {
	k := ShellKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case ShellKindPowerShell, ShellKindCmd, ShellKindBash, ShellKindWSL, ShellKindUbuntu, ShellKindUnknown:
		return k, nil
	default:
		return ShellKindUnknown, fmt.Errorf("unknown shell kind %q", s)
	}
}

// Known reports whether k names a concrete interpreter family.
func (k ShellKind) Known() bool {
	return k != ShellKindUnknown && k != ""
}

// SessionInfo is the caller-visible snapshot of a managed session. The
// underlying host handle never leaves the pool.
type SessionInfo struct {
	ID          SessionID `json:"id"`
	ShellKind   ShellKind `json:"shellKind"`
	ProfileName string    `json:"profileName,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUsedAt  time.Time `json:"lastUsedAt"`
}

// ExecutionResult reports the outcome of one command run against a session.
// Verified is false when the host could not report completion and the pool
// resolved optimistically after the fallback settle delay.
type ExecutionResult struct {
	ExecutionID string    `json:"executionId"`
	SessionID   SessionID `json:"sessionId"`
	ExitCode    int       `json:"exitCode"`
	Verified    bool      `json:"verified"`
}

// CommandCompletion is delivered on a host completion channel once the
// submission it belongs to has finished. A nil ExitCode means the host did
// not report one; the pool then assumes 0.
type CommandCompletion struct {
	ExitCode *int
	When     time.Time
}

// OpenedEvent announces a session the host has just opened. Name is the
// host-side session name; profile-based creation matches on it.
type OpenedEvent struct {
	Name    string
	Session TerminalSession
	When    time.Time
}

// ClosedEvent announces that the host disposed a session.
type ClosedEvent struct {
	Key  HandleKey
	When time.Time
}

// LaunchSpec describes a direct (non-profile) session launch.
type LaunchSpec struct {
	Name string
	Path string
	Args []string
}

// ProfileDetail is the catalog's descriptive entry for one profile name.
type ProfileDetail struct {
	Path string   `json:"path"           yaml:"path"`
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	Icon string   `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// TerminalSession is the host-side handle for one interactive shell. The
// owning registry entry holds it exclusively.
type TerminalSession interface {
	Key() HandleKey
	Name() string
	LaunchPath() string

	// SendText pushes a raw instruction into the session with no
	// acknowledgement. Used for directory changes and metadata injection.
	SendText(ctx context.Context, text string) error

	// Execute submits a command through the host's structured completion
	// signaling and returns a channel that yields exactly one completion
	// for this submission. Hosts without that capability return
	// ErrNoCompletionSignal.
	Execute(ctx context.Context, command string) (<-chan CommandCompletion, error)

	// Reveal surfaces the session to the user, when the host has a notion
	// of foreground at all.
	Reveal()

	Alive() bool
	Close(ctx context.Context) error
}

// TerminalHost is the external collaborator that creates shells, reports
// their lifecycle, and carries per-session instruction channels.
type TerminalHost interface {
	// CreateSession launches a session directly from an executable spec.
	CreateSession(ctx context.Context, launch LaunchSpec) (TerminalSession, error)

	// CreateSessionFromProfile asks the host to open a session for a
	// catalog profile. Unreliable by design: it may return a usable handle,
	// or nothing even though a session was in fact created. Callers must
	// race it against the opened-event stream.
	CreateSessionFromProfile(ctx context.Context, profileName string) (TerminalSession, error)

	// Profiles returns the catalog bucket for the host's platform.
	Profiles(ctx context.Context) (map[string]ProfileDetail, error)

	// SubscribeOpened and SubscribeClosed register an event subscription
	// and return its channel plus a cancel func that disposes it. Cancel
	// is idempotent.
	SubscribeOpened() (<-chan OpenedEvent, func())
	SubscribeClosed() (<-chan ClosedEvent, func())

	Close(ctx context.Context) error
}
