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

package host

import (
	"context"

	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/pkg/api"
)

// HostTest is a TerminalHost fake. Behavior is supplied per test through
// the Func fields; events are emitted explicitly via EmitOpened/EmitClosed.
type HostTest struct {
	CreateSessionFunc            func(ctx context.Context, launch api.LaunchSpec) (api.TerminalSession, error)
	CreateSessionFromProfileFunc func(ctx context.Context, profileName string) (api.TerminalSession, error)
	ProfilesFunc                 func(ctx context.Context) (map[string]api.ProfileDetail, error)
	CloseFunc                    func(ctx context.Context) error

	opened *broadcaster[api.OpenedEvent]
	closed *broadcaster[api.ClosedEvent]
}

func NewHostTest() *HostTest {
	return &HostTest{
		opened: newBroadcaster[api.OpenedEvent](),
		closed: newBroadcaster[api.ClosedEvent](),
	}
}

func (h *HostTest) CreateSession(ctx context.Context, launch api.LaunchSpec) (api.TerminalSession, error) {
	if h.CreateSessionFunc != nil {
		return h.CreateSessionFunc(ctx, launch)
	}
	return nil, errdefs.ErrFuncNotSet
}

func (h *HostTest) CreateSessionFromProfile(ctx context.Context, profileName string) (api.TerminalSession, error) {
	if h.CreateSessionFromProfileFunc != nil {
		return h.CreateSessionFromProfileFunc(ctx, profileName)
	}
	return nil, errdefs.ErrFuncNotSet
}

func (h *HostTest) Profiles(ctx context.Context) (map[string]api.ProfileDetail, error) {
	if h.ProfilesFunc != nil {
		return h.ProfilesFunc(ctx)
	}
	return map[string]api.ProfileDetail{}, nil
}

func (h *HostTest) SubscribeOpened() (<-chan api.OpenedEvent, func()) {
	return h.opened.subscribe()
}

func (h *HostTest) SubscribeClosed() (<-chan api.ClosedEvent, func()) {
	return h.closed.subscribe()
}

func (h *HostTest) Close(ctx context.Context) error {
	h.opened.close()
	h.closed.close()
	if h.CloseFunc != nil {
		return h.CloseFunc(ctx)
	}
	return nil
}

// EmitOpened pushes an opened event to current subscribers.
func (h *HostTest) EmitOpened(ev api.OpenedEvent) { h.opened.publish(ev) }

// EmitClosed pushes a closed event to current subscribers.
func (h *HostTest) EmitClosed(ev api.ClosedEvent) { h.closed.publish(ev) }

// SessionTest is a TerminalSession fake. Identity comes from the plain
// fields; behavior from the Func fields.
type SessionTest struct {
	HandleKey   api.HandleKey
	SessionName string
	Path        string

	SendTextFunc func(ctx context.Context, text string) error
	ExecuteFunc  func(ctx context.Context, command string) (<-chan api.CommandCompletion, error)
	RevealFunc   func()
	AliveFunc    func() bool
	CloseFunc    func(ctx context.Context) error
}

func (s *SessionTest) Key() api.HandleKey { return s.HandleKey }
func (s *SessionTest) Name() string       { return s.SessionName }
func (s *SessionTest) LaunchPath() string { return s.Path }

func (s *SessionTest) SendText(ctx context.Context, text string) error {
	if s.SendTextFunc != nil {
		return s.SendTextFunc(ctx, text)
	}
	return nil
}

// Execute defaults to "no structured signaling" so tests exercise the
// optimistic fallback unless they opt in.
func (s *SessionTest) Execute(ctx context.Context, command string) (<-chan api.CommandCompletion, error) {
	if s.ExecuteFunc != nil {
		return s.ExecuteFunc(ctx, command)
	}
	return nil, api.ErrNoCompletionSignal
}

func (s *SessionTest) Reveal() {
	if s.RevealFunc != nil {
		s.RevealFunc()
	}
}

func (s *SessionTest) Alive() bool {
	if s.AliveFunc != nil {
		return s.AliveFunc()
	}
	return true
}

func (s *SessionTest) Close(ctx context.Context) error {
	if s.CloseFunc != nil {
		return s.CloseFunc(ctx)
	}
	return nil
}
