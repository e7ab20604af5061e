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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shellpool/shellpool/internal/catalog"
	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/internal/naming"
	"github.com/shellpool/shellpool/pkg/api"
)

// Exec hosts shells as local PTY children. It is deliberately a reliable
// implementation of an interface specified as unreliable: callers must not
// assume every host behaves this well.
type Exec struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	logger    *slog.Logger

	platform   api.Platform
	captureDir string
	profiles   map[string]api.ProfileDetail

	sessionsMu sync.Mutex
	sessions   map[api.HandleKey]*execSession

	opened *broadcaster[api.OpenedEvent]
	closed *broadcaster[api.ClosedEvent]

	shuttingDown atomic.Bool
}

type ExecOptions struct {
	// ProfilesFile points at the catalog YAML. Empty or missing files load
	// an empty catalog.
	ProfilesFile string

	// RunPath is where per-session capture files land. Empty disables
	// capture.
	RunPath string

	// Platform overrides the catalog bucket; defaults to the local one.
	Platform api.Platform
}

func NewExec(ctx context.Context, logger *slog.Logger, opts ExecOptions) (*Exec, error) {
	logger.DebugContext(ctx, "new exec host is being created", "profilesFile", opts.ProfilesFile)

	platform := opts.Platform
	if platform == "" {
		platform = api.PlatformForGOOS(runtime.GOOS)
	}

	profiles := map[string]api.ProfileDetail{}
	if opts.ProfilesFile != "" {
		doc, err := catalog.Load(opts.ProfilesFile)
		if err != nil {
			return nil, err
		}
		profiles = doc.Platforms.Bucket(platform)
	}

	var captureDir string
	if opts.RunPath != "" {
		captureDir = filepath.Join(opts.RunPath, "sessions")
		if err := os.MkdirAll(captureDir, 0o700); err != nil {
			logger.WarnContext(ctx, "could not create capture directory", "dir", captureDir, "err", err)
			captureDir = ""
		}
	}

	h := &Exec{
		logger:     logger,
		platform:   platform,
		captureDir: captureDir,
		profiles:   profiles,
		sessions:   make(map[api.HandleKey]*execSession),
		opened:     newBroadcaster[api.OpenedEvent](),
		closed:     newBroadcaster[api.ClosedEvent](),
	}
	h.ctx, h.ctxCancel = context.WithCancel(ctx)

	logger.InfoContext(ctx, "exec host created", "platform", platform, "profiles", len(profiles))
	return h, nil
}

func (h *Exec) CreateSession(ctx context.Context, launch api.LaunchSpec) (api.TerminalSession, error) {
	if h.shuttingDown.Load() {
		return nil, errdefs.ErrHostClosed
	}
	if launch.Path == "" {
		return nil, fmt.Errorf("%w: launch path is empty", errdefs.ErrInvalidInput)
	}

	s, err := newExecSession(h.ctx, h.logger, launch, h.captureDir, h.handleClosed)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		_ = s.teardown(err)
		return nil, err
	}

	h.sessionsMu.Lock()
	h.sessions[s.Key()] = s
	h.sessionsMu.Unlock()

	h.logger.InfoContext(ctx, "session opened", "key", s.Key(), "name", s.Name(), "path", s.LaunchPath())
	h.opened.publish(api.OpenedEvent{Name: s.Name(), Session: s, When: time.Now()})

	return s, nil
}

func (h *Exec) CreateSessionFromProfile(ctx context.Context, profileName string) (api.TerminalSession, error) {
	detail, ok := catalog.FindProfile(h.profiles, profileName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errdefs.ErrProfileNotFound, profileName)
	}

	launch := api.LaunchSpec{
		Name: profileName + "-" + naming.RandomName(),
		Path: detail.Path,
		Args: detail.Args,
	}
	return h.CreateSession(ctx, launch)
}

func (h *Exec) Profiles(_ context.Context) (map[string]api.ProfileDetail, error) {
	out := make(map[string]api.ProfileDetail, len(h.profiles))
	for name, detail := range h.profiles {
		out[name] = detail
	}
	return out, nil
}

func (h *Exec) SubscribeOpened() (<-chan api.OpenedEvent, func()) {
	return h.opened.subscribe()
}

func (h *Exec) SubscribeClosed() (<-chan api.ClosedEvent, func()) {
	return h.closed.subscribe()
}

// Close tears down every live session. Safe to call twice.
func (h *Exec) Close(ctx context.Context) error {
	if !h.shuttingDown.CompareAndSwap(false, true) {
		h.logger.WarnContext(ctx, "host shutdown already in progress, ignoring duplicate request")
		return nil
	}
	h.logger.InfoContext(ctx, "closing exec host")

	h.sessionsMu.Lock()
	live := make([]*execSession, 0, len(h.sessions))
	for _, s := range h.sessions {
		live = append(live, s)
	}
	h.sessionsMu.Unlock()

	var firstErr error
	for _, s := range live {
		if err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	h.opened.close()
	h.closed.close()
	h.ctxCancel()
	return firstErr
}

// handleClosed runs on each session's teardown path: prune the host map and
// tell subscribers.
func (h *Exec) handleClosed(key api.HandleKey) {
	h.sessionsMu.Lock()
	delete(h.sessions, key)
	h.sessionsMu.Unlock()

	h.logger.Info("session closed", "key", key)
	h.closed.publish(api.ClosedEvent{Key: key, When: time.Now()})
}
