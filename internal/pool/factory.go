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
	"strings"
	"time"

	"github.com/shellpool/shellpool/internal/catalog"
	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/internal/naming"
	"github.com/shellpool/shellpool/internal/shellkind"
	"github.com/shellpool/shellpool/pkg/api"
	"golang.org/x/sync/singleflight"
)

// Factory creates sessions, either directly by shell kind or through the
// host's profile catalog. Profile creation races the host's unreliable
// creation call against the opened-event stream; kind creation coalesces
// concurrent requests for the same kind behind one shared flight so two
// callers never spawn two shells of the same kind at once.
type Factory struct {
	logger   *slog.Logger
	host     api.TerminalHost
	registry *Registry
	injector *Injector
	opts     Options

	flight singleflight.Group
}

// CreateOptions carries the optional metadata attached to a session at
// creation or refreshed on reuse.
type CreateOptions struct {
	Comment     string
	ProfileName string
}

func NewFactory(logger *slog.Logger, host api.TerminalHost, registry *Registry, injector *Injector, opts Options) *Factory {
	return &Factory{
		logger:   logger,
		host:     host,
		registry: registry,
		injector: injector,
		opts:     opts.withDefaults(),
	}
}

// GetOrCreateByShellKind returns the current session for kind, creating one
// when none is live. The reused flag tells the caller whether an existing
// session was handed back. On reuse the optional fields are refreshed,
// lastUsedAt bumped and the prompt metadata re-stamped; no host call is made.
func (f *Factory) GetOrCreateByShellKind(
	ctx context.Context,
	kind api.ShellKind,
	opts CreateOptions,
) (ManagedSession, bool, error) {
	if !kind.Known() {
		return ManagedSession{}, false, fmt.Errorf("%w: shell kind %q has no launch executable", errdefs.ErrInvalidInput, kind)
	}

	if s, ok := f.registry.GetByShellKind(kind); ok {
		return f.reuse(ctx, s.ID, opts)
	}

	created, err, shared := f.flight.Do(string(kind), func() (interface{}, error) {
		// A concurrent caller may have won the flight and registered
		// already; the flight key only serializes, it does not cache.
		if s, ok := f.registry.GetByShellKind(kind); ok {
			return s, nil
		}
		return f.createByKind(ctx, kind, opts)
	})
	if err != nil {
		return ManagedSession{}, false, err
	}

	s, ok := created.(ManagedSession)
	if !ok {
		return ManagedSession{}, false, fmt.Errorf("%w: unexpected flight result", errdefs.ErrSessionCreationFailed)
	}

	if shared {
		// Losers of the flight treat the winner's session as a reuse so
		// their own comment lands and the metadata reflects it.
		return f.reuse(ctx, s.ID, opts)
	}
	return s, false, nil
}

func (f *Factory) reuse(ctx context.Context, id api.SessionID, opts CreateOptions) (ManagedSession, bool, error) {
	s, err := f.registry.TouchReuse(id, opts.Comment, opts.ProfileName)
	if err != nil {
		return ManagedSession{}, false, err
	}
	f.logger.InfoContext(ctx, "reusing session", "id", s.ID, "kind", s.ShellKind)
	s.Handle.Reveal()
	f.injector.Apply(ctx, s)
	return s, true, nil
}

func (f *Factory) createByKind(ctx context.Context, kind api.ShellKind, opts CreateOptions) (ManagedSession, error) {
	launch, ok := shellkind.LaunchFor(kind)
	if !ok {
		return ManagedSession{}, fmt.Errorf("%w: shell kind %q has no launch executable", errdefs.ErrInvalidInput, kind)
	}

	f.logger.InfoContext(ctx, "creating session", "kind", kind, "path", launch.Path)
	handle, err := f.host.CreateSession(ctx, launch)
	if err != nil {
		return ManagedSession{}, fmt.Errorf("%w: %w", errdefs.ErrSessionCreationFailed, err)
	}

	return f.register(ctx, handle, kind, opts, true)
}

// OpenByProfile opens a fresh session from a named catalog profile. The
// host's creation call is unreliable, so a wait on the opened-event stream
// is armed before the call is issued and whichever side yields a handle
// first wins; the loser's subscription and timer are disposed.
func (f *Factory) OpenByProfile(ctx context.Context, name, comment string) (ManagedSession, error) {
	profiles, err := f.host.Profiles(ctx)
	if err != nil {
		return ManagedSession{}, fmt.Errorf("%w: %w", errdefs.ErrSessionCreationFailed, err)
	}

	// Validation only applies against a non-empty catalog: a host with no
	// catalog at all still gets the creation attempt.
	if len(profiles) > 0 {
		if _, ok := catalog.FindProfile(profiles, name); !ok {
			return ManagedSession{}, fmt.Errorf(
				"%w: %q; available profiles: %s",
				errdefs.ErrProfileNotFound, name, strings.Join(catalog.Names(profiles), ", "),
			)
		}
	}

	handle, err := f.raceCreate(ctx, name)
	if err != nil {
		return ManagedSession{}, err
	}

	kind := shellkind.Infer(name, handle.LaunchPath())
	f.logger.InfoContext(ctx, "profile session created",
		"profile", name, "kind", kind, "path", handle.LaunchPath())

	// Profile-based creation never claims the kind index: it must not
	// evict a session the caller addressed by kind.
	return f.register(ctx, handle, kind, CreateOptions{Comment: comment, ProfileName: name}, false)
}

// raceCreate runs the two competing creation paths. The subscription is
// armed first because a legitimate opened event can arrive before the
// creation call returns.
func (f *Factory) raceCreate(ctx context.Context, name string) (api.TerminalSession, error) {
	waitCtx, cancelWait := context.WithTimeout(ctx, f.opts.CreateTimeout)
	defer cancelWait()

	events, unsubscribe := f.host.SubscribeOpened()
	defer unsubscribe()

	fallback := make(chan api.TerminalSession, 1)
	go func() {
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if strings.Contains(ev.Name, name) {
					fallback <- ev.Session
					return
				}
			case <-waitCtx.Done():
				return
			}
		}
	}()

	handle, err := f.host.CreateSessionFromProfile(ctx, name)
	if err != nil {
		// An error return counts as "returned nothing": the session may
		// still have been created, so the event wait stays armed.
		f.logger.WarnContext(ctx, "profile creation call failed, awaiting opened event",
			"profile", name, "err", err)
		handle = nil
	}
	if handle != nil {
		return handle, nil
	}

	select {
	case h := <-fallback:
		return h, nil
	case <-waitCtx.Done():
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", errdefs.ErrSessionCreationFailed, ctxErr)
		}
		return nil, fmt.Errorf(
			"%w: no handle for profile %q within %s",
			errdefs.ErrSessionCreationFailed, name, f.opts.CreateTimeout,
		)
	}
}

func (f *Factory) register(
	ctx context.Context,
	handle api.TerminalSession,
	kind api.ShellKind,
	opts CreateOptions,
	trackKind bool,
) (ManagedSession, error) {
	now := time.Now()
	s := ManagedSession{
		ID:          api.SessionID(naming.NewSessionID()),
		ShellKind:   kind,
		ProfileName: opts.ProfileName,
		Comment:     opts.Comment,
		CreatedAt:   now,
		LastUsedAt:  now,
		Handle:      handle,
	}

	if err := f.registry.Insert(s, trackKind); err != nil {
		_ = handle.Close(ctx)
		return ManagedSession{}, err
	}

	f.logger.InfoContext(ctx, "session registered", "id", s.ID, "kind", s.ShellKind, "profile", s.ProfileName)
	handle.Reveal()
	f.injector.Apply(ctx, s)
	return s, nil
}
