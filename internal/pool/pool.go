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

// Package pool manages a pool of interactive shell sessions on behalf of a
// calling agent: creation through an unreliable host primitive, identity and
// metadata tracking, prompt metadata injection, command execution with
// best-effort exit status, and pruning on host disposal.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/pkg/api"
	"golang.org/x/sync/errgroup"
)

// Pool owns the registry, factory, executor and disposal watcher, and is the
// single object callers hold. It is constructed at startup, passed by
// reference to whoever needs it and disposed exactly once; there is no
// ambient global instance.
type Pool struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	logger    *slog.Logger
	host      api.TerminalHost

	registry *Registry
	injector *Injector
	factory  *Factory
	executor *Executor
	watcher  *Watcher

	group        *errgroup.Group
	started      atomic.Bool
	shuttingDown atomic.Bool
}

func New(ctx context.Context, logger *slog.Logger, host api.TerminalHost, opts Options) *Pool {
	opts = opts.withDefaults()
	logger.InfoContext(ctx, "new session pool is being created",
		"createTimeout", opts.CreateTimeout, "execTimeout", opts.ExecTimeout)

	registry := NewRegistry()
	injector := NewInjector(logger)

	p := &Pool{
		logger:   logger,
		host:     host,
		registry: registry,
		injector: injector,
		factory:  NewFactory(logger, host, registry, injector, opts),
		executor: NewExecutor(logger, registry, opts),
		watcher:  NewWatcher(logger, host, registry),
	}
	p.ctx, p.ctxCancel = context.WithCancel(ctx)
	p.group, p.ctx = errgroup.WithContext(p.ctx)
	return p
}

// Start launches the disposal watcher. Idempotent.
func (p *Pool) Start() error {
	if p.shuttingDown.Load() {
		return errdefs.ErrPoolClosed
	}
	if !p.started.CompareAndSwap(false, true) {
		return nil
	}
	p.group.Go(func() error {
		return p.watcher.Run(p.ctx)
	})
	return nil
}

/* Operations. The pool is a façade over its components so callers never
   reach into factory or executor directly. */

func (p *Pool) GetOrCreateByShellKind(
	ctx context.Context,
	kind api.ShellKind,
	opts CreateOptions,
) (ManagedSession, bool, error) {
	if p.shuttingDown.Load() {
		return ManagedSession{}, false, errdefs.ErrPoolClosed
	}
	return p.factory.GetOrCreateByShellKind(ctx, kind, opts)
}

func (p *Pool) OpenByProfile(ctx context.Context, name, comment string) (ManagedSession, error) {
	if p.shuttingDown.Load() {
		return ManagedSession{}, errdefs.ErrPoolClosed
	}
	return p.factory.OpenByProfile(ctx, name, comment)
}

func (p *Pool) Run(ctx context.Context, id api.SessionID, command, workingDir string) (api.ExecutionResult, error) {
	if p.shuttingDown.Load() {
		return api.ExecutionResult{}, errdefs.ErrPoolClosed
	}
	return p.executor.Run(ctx, id, command, workingDir)
}

func (p *Pool) ListSessions() []ManagedSession {
	return p.registry.ListAll()
}

func (p *Pool) GetSession(id api.SessionID) (ManagedSession, bool) {
	return p.registry.GetByID(id)
}

// UpdateComment mutates the comment, bumps lastUsedAt and re-stamps the
// prompt metadata so the shell's environment reflects the new value.
func (p *Pool) UpdateComment(ctx context.Context, id api.SessionID, text string) (ManagedSession, error) {
	s, err := p.registry.UpdateComment(id, text)
	if err != nil {
		return ManagedSession{}, err
	}
	p.injector.Apply(ctx, s)
	return s, nil
}

// CloseSession disposes one session explicitly: registry removal first, so
// no caller can grab the handle while it is going down.
func (p *Pool) CloseSession(ctx context.Context, id api.SessionID) error {
	s, found := p.registry.Remove(id)
	if !found {
		return fmt.Errorf("%w: %q", errdefs.ErrSessionNotFound, id)
	}
	if err := s.Handle.Close(ctx); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrOnClose, err)
	}
	p.logger.InfoContext(ctx, "session closed by request", "id", id)
	return nil
}

func (p *Pool) Profiles(ctx context.Context) (map[string]api.ProfileDetail, error) {
	return p.host.Profiles(ctx)
}

// Close tears the pool down: cancel pending executions, stop the watcher,
// dispose every live session and clear the registry. The second call is a
// no-op; the registry is empty after either.
func (p *Pool) Close(reason error) error {
	if !p.shuttingDown.CompareAndSwap(false, true) {
		p.logger.Info("pool shutdown already in progress, ignoring duplicate request", "reason", reason)
		return nil
	}
	p.logger.Info("closing session pool", "reason", reason)

	p.executor.CancelAll(errdefs.ErrPoolClosed)
	p.ctxCancel()

	var firstErr error
	for _, s := range p.registry.ListAll() {
		if _, found := p.registry.Remove(s.ID); !found {
			continue
		}
		if err := s.Handle.Close(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if p.started.Load() {
		if err := p.group.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrOnClose, firstErr)
	}
	return nil
}
