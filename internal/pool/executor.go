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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/internal/naming"
	"github.com/shellpool/shellpool/internal/shellkind"
	"github.com/shellpool/shellpool/pkg/api"
)

// Executor runs commands against pooled sessions. Completion resolves
// through the host's structured signaling when the session supports it;
// otherwise the command is fired blind and resolved optimistically after a
// settle delay, with the result marked unverified. Every in-flight run is
// tracked as a pending execution so pool teardown can cancel it.
type Executor struct {
	logger   *slog.Logger
	registry *Registry
	opts     Options

	pendingMu sync.Mutex
	pending   map[string]*pendingExecution
}

// pendingExecution is the ephemeral record of one in-flight command: it
// exists only between submission and resolution.
type pendingExecution struct {
	id        string
	sessionID api.SessionID
	cancel    context.CancelCauseFunc
}

func NewExecutor(logger *slog.Logger, registry *Registry, opts Options) *Executor {
	return &Executor{
		logger:   logger,
		registry: registry,
		opts:     opts.withDefaults(),
		pending:  make(map[string]*pendingExecution),
	}
}

// Run executes command against the session id. Cancellation is honored at
// every suspension point: the settle delays, the completion wait and the
// overall timer all watch ctx.
func (e *Executor) Run(ctx context.Context, id api.SessionID, command, workingDir string) (api.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return api.ExecutionResult{}, fmt.Errorf("%w: %w", errdefs.ErrExecutionCancelled, err)
	}

	s, ok := e.registry.GetByID(id)
	if !ok {
		return api.ExecutionResult{}, fmt.Errorf("%w: %q", errdefs.ErrSessionNotFound, id)
	}
	if _, err := e.registry.TouchReuse(id, "", ""); err != nil {
		return api.ExecutionResult{}, err
	}

	flavor := shellkind.FlavorOf(s.ShellKind, s.Handle.LaunchPath())

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	execID := naming.NewExecutionID()
	p := &pendingExecution{id: execID, sessionID: id, cancel: cancel}
	e.track(p)
	defer e.untrack(p)

	// The overall timer covers everything from here on, including the
	// directory-change settle.
	overall := time.NewTimer(e.opts.ExecTimeout)
	defer overall.Stop()

	if workingDir != "" {
		// Directory changes have no synchronous acknowledgement from the
		// shell; the settle delay is the only ordering we get.
		if err := s.Handle.SendText(runCtx, changeDirInstruction(flavor, workingDir)); err != nil {
			return api.ExecutionResult{}, fmt.Errorf("%w: %w", errdefs.ErrSendText, err)
		}
		if err := e.settle(runCtx, e.opts.DirSettle, overall, execID); err != nil {
			return api.ExecutionResult{}, err
		}
	}

	e.logger.InfoContext(ctx, "executing command", "execution", execID, "session", id, "flavor", flavor.String())

	completionCh, err := s.Handle.Execute(runCtx, command)
	if err != nil {
		// Submission failures demote to the blind path rather than failing
		// the run; ErrNoCompletionSignal is the expected capability probe.
		if !errors.Is(err, api.ErrNoCompletionSignal) {
			e.logger.WarnContext(ctx, "structured submission failed, falling back",
				"execution", execID, "session", id, "err", err)
		}
		return e.runFallback(runCtx, s, command, execID, overall)
	}

	select {
	case completion, open := <-completionCh:
		if !open {
			return api.ExecutionResult{}, fmt.Errorf(
				"%w: session %q closed before the command completed", errdefs.ErrSessionNotFound, id)
		}
		exitCode := 0
		if completion.ExitCode != nil {
			exitCode = *completion.ExitCode
		}
		e.logger.InfoContext(ctx, "command completed", "execution", execID, "exit", exitCode)
		return api.ExecutionResult{
			ExecutionID: execID,
			SessionID:   id,
			ExitCode:    exitCode,
			Verified:    true,
		}, nil
	case <-overall.C:
		return api.ExecutionResult{}, e.timeoutErr(runCtx, execID)
	case <-runCtx.Done():
		return api.ExecutionResult{}, e.cancelErr(runCtx, execID)
	}
}

// runFallback sends the raw command text and resolves optimistically after
// the settle delay. The exit status cannot be verified on this path.
func (e *Executor) runFallback(
	ctx context.Context,
	s ManagedSession,
	command, execID string,
	overall *time.Timer,
) (api.ExecutionResult, error) {
	if err := s.Handle.SendText(ctx, command); err != nil {
		return api.ExecutionResult{}, fmt.Errorf("%w: %w", errdefs.ErrSendText, err)
	}

	if err := e.settle(ctx, e.opts.FallbackSettle, overall, execID); err != nil {
		return api.ExecutionResult{}, err
	}

	e.logger.InfoContext(ctx, "command resolved optimistically, exit status unverified",
		"execution", execID, "session", s.ID)
	return api.ExecutionResult{
		ExecutionID: execID,
		SessionID:   s.ID,
		ExitCode:    0,
		Verified:    false,
	}, nil
}

// settle waits d while still honoring the overall timer and cancellation.
func (e *Executor) settle(ctx context.Context, d time.Duration, overall *time.Timer, execID string) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-overall.C:
		return e.timeoutErr(ctx, execID)
	case <-ctx.Done():
		return e.cancelErr(ctx, execID)
	}
}

func (e *Executor) timeoutErr(ctx context.Context, execID string) error {
	e.logger.WarnContext(ctx, "execution timed out", "execution", execID)
	return fmt.Errorf("%w: execution %s exceeded %s", errdefs.ErrExecutionTimeout, execID, e.opts.ExecTimeout)
}

func (e *Executor) cancelErr(ctx context.Context, execID string) error {
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return fmt.Errorf("%w: execution %s: %w", errdefs.ErrExecutionCancelled, execID, cause)
	}
	return fmt.Errorf("%w: execution %s", errdefs.ErrExecutionCancelled, execID)
}

func (e *Executor) track(p *pendingExecution) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	e.pending[p.id] = p
}

func (e *Executor) untrack(p *pendingExecution) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	delete(e.pending, p.id)
}

// CancelAll aborts every pending execution. Used on pool teardown.
func (e *Executor) CancelAll(reason error) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	for id, p := range e.pending {
		e.logger.Warn("cancelling pending execution", "execution", id, "session", p.sessionID, "reason", reason)
		p.cancel(reason)
	}
}

// PendingCount reports how many executions are currently in flight.
func (e *Executor) PendingCount() int {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return len(e.pending)
}

// changeDirInstruction composes the flavor-appropriate directory change.
func changeDirInstruction(flavor shellkind.Flavor, dir string) string {
	escaped := escapeMetaValue(dir)
	switch flavor {
	case shellkind.FlavorCmd:
		return fmt.Sprintf(`cd /d "%s"`, escaped)
	case shellkind.FlavorPowerShell:
		return fmt.Sprintf(`Set-Location -Path "%s"`, escaped)
	default:
		return fmt.Sprintf(`cd "%s"`, escaped)
	}
}
