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
	"log/slog"

	"github.com/shellpool/shellpool/pkg/api"
)

// Watcher prunes the registry when the host reports a session closed. It
// runs for the pool's whole lifetime, independent of any caller's request.
// Removal is unconditional and final: no tombstoning, no grace period. A
// caller holding the stale id simply gets ErrSessionNotFound and opens a
// new session.
type Watcher struct {
	logger   *slog.Logger
	host     api.TerminalHost
	registry *Registry
}

func NewWatcher(logger *slog.Logger, host api.TerminalHost, registry *Registry) *Watcher {
	return &Watcher{logger: logger, host: host, registry: registry}
}

// Run consumes closed events until ctx is cancelled or the host closes the
// stream.
func (w *Watcher) Run(ctx context.Context) error {
	events, unsubscribe := w.host.SubscribeClosed()
	defer unsubscribe()

	w.logger.InfoContext(ctx, "disposal watcher started")
	defer w.logger.InfoContext(ctx, "disposal watcher stopped")

	for {
		select {
		case ev, open := <-events:
			if !open {
				return nil
			}
			w.handleClosed(ctx, ev)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) handleClosed(ctx context.Context, ev api.ClosedEvent) {
	s, found := w.registry.RemoveByHandle(ev.Key)
	if !found {
		// Sessions the host opened outside the pool close here too.
		w.logger.DebugContext(ctx, "closed event for untracked handle", "key", ev.Key)
		return
	}
	w.logger.InfoContext(ctx, "session pruned after host closure",
		"id", s.ID, "kind", s.ShellKind, "key", ev.Key)
}
