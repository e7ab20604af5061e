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
	"sort"
	"sync"
	"time"

	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/pkg/api"
)

// ManagedSession is one tracked shell. The Handle is owned exclusively by
// the pool; callers only ever see Info() snapshots.
type ManagedSession struct {
	ID          api.SessionID
	ShellKind   api.ShellKind
	ProfileName string
	Comment     string
	CreatedAt   time.Time
	LastUsedAt  time.Time
	Handle      api.TerminalSession
}

// Info strips the handle off for caller-facing replies.
func (s ManagedSession) Info() api.SessionInfo {
	return api.SessionInfo{
		ID:          s.ID,
		ShellKind:   s.ShellKind,
		ProfileName: s.ProfileName,
		Comment:     s.Comment,
		CreatedAt:   s.CreatedAt,
		LastUsedAt:  s.LastUsedAt,
	}
}

// Registry is the authoritative multi-key session store. byId holds every
// live session; byShellKind holds at most the current session per kind;
// byHandle resolves host handles back to ids for disposal. All three are
// kept consistent under one lock: removal is atomic, never partial.
//
// Methods return value snapshots, not pointers into the store, so callers
// never observe concurrent field mutation.
type Registry struct {
	mu          sync.RWMutex
	byID        map[api.SessionID]*ManagedSession
	byShellKind map[api.ShellKind]api.SessionID
	byHandle    map[api.HandleKey]api.SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		byID:        make(map[api.SessionID]*ManagedSession),
		byShellKind: make(map[api.ShellKind]api.SessionID),
		byHandle:    make(map[api.HandleKey]api.SessionID),
	}
}

/* Basic ops */

func (r *Registry) GetByID(id api.SessionID) (ManagedSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return ManagedSession{}, false
	}
	return *s, true
}

func (r *Registry) GetByShellKind(kind api.ShellKind) (ManagedSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byShellKind[kind]
	if !ok {
		return ManagedSession{}, false
	}
	s, ok := r.byID[id]
	if !ok {
		return ManagedSession{}, false
	}
	return *s, true
}

// Insert registers a new session. trackKind selects whether the session
// becomes the current one for its kind: kind-based creation replaces any
// prior entry for that kind, profile-based creation never touches the kind
// index.
func (r *Registry) Insert(s ManagedSession, trackKind bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[s.ID]; exists {
		return errdefs.ErrSessionExists
	}

	stored := s
	r.byID[s.ID] = &stored
	r.byHandle[s.Handle.Key()] = s.ID
	if trackKind && s.ShellKind.Known() {
		r.byShellKind[s.ShellKind] = s.ID
	}
	return nil
}

// Remove drops id from every index. Reports whether it was present.
func (r *Registry) Remove(id api.SessionID) (ManagedSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

// RemoveByHandle resolves a host handle to its session and drops it from
// every index. This is the disposal watcher's path.
func (r *Registry) RemoveByHandle(key api.HandleKey) (ManagedSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byHandle[key]
	if !ok {
		return ManagedSession{}, false
	}
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id api.SessionID) (ManagedSession, bool) {
	s, ok := r.byID[id]
	if !ok {
		return ManagedSession{}, false
	}

	delete(r.byID, id)
	delete(r.byHandle, s.Handle.Key())
	if current, tracked := r.byShellKind[s.ShellKind]; tracked && current == id {
		delete(r.byShellKind, s.ShellKind)
	}
	return *s, true
}

// ListAll returns snapshots of every live session, oldest first.
func (r *Registry) ListAll() []ManagedSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ManagedSession, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// UpdateComment mutates the comment and bumps lastUsedAt. The caller is
// expected to re-stamp prompt metadata with the returned snapshot.
func (r *Registry) UpdateComment(id api.SessionID, text string) (ManagedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return ManagedSession{}, errdefs.ErrSessionNotFound
	}
	s.Comment = text
	s.LastUsedAt = laterOf(s.LastUsedAt, time.Now())
	return *s, nil
}

// TouchReuse refreshes the optional fields on the reuse path and bumps
// lastUsedAt. Empty comment/profileName leave the current values alone.
func (r *Registry) TouchReuse(id api.SessionID, comment, profileName string) (ManagedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return ManagedSession{}, errdefs.ErrSessionNotFound
	}
	if comment != "" {
		s.Comment = comment
	}
	if profileName != "" {
		s.ProfileName = profileName
	}
	s.LastUsedAt = laterOf(s.LastUsedAt, time.Now())
	return *s, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// laterOf keeps lastUsedAt monotonically non-decreasing even if the clock
// steps backwards.
func laterOf(a, b time.Time) time.Time {
	if b.Before(a) {
		return a
	}
	return b
}
