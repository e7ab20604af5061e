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
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/internal/host"
	"github.com/shellpool/shellpool/pkg/api"
)

func testOptions() Options {
	return Options{
		CreateTimeout:  200 * time.Millisecond,
		ExecTimeout:    2 * time.Second,
		DirSettle:      10 * time.Millisecond,
		FallbackSettle: 20 * time.Millisecond,
	}
}

func newTestFactory(h api.TerminalHost) (*Factory, *Registry) {
	logger := testLogger()
	registry := NewRegistry()
	injector := NewInjector(logger)
	return NewFactory(logger, h, registry, injector, testOptions()), registry
}

func Test_Factory_GetOrCreate_ReusesSameSession(t *testing.T) {
	var created atomic.Int32
	h := host.NewHostTest()
	h.CreateSessionFunc = func(_ context.Context, launch api.LaunchSpec) (api.TerminalSession, error) {
		created.Add(1)
		return &host.SessionTest{HandleKey: "h1", SessionName: launch.Name, Path: launch.Path}, nil
	}

	f, _ := newTestFactory(h)

	first, reused, err := f.GetOrCreateByShellKind(context.Background(), api.ShellKindBash, CreateOptions{})
	if err != nil {
		t.Fatalf("first call error = %v", err)
	}
	if reused {
		t.Error("first call should create, not reuse")
	}

	second, reused, err := f.GetOrCreateByShellKind(context.Background(), api.ShellKindBash, CreateOptions{})
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if !reused {
		t.Error("second call should reuse")
	}
	if first.ID != second.ID {
		t.Errorf("ids differ across reuse: %s vs %s", first.ID, second.ID)
	}
	if got := created.Load(); got != 1 {
		t.Errorf("host creation called %d times, want 1", got)
	}
	if second.LastUsedAt.Before(first.LastUsedAt) {
		t.Error("lastUsedAt decreased on reuse")
	}
}

func Test_Factory_GetOrCreate_ReuseRefreshesCommentAndMetadata(t *testing.T) {
	var sentMu sync.Mutex
	var sent []string
	h := host.NewHostTest()
	h.CreateSessionFunc = func(_ context.Context, launch api.LaunchSpec) (api.TerminalSession, error) {
		return &host.SessionTest{
			HandleKey: "h1", SessionName: launch.Name, Path: launch.Path,
			SendTextFunc: func(_ context.Context, text string) error {
				sentMu.Lock()
				defer sentMu.Unlock()
				sent = append(sent, text)
				return nil
			},
		}, nil
	}

	f, _ := newTestFactory(h)

	if _, _, err := f.GetOrCreateByShellKind(context.Background(), api.ShellKindBash, CreateOptions{}); err != nil {
		t.Fatal(err)
	}
	s, _, err := f.GetOrCreateByShellKind(context.Background(), api.ShellKindBash, CreateOptions{Comment: "updated"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Comment != "updated" {
		t.Errorf("Comment = %q, want updated", s.Comment)
	}

	sentMu.Lock()
	defer sentMu.Unlock()
	// Two stamps of two instructions each; the last pair carries the
	// refreshed comment.
	if len(sent) != 4 {
		t.Fatalf("want 4 injected instructions, got %d: %v", len(sent), sent)
	}
	if !strings.Contains(sent[3], `"updated"`) {
		t.Errorf("re-stamp does not carry new comment: %q", sent[3])
	}
}

func Test_Factory_GetOrCreate_UnknownKindRejected(t *testing.T) {
	f, _ := newTestFactory(host.NewHostTest())

	_, _, err := f.GetOrCreateByShellKind(context.Background(), api.ShellKindUnknown, CreateOptions{})
	if !errors.Is(err, errdefs.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func Test_Factory_GetOrCreate_ConcurrentCallsCoalesce(t *testing.T) {
	var created atomic.Int32
	h := host.NewHostTest()
	h.CreateSessionFunc = func(_ context.Context, launch api.LaunchSpec) (api.TerminalSession, error) {
		created.Add(1)
		time.Sleep(50 * time.Millisecond)
		return &host.SessionTest{HandleKey: "h1", SessionName: launch.Name, Path: launch.Path}, nil
	}

	f, registry := newTestFactory(h)

	const callers = 4
	ids := make(chan api.SessionID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, _, err := f.GetOrCreateByShellKind(context.Background(), api.ShellKindBash, CreateOptions{})
			if err != nil {
				t.Errorf("concurrent call error = %v", err)
				return
			}
			ids <- s.ID
		}()
	}
	wg.Wait()
	close(ids)

	var first api.SessionID
	for id := range ids {
		if first == "" {
			first = id
		} else if id != first {
			t.Errorf("concurrent callers got different sessions: %s vs %s", first, id)
		}
	}
	if got := created.Load(); got != 1 {
		t.Errorf("host creation called %d times, want 1", got)
	}
	if registry.Len() != 1 {
		t.Errorf("registry holds %d sessions, want 1", registry.Len())
	}
}

func Test_Factory_OpenByProfile_DirectWin(t *testing.T) {
	winner := &host.SessionTest{HandleKey: "direct", SessionName: "Bash-1", Path: "/usr/bin/bash"}
	h := host.NewHostTest()
	h.ProfilesFunc = func(_ context.Context) (map[string]api.ProfileDetail, error) {
		return map[string]api.ProfileDetail{"Bash": {Path: "/usr/bin/bash"}}, nil
	}
	h.CreateSessionFromProfileFunc = func(_ context.Context, _ string) (api.TerminalSession, error) {
		return winner, nil
	}

	f, registry := newTestFactory(h)

	s, err := f.OpenByProfile(context.Background(), "Bash", "")
	if err != nil {
		t.Fatalf("OpenByProfile() error = %v", err)
	}
	if s.ProfileName != "Bash" {
		t.Errorf("ProfileName = %q, want Bash", s.ProfileName)
	}
	if s.Handle.Key() != "direct" {
		t.Errorf("handle = %v, want direct winner", s.Handle.Key())
	}

	// A coincidental matching notification after the direct win must not
	// register anything: the fallback subscription was disposed.
	h.EmitOpened(api.OpenedEvent{
		Name:    "Bash-2",
		Session: &host.SessionTest{HandleKey: "late", SessionName: "Bash-2"},
		When:    time.Now(),
	})
	time.Sleep(20 * time.Millisecond)

	if registry.Len() != 1 {
		t.Errorf("registry holds %d sessions after stray event, want 1", registry.Len())
	}
}

func Test_Factory_OpenByProfile_FallbackWin(t *testing.T) {
	fallbackHandle := &host.SessionTest{HandleKey: "event", SessionName: "Bash-7", Path: "/usr/bin/bash"}
	h := host.NewHostTest()
	h.ProfilesFunc = func(_ context.Context) (map[string]api.ProfileDetail, error) {
		return map[string]api.ProfileDetail{"Bash": {Path: "/usr/bin/bash"}}, nil
	}
	h.CreateSessionFromProfileFunc = func(_ context.Context, _ string) (api.TerminalSession, error) {
		// The host opened a session but cannot say so: the notification
		// fires before the call returns empty-handed.
		h.EmitOpened(api.OpenedEvent{Name: "Bash-7", Session: fallbackHandle, When: time.Now()})
		return nil, nil
	}

	f, _ := newTestFactory(h)

	s, err := f.OpenByProfile(context.Background(), "Bash", "")
	if err != nil {
		t.Fatalf("OpenByProfile() error = %v", err)
	}
	if s.Handle.Key() != "event" {
		t.Errorf("handle = %v, want the event's handle", s.Handle.Key())
	}
	if s.ShellKind != api.ShellKindBash {
		t.Errorf("inferred kind = %v, want bash", s.ShellKind)
	}
}

func Test_Factory_OpenByProfile_IgnoresNonMatchingEvents(t *testing.T) {
	match := &host.SessionTest{HandleKey: "match", SessionName: "WSL-1", Path: "wsl.exe"}
	h := host.NewHostTest()
	h.ProfilesFunc = func(_ context.Context) (map[string]api.ProfileDetail, error) {
		return map[string]api.ProfileDetail{"WSL": {Path: "wsl.exe"}}, nil
	}
	h.CreateSessionFromProfileFunc = func(_ context.Context, _ string) (api.TerminalSession, error) {
		h.EmitOpened(api.OpenedEvent{
			Name:    "unrelated",
			Session: &host.SessionTest{HandleKey: "noise", SessionName: "unrelated"},
			When:    time.Now(),
		})
		h.EmitOpened(api.OpenedEvent{Name: "WSL-1", Session: match, When: time.Now()})
		return nil, nil
	}

	f, _ := newTestFactory(h)

	s, err := f.OpenByProfile(context.Background(), "WSL", "")
	if err != nil {
		t.Fatalf("OpenByProfile() error = %v", err)
	}
	if s.Handle.Key() != "match" {
		t.Errorf("handle = %v, want match", s.Handle.Key())
	}
}

func Test_Factory_OpenByProfile_TotalFailure(t *testing.T) {
	h := host.NewHostTest()
	h.ProfilesFunc = func(_ context.Context) (map[string]api.ProfileDetail, error) {
		return map[string]api.ProfileDetail{"Bash": {Path: "/usr/bin/bash"}}, nil
	}
	h.CreateSessionFromProfileFunc = func(_ context.Context, _ string) (api.TerminalSession, error) {
		return nil, nil
	}

	f, registry := newTestFactory(h)

	start := time.Now()
	_, err := f.OpenByProfile(context.Background(), "Bash", "")
	if !errors.Is(err, errdefs.ErrSessionCreationFailed) {
		t.Fatalf("error = %v, want ErrSessionCreationFailed", err)
	}
	if elapsed := time.Since(start); elapsed < testOptions().CreateTimeout {
		t.Errorf("failed after %s, before the creation timeout", elapsed)
	}
	if registry.Len() != 0 {
		t.Errorf("registry holds %d sessions after failure, want 0", registry.Len())
	}
}

func Test_Factory_OpenByProfile_CreationErrorDemotesToFallback(t *testing.T) {
	h := host.NewHostTest()
	h.ProfilesFunc = func(_ context.Context) (map[string]api.ProfileDetail, error) {
		return map[string]api.ProfileDetail{"Bash": {Path: "/usr/bin/bash"}}, nil
	}
	handle := &host.SessionTest{HandleKey: "event", SessionName: "Bash-3", Path: "/usr/bin/bash"}
	h.CreateSessionFromProfileFunc = func(_ context.Context, _ string) (api.TerminalSession, error) {
		h.EmitOpened(api.OpenedEvent{Name: "Bash-3", Session: handle, When: time.Now()})
		return nil, errors.New("host hiccup")
	}

	f, _ := newTestFactory(h)

	s, err := f.OpenByProfile(context.Background(), "Bash", "")
	if err != nil {
		t.Fatalf("OpenByProfile() error = %v, want fallback success", err)
	}
	if s.Handle.Key() != "event" {
		t.Errorf("handle = %v, want event", s.Handle.Key())
	}
}

func Test_Factory_OpenByProfile_Cancellation(t *testing.T) {
	h := host.NewHostTest()
	h.ProfilesFunc = func(_ context.Context) (map[string]api.ProfileDetail, error) {
		return map[string]api.ProfileDetail{"Bash": {Path: "/usr/bin/bash"}}, nil
	}
	h.CreateSessionFromProfileFunc = func(_ context.Context, _ string) (api.TerminalSession, error) {
		return nil, nil
	}

	f, _ := newTestFactory(h)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := f.OpenByProfile(ctx, "Bash", "")
	if !errors.Is(err, errdefs.ErrSessionCreationFailed) {
		t.Fatalf("error = %v, want ErrSessionCreationFailed", err)
	}
	if elapsed := time.Since(start); elapsed >= testOptions().CreateTimeout {
		t.Errorf("cancellation not honored before the timeout (took %s)", elapsed)
	}
}

func Test_Factory_OpenByProfile_ExactMatchOnly(t *testing.T) {
	h := host.NewHostTest()
	h.ProfilesFunc = func(_ context.Context) (map[string]api.ProfileDetail, error) {
		return map[string]api.ProfileDetail{"WSL": {Path: "wsl.exe"}}, nil
	}
	h.CreateSessionFromProfileFunc = func(_ context.Context, _ string) (api.TerminalSession, error) {
		return &host.SessionTest{HandleKey: "h1", SessionName: "WSL-1", Path: "wsl.exe"}, nil
	}

	f, _ := newTestFactory(h)

	s, err := f.OpenByProfile(context.Background(), "WSL", "")
	if err != nil {
		t.Fatalf(`OpenByProfile("WSL") error = %v`, err)
	}
	if s.ProfileName != "WSL" {
		t.Errorf("ProfileName = %q, want WSL", s.ProfileName)
	}

	_, err = f.OpenByProfile(context.Background(), "wsl", "")
	if !errors.Is(err, errdefs.ErrProfileNotFound) {
		t.Fatalf(`OpenByProfile("wsl") error = %v, want ErrProfileNotFound`, err)
	}
	if !strings.Contains(err.Error(), "WSL") {
		t.Errorf("error %q does not enumerate the available names", err)
	}
}

func Test_Factory_OpenByProfile_EmptyCatalogSkipsValidation(t *testing.T) {
	h := host.NewHostTest()
	h.ProfilesFunc = func(_ context.Context) (map[string]api.ProfileDetail, error) {
		return map[string]api.ProfileDetail{}, nil
	}
	h.CreateSessionFromProfileFunc = func(_ context.Context, name string) (api.TerminalSession, error) {
		return &host.SessionTest{HandleKey: "h1", SessionName: name + "-1", Path: "/bin/sh"}, nil
	}

	f, _ := newTestFactory(h)

	if _, err := f.OpenByProfile(context.Background(), "anything", ""); err != nil {
		t.Fatalf("OpenByProfile() with empty catalog error = %v", err)
	}
}

func Test_Factory_OpenByProfile_NeverTouchesKindIndex(t *testing.T) {
	h := host.NewHostTest()
	h.CreateSessionFunc = func(_ context.Context, launch api.LaunchSpec) (api.TerminalSession, error) {
		return &host.SessionTest{HandleKey: "by-kind", SessionName: launch.Name, Path: launch.Path}, nil
	}
	h.ProfilesFunc = func(_ context.Context) (map[string]api.ProfileDetail, error) {
		return map[string]api.ProfileDetail{"Bash": {Path: "/usr/bin/bash"}}, nil
	}
	h.CreateSessionFromProfileFunc = func(_ context.Context, _ string) (api.TerminalSession, error) {
		return &host.SessionTest{HandleKey: "by-profile", SessionName: "Bash-9", Path: "/usr/bin/bash"}, nil
	}

	f, registry := newTestFactory(h)

	kindSession, _, err := f.GetOrCreateByShellKind(context.Background(), api.ShellKindBash, CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.OpenByProfile(context.Background(), "Bash", ""); err != nil {
		t.Fatal(err)
	}

	current, ok := registry.GetByShellKind(api.ShellKindBash)
	if !ok || current.ID != kindSession.ID {
		t.Errorf("kind index changed by profile creation: %+v", current)
	}
}
