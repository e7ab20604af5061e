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
	"testing"
	"time"

	"github.com/shellpool/shellpool/internal/host"
	"github.com/shellpool/shellpool/pkg/api"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func Test_Watcher_PrunesOnClosedEvent(t *testing.T) {
	h := host.NewHostTest()
	r := NewRegistry()
	w := NewWatcher(testLogger(), h, r)

	insertSession(t, r, "s1", &host.SessionTest{HandleKey: "h1", SessionName: "bash-1", Path: "/bin/bash"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	// Give the watcher a moment to subscribe.
	time.Sleep(10 * time.Millisecond)

	h.EmitClosed(api.ClosedEvent{Key: "h1", When: time.Now()})
	waitFor(t, func() bool { return r.Len() == 0 }, "session not pruned after closed event")

	if _, ok := r.GetByShellKind(api.ShellKindBash); ok {
		t.Error("kind index still holds pruned session")
	}

	cancel()
	<-done
}

func Test_Watcher_IgnoresUntrackedHandles(t *testing.T) {
	h := host.NewHostTest()
	r := NewRegistry()
	w := NewWatcher(testLogger(), h, r)

	insertSession(t, r, "s1", &host.SessionTest{HandleKey: "h1", SessionName: "bash-1", Path: "/bin/bash"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	time.Sleep(10 * time.Millisecond)

	// A tab the user opened by hand closes; the pool never tracked it.
	h.EmitClosed(api.ClosedEvent{Key: "manual-tab", When: time.Now()})
	time.Sleep(20 * time.Millisecond)

	if r.Len() != 1 {
		t.Errorf("registry = %d entries, want the tracked session untouched", r.Len())
	}

	cancel()
	<-done
}

func Test_Watcher_KeepsSuccessorInKindIndex(t *testing.T) {
	h := host.NewHostTest()
	r := NewRegistry()
	w := NewWatcher(testLogger(), h, r)

	insertSession(t, r, "old", &host.SessionTest{HandleKey: "h1", SessionName: "bash-1", Path: "/bin/bash"})
	insertSession(t, r, "new", &host.SessionTest{HandleKey: "h2", SessionName: "bash-2", Path: "/bin/bash"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	time.Sleep(10 * time.Millisecond)

	h.EmitClosed(api.ClosedEvent{Key: "h1", When: time.Now()})
	waitFor(t, func() bool { return r.Len() == 1 }, "old session not pruned")

	current, ok := r.GetByShellKind(api.ShellKindBash)
	if !ok || current.ID != "new" {
		t.Errorf("kind index = %+v, want the current session preserved", current)
	}

	cancel()
	<-done
}

func Test_Watcher_StopsWhenHostClosesStream(t *testing.T) {
	h := host.NewHostTest()
	r := NewRegistry()
	w := NewWatcher(testLogger(), h, r)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	time.Sleep(10 * time.Millisecond)

	if err := h.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil on stream close", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after the host closed the stream")
	}
}
