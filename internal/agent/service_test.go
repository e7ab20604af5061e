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

package agent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/internal/host"
	"github.com/shellpool/shellpool/internal/pool"
	"github.com/shellpool/shellpool/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestService(t *testing.T, h *host.HostTest) *Service {
	t.Helper()
	logger := testLogger()
	p := pool.New(context.Background(), logger, h, pool.Options{})
	t.Cleanup(func() { _ = p.Close(nil) })
	return NewService(logger, p)
}

func defaultHost() *host.HostTest {
	h := host.NewHostTest()
	h.CreateSessionFunc = func(_ context.Context, launch api.LaunchSpec) (api.TerminalSession, error) {
		return &host.SessionTest{HandleKey: api.HandleKey(launch.Name), SessionName: launch.Name, Path: launch.Path}, nil
	}
	return h
}

func Test_Service_OpenSession_RequiresExactlyOneSelector(t *testing.T) {
	s := newTestService(t, defaultHost())

	tests := []struct {
		name string
		args *api.OpenSessionArgs
	}{
		{name: "neither", args: &api.OpenSessionArgs{}},
		{name: "both", args: &api.OpenSessionArgs{Kind: "bash", Profile: "Bash"}},
		{name: "whitespace kind", args: &api.OpenSessionArgs{Kind: "  "}},
		{name: "nil args", args: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.OpenSession(context.Background(), tt.args)
			if !errors.Is(err, errdefs.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func Test_Service_OpenSession_UnknownKindRejected(t *testing.T) {
	s := newTestService(t, defaultHost())

	_, err := s.OpenSession(context.Background(), &api.OpenSessionArgs{Kind: "fish"})
	if !errors.Is(err, errdefs.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func Test_Service_OpenSession_ByKindAndReuse(t *testing.T) {
	s := newTestService(t, defaultHost())

	first, err := s.OpenSession(context.Background(), &api.OpenSessionArgs{Kind: "bash", Comment: "ci box"})
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if first.Reused {
		t.Error("first open must not be a reuse")
	}
	if !strings.HasPrefix(first.Message, "Opened session ") {
		t.Errorf("message = %q", first.Message)
	}
	if !strings.Contains(first.Message, `"ci box"`) {
		t.Errorf("message lacks comment: %q", first.Message)
	}

	second, err := s.OpenSession(context.Background(), &api.OpenSessionArgs{Kind: "bash"})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Reused {
		t.Error("second open must reuse")
	}
	if second.Session.ID != first.Session.ID {
		t.Errorf("ids differ: %s vs %s", first.Session.ID, second.Session.ID)
	}
	if !strings.HasPrefix(second.Message, "Reusing session ") {
		t.Errorf("message = %q", second.Message)
	}
}

func Test_Service_OpenSession_ByProfile(t *testing.T) {
	h := defaultHost()
	h.ProfilesFunc = func(_ context.Context) (map[string]api.ProfileDetail, error) {
		return map[string]api.ProfileDetail{"Ubuntu-22.04": {Path: "wsl.exe"}}, nil
	}
	h.CreateSessionFromProfileFunc = func(_ context.Context, name string) (api.TerminalSession, error) {
		return &host.SessionTest{HandleKey: "h1", SessionName: name, Path: "wsl.exe"}, nil
	}
	s := newTestService(t, h)

	reply, err := s.OpenSession(context.Background(), &api.OpenSessionArgs{Profile: "Ubuntu-22.04"})
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if reply.Session.ProfileName != "Ubuntu-22.04" {
		t.Errorf("ProfileName = %q", reply.Session.ProfileName)
	}
	if !strings.Contains(reply.Message, `from profile "Ubuntu-22.04"`) {
		t.Errorf("message = %q", reply.Message)
	}
}

func Test_Service_RunCommand_Validation(t *testing.T) {
	s := newTestService(t, defaultHost())

	if _, err := s.RunCommand(context.Background(), &api.RunCommandArgs{Command: "ls"}); !errors.Is(err, errdefs.ErrInvalidInput) {
		t.Errorf("missing id: error = %v, want ErrInvalidInput", err)
	}
	if _, err := s.RunCommand(context.Background(), &api.RunCommandArgs{SessionID: "s1"}); !errors.Is(err, errdefs.ErrInvalidInput) {
		t.Errorf("missing command: error = %v, want ErrInvalidInput", err)
	}
}

func Test_Service_RunCommand_StaleIDCarriesRecoveryInstruction(t *testing.T) {
	s := newTestService(t, defaultHost())

	_, err := s.RunCommand(context.Background(), &api.RunCommandArgs{SessionID: "stale", Command: "ls"})
	if !errors.Is(err, errdefs.ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
	if !strings.Contains(err.Error(), RecoveryInstruction) {
		t.Errorf("error %q lacks the recovery instruction", err)
	}
}

func Test_Service_RunCommand_UnverifiedMessage(t *testing.T) {
	s := newTestService(t, defaultHost())

	opened, err := s.OpenSession(context.Background(), &api.OpenSessionArgs{Kind: "bash"})
	if err != nil {
		t.Fatal(err)
	}

	// The default fake session has no structured signaling, so the run
	// resolves through the blind path.
	reply, err := s.RunCommand(context.Background(), &api.RunCommandArgs{
		SessionID: string(opened.Session.ID),
		Command:   "make build",
	})
	if err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if reply.Result.Verified {
		t.Error("result must be unverified")
	}
	if !strings.Contains(reply.Message, "could not be verified") {
		t.Errorf("message = %q", reply.Message)
	}
}

func Test_Service_RunCommand_VerifiedMessage(t *testing.T) {
	exit := 3
	h := host.NewHostTest()
	h.CreateSessionFunc = func(_ context.Context, launch api.LaunchSpec) (api.TerminalSession, error) {
		return &host.SessionTest{
			HandleKey: "h1", SessionName: launch.Name, Path: launch.Path,
			ExecuteFunc: func(_ context.Context, _ string) (<-chan api.CommandCompletion, error) {
				ch := make(chan api.CommandCompletion, 1)
				ch <- api.CommandCompletion{ExitCode: &exit}
				return ch, nil
			},
		}, nil
	}
	s := newTestService(t, h)

	opened, err := s.OpenSession(context.Background(), &api.OpenSessionArgs{Kind: "bash"})
	if err != nil {
		t.Fatal(err)
	}
	reply, err := s.RunCommand(context.Background(), &api.RunCommandArgs{
		SessionID: string(opened.Session.ID),
		Command:   "false",
	})
	if err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if !reply.Result.Verified || reply.Result.ExitCode != 3 {
		t.Errorf("result = %+v, want verified exit 3", reply.Result)
	}
	if !strings.Contains(reply.Message, "exit code 3") {
		t.Errorf("message = %q", reply.Message)
	}
}

func Test_Service_UpdateComment(t *testing.T) {
	s := newTestService(t, defaultHost())

	opened, err := s.OpenSession(context.Background(), &api.OpenSessionArgs{Kind: "bash"})
	if err != nil {
		t.Fatal(err)
	}

	reply, err := s.UpdateComment(context.Background(), &api.UpdateCommentArgs{
		SessionID: string(opened.Session.ID),
		Comment:   "deploy window",
	})
	if err != nil {
		t.Fatalf("UpdateComment() error = %v", err)
	}
	if reply.Session.Comment != "deploy window" {
		t.Errorf("Comment = %q", reply.Session.Comment)
	}

	_, err = s.UpdateComment(context.Background(), &api.UpdateCommentArgs{SessionID: "stale", Comment: "x"})
	if !errors.Is(err, errdefs.ErrSessionNotFound) || !strings.Contains(err.Error(), RecoveryInstruction) {
		t.Errorf("stale update error = %v", err)
	}
}

func Test_Service_CloseSession(t *testing.T) {
	s := newTestService(t, defaultHost())

	opened, err := s.OpenSession(context.Background(), &api.OpenSessionArgs{Kind: "bash"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.CloseSession(context.Background(), &api.CloseSessionArgs{SessionID: string(opened.Session.ID)}); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}

	_, err = s.CloseSession(context.Background(), &api.CloseSessionArgs{SessionID: string(opened.Session.ID)})
	if !errors.Is(err, errdefs.ErrSessionNotFound) || !strings.Contains(err.Error(), RecoveryInstruction) {
		t.Errorf("second close error = %v", err)
	}
}

func Test_Service_ListSessionsAndProfiles(t *testing.T) {
	h := defaultHost()
	h.ProfilesFunc = func(_ context.Context) (map[string]api.ProfileDetail, error) {
		return map[string]api.ProfileDetail{
			"Zsh":  {Path: "/bin/zsh"},
			"Bash": {Path: "/usr/bin/bash"},
		}, nil
	}
	s := newTestService(t, h)

	if _, err := s.OpenSession(context.Background(), &api.OpenSessionArgs{Kind: "bash"}); err != nil {
		t.Fatal(err)
	}

	sessions, err := s.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions.Sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(sessions.Sessions))
	}

	profiles, err := s.ListProfiles(context.Background())
	if err != nil {
		t.Fatalf("ListProfiles() error = %v", err)
	}
	if len(profiles.Profiles) != 2 {
		t.Fatalf("profiles = %d, want 2", len(profiles.Profiles))
	}
	if profiles.Profiles[0].Name != "Bash" || profiles.Profiles[1].Name != "Zsh" {
		t.Errorf("profiles not sorted: %v", profiles.Profiles)
	}
	if profiles.Platform == "" {
		t.Error("platform missing")
	}
}
