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

// Package agent is the caller-facing tool boundary: it validates request
// shapes, drives the pool and renders human-readable reply messages. Pool
// errors pass through verbatim; the agent adds guidance, never swallows.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"

	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/internal/pool"
	"github.com/shellpool/shellpool/pkg/api"
)

// RecoveryInstruction is appended verbatim whenever a caller addresses a
// session id the registry no longer knows. The wording is fixed so calling
// agents can key on it.
const RecoveryInstruction = "The session no longer exists; it was probably closed. " +
	"Open a new session and retry with the new session id."

// Service implements api.PoolAgent on top of one Pool.
type Service struct {
	logger *slog.Logger
	pool   *pool.Pool
}

func NewService(logger *slog.Logger, p *pool.Pool) *Service {
	return &Service{logger: logger, pool: p}
}

// OpenSession opens or reuses a session. Exactly one of Kind or Profile
// selects the creation path.
func (s *Service) OpenSession(ctx context.Context, args *api.OpenSessionArgs) (*api.OpenSessionReply, error) {
	if args == nil {
		return nil, fmt.Errorf("%w: missing arguments", errdefs.ErrInvalidInput)
	}
	hasKind := strings.TrimSpace(args.Kind) != ""
	hasProfile := strings.TrimSpace(args.Profile) != ""
	if hasKind == hasProfile {
		return nil, fmt.Errorf("%w: exactly one of kind or profile must be set", errdefs.ErrInvalidInput)
	}

	if hasProfile {
		session, err := s.pool.OpenByProfile(ctx, args.Profile, args.Comment)
		if err != nil {
			return nil, err
		}
		return &api.OpenSessionReply{
			Session: session.Info(),
			Reused:  false,
			Message: renderOpened(session, false),
		}, nil
	}

	kind, err := api.ParseShellKind(args.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrInvalidInput, err)
	}
	session, reused, err := s.pool.GetOrCreateByShellKind(ctx, kind, pool.CreateOptions{Comment: args.Comment})
	if err != nil {
		return nil, err
	}
	return &api.OpenSessionReply{
		Session: session.Info(),
		Reused:  reused,
		Message: renderOpened(session, reused),
	}, nil
}

func (s *Service) RunCommand(ctx context.Context, args *api.RunCommandArgs) (*api.RunCommandReply, error) {
	if args == nil || strings.TrimSpace(args.SessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", errdefs.ErrInvalidInput)
	}
	if strings.TrimSpace(args.Command) == "" {
		return nil, fmt.Errorf("%w: command is required", errdefs.ErrInvalidInput)
	}

	id := api.SessionID(args.SessionID)
	result, err := s.pool.Run(ctx, id, args.Command, args.WorkingDir)
	if err != nil {
		if errors.Is(err, errdefs.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w. %s", err, RecoveryInstruction)
		}
		return nil, err
	}

	session, ok := s.pool.GetSession(id)
	if !ok {
		// The session completed the command but closed before we could
		// snapshot it; the result still stands.
		return &api.RunCommandReply{Result: result, Message: renderResult(result, pool.ManagedSession{ID: id})}, nil
	}
	return &api.RunCommandReply{
		Result:  result,
		Session: session.Info(),
		Message: renderResult(result, session),
	}, nil
}

func (s *Service) ListSessions(_ context.Context) (*api.ListSessionsReply, error) {
	sessions := s.pool.ListSessions()

	infos := make([]api.SessionInfo, 0, len(sessions))
	for _, ms := range sessions {
		infos = append(infos, ms.Info())
	}
	return &api.ListSessionsReply{
		Sessions: infos,
		Message:  fmt.Sprintf("%d session(s) in the pool", len(infos)),
	}, nil
}

func (s *Service) UpdateComment(ctx context.Context, args *api.UpdateCommentArgs) (*api.UpdateCommentReply, error) {
	if args == nil || strings.TrimSpace(args.SessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", errdefs.ErrInvalidInput)
	}

	session, err := s.pool.UpdateComment(ctx, api.SessionID(args.SessionID), args.Comment)
	if err != nil {
		if errors.Is(err, errdefs.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w. %s", err, RecoveryInstruction)
		}
		return nil, err
	}
	return &api.UpdateCommentReply{
		Session: session.Info(),
		Message: fmt.Sprintf("session %s comment set to %q", session.ID, session.Comment),
	}, nil
}

func (s *Service) CloseSession(ctx context.Context, args *api.CloseSessionArgs) (*api.CloseSessionReply, error) {
	if args == nil || strings.TrimSpace(args.SessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", errdefs.ErrInvalidInput)
	}

	id := api.SessionID(args.SessionID)
	if err := s.pool.CloseSession(ctx, id); err != nil {
		if errors.Is(err, errdefs.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w. %s", err, RecoveryInstruction)
		}
		return nil, err
	}
	return &api.CloseSessionReply{Message: fmt.Sprintf("session %s closed", id)}, nil
}

func (s *Service) ListProfiles(ctx context.Context) (*api.ListProfilesReply, error) {
	profiles, err := s.pool.Profiles(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]api.ProfileSummary, 0, len(profiles))
	for name, detail := range profiles {
		summaries = append(summaries, api.ProfileSummary{
			Name: name,
			Path: detail.Path,
			Args: detail.Args,
			Icon: detail.Icon,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })

	platform := api.PlatformForGOOS(runtime.GOOS)
	return &api.ListProfilesReply{
		Platform: string(platform),
		Profiles: summaries,
		Message:  fmt.Sprintf("%d profile(s) available on %s", len(summaries), platform),
	}, nil
}
