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

// Package poolrpc exposes a PoolAgent over net/rpc on a unix socket.
package poolrpc

import (
	"context"

	"github.com/shellpool/shellpool/pkg/api"
)

// PoolAgentRPC adapts an api.PoolAgent to net/rpc's method shape. The
// context is the server's: per-call deadlines belong to the pool's own
// timers, not the transport.
type PoolAgentRPC struct {
	Ctx  context.Context
	Core api.PoolAgent
}

func (s *PoolAgentRPC) Ping(in *api.PingMessage, out *api.PingMessage) error {
	out.Message = "pong: " + in.Message
	return nil
}

func (s *PoolAgentRPC) OpenSession(args *api.OpenSessionArgs, reply *api.OpenSessionReply) error {
	r, err := s.Core.OpenSession(s.Ctx, args)
	if err != nil {
		return err
	}
	*reply = *r
	return nil
}

func (s *PoolAgentRPC) RunCommand(args *api.RunCommandArgs, reply *api.RunCommandReply) error {
	r, err := s.Core.RunCommand(s.Ctx, args)
	if err != nil {
		return err
	}
	*reply = *r
	return nil
}

func (s *PoolAgentRPC) ListSessions(_ *api.Empty, reply *api.ListSessionsReply) error {
	r, err := s.Core.ListSessions(s.Ctx)
	if err != nil {
		return err
	}
	*reply = *r
	return nil
}

func (s *PoolAgentRPC) UpdateComment(args *api.UpdateCommentArgs, reply *api.UpdateCommentReply) error {
	r, err := s.Core.UpdateComment(s.Ctx, args)
	if err != nil {
		return err
	}
	*reply = *r
	return nil
}

func (s *PoolAgentRPC) CloseSession(args *api.CloseSessionArgs, reply *api.CloseSessionReply) error {
	r, err := s.Core.CloseSession(s.Ctx, args)
	if err != nil {
		return err
	}
	*reply = *r
	return nil
}

func (s *PoolAgentRPC) ListProfiles(_ *api.Empty, reply *api.ListProfilesReply) error {
	r, err := s.Core.ListProfiles(s.Ctx)
	if err != nil {
		return err
	}
	*reply = *r
	return nil
}
