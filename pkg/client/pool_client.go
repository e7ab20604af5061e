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

// Package client dials a running shellpool daemon over its unix control
// socket and exposes the agent operations as plain method calls.
package client

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"github.com/shellpool/shellpool/pkg/api"
)

const defaultDialTimeout = 3 * time.Second

// Pool is a connected RPC client. Not safe for concurrent use of Close with
// in-flight calls; one caller, one connection.
type Pool struct {
	c    *rpc.Client
	conn net.Conn
}

// Dial connects to the daemon socket. A zero timeout uses the default.
func Dial(socket string, timeout time.Duration) (*Pool, error) {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	conn, err := net.DialTimeout("unix", socket, timeout)
	if err != nil {
		return nil, fmt.Errorf("cannot reach shellpool daemon on %s: %w", socket, err)
	}
	return &Pool{
		c:    rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn)),
		conn: conn,
	}, nil
}

func (p *Pool) Ping(message string) (string, error) {
	var reply api.PingMessage
	if err := p.c.Call(api.PoolMethodPing, &api.PingMessage{Message: message}, &reply); err != nil {
		return "", err
	}
	return reply.Message, nil
}

func (p *Pool) OpenSession(args *api.OpenSessionArgs) (*api.OpenSessionReply, error) {
	var reply api.OpenSessionReply
	if err := p.c.Call(api.PoolMethodOpenSession, args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (p *Pool) RunCommand(args *api.RunCommandArgs) (*api.RunCommandReply, error) {
	var reply api.RunCommandReply
	if err := p.c.Call(api.PoolMethodRunCommand, args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (p *Pool) ListSessions() (*api.ListSessionsReply, error) {
	var reply api.ListSessionsReply
	if err := p.c.Call(api.PoolMethodListSessions, &api.Empty{}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (p *Pool) UpdateComment(args *api.UpdateCommentArgs) (*api.UpdateCommentReply, error) {
	var reply api.UpdateCommentReply
	if err := p.c.Call(api.PoolMethodUpdateComment, args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (p *Pool) CloseSession(args *api.CloseSessionArgs) (*api.CloseSessionReply, error) {
	var reply api.CloseSessionReply
	if err := p.c.Call(api.PoolMethodCloseSession, args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (p *Pool) ListProfiles() (*api.ListProfilesReply, error) {
	var reply api.ListProfilesReply
	if err := p.c.Call(api.PoolMethodListProfiles, &api.Empty{}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (p *Pool) Close() error {
	_ = p.c.Close()
	return p.conn.Close()
}
