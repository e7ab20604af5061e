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

package api

import "context"

// PoolAgent is the operation surface the pool exposes to calling agents.
// Replies carry both structured data and a Message rendered for the caller,
// so a failed lookup can ship its recovery guidance in one round trip.
type PoolAgent interface {
	OpenSession(ctx context.Context, args *OpenSessionArgs) (*OpenSessionReply, error)
	RunCommand(ctx context.Context, args *RunCommandArgs) (*RunCommandReply, error)
	ListSessions(ctx context.Context) (*ListSessionsReply, error)
	UpdateComment(ctx context.Context, args *UpdateCommentArgs) (*UpdateCommentReply, error)
	CloseSession(ctx context.Context, args *CloseSessionArgs) (*CloseSessionReply, error)
	ListProfiles(ctx context.Context) (*ListProfilesReply, error)
}

// POOL RPC.
const PoolService = "PoolAgent"

const (
	PoolMethodOpenSession   = PoolService + ".OpenSession"
	PoolMethodRunCommand    = PoolService + ".RunCommand"
	PoolMethodListSessions  = PoolService + ".ListSessions"
	PoolMethodUpdateComment = PoolService + ".UpdateComment"
	PoolMethodCloseSession  = PoolService + ".CloseSession"
	PoolMethodListProfiles  = PoolService + ".ListProfiles"
	PoolMethodPing          = PoolService + ".Ping"
)

type Empty struct{}

type PingMessage struct {
	Message string
}

// OpenSessionArgs requests a session. Exactly one of Kind or Profile must be
// set: Kind reuses a live session of that kind or creates one, Profile always
// creates a fresh session from the named catalog profile.
type OpenSessionArgs struct {
	Kind    string
	Profile string
	Comment string
}

type OpenSessionReply struct {
	Session SessionInfo
	Reused  bool
	Message string
}

type RunCommandArgs struct {
	SessionID  string
	Command    string
	WorkingDir string
}

type RunCommandReply struct {
	Result  ExecutionResult
	Session SessionInfo
	Message string
}

type ListSessionsReply struct {
	Sessions []SessionInfo
	Message  string
}

type UpdateCommentArgs struct {
	SessionID string
	Comment   string
}

type UpdateCommentReply struct {
	Session SessionInfo
	Message string
}

type CloseSessionArgs struct {
	SessionID string
}

type CloseSessionReply struct {
	Message string
}

// ProfileSummary is one catalog row as shown to callers.
type ProfileSummary struct {
	Name string   `json:"name"`
	Path string   `json:"path"`
	Args []string `json:"args,omitempty"`
	Icon string   `json:"icon,omitempty"`
}

type ListProfilesReply struct {
	Platform string
	Profiles []ProfileSummary
	Message  string
}
