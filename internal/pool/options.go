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

import "time"

// Options carries the pool's timing knobs. The settle delays are unverified
// heuristics, not protocol guarantees: the underlying shells acknowledge
// neither directory changes nor raw text, so these only need to be "long
// enough" on the deployment at hand.
type Options struct {
	// CreateTimeout bounds the profile creation race: if neither the
	// creation call nor a matching opened event yields a handle within it,
	// the open fails.
	CreateTimeout time.Duration

	// ExecTimeout is the overall ceiling for one command run.
	ExecTimeout time.Duration

	// DirSettle is waited after a directory-change instruction before the
	// command itself is dispatched.
	DirSettle time.Duration

	// FallbackSettle is waited after sending a command without structured
	// completion signaling, before resolving optimistically.
	FallbackSettle time.Duration
}

const (
	defaultCreateTimeout  = 3000 * time.Millisecond
	defaultExecTimeout    = 30000 * time.Millisecond
	defaultDirSettle      = 200 * time.Millisecond
	defaultFallbackSettle = 1000 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.CreateTimeout <= 0 {
		o.CreateTimeout = defaultCreateTimeout
	}
	if o.ExecTimeout <= 0 {
		o.ExecTimeout = defaultExecTimeout
	}
	if o.DirSettle <= 0 {
		o.DirSettle = defaultDirSettle
	}
	if o.FallbackSettle <= 0 {
		o.FallbackSettle = defaultFallbackSettle
	}
	return o
}
