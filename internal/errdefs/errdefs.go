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

package errdefs

import "errors"

var (
	// Caller-facing taxonomy. The agent maps these onto guidance messages.
	ErrInvalidInput          = errors.New("invalid input")
	ErrProfileNotFound       = errors.New("profile not found")
	ErrSessionCreationFailed = errors.New("session creation failed")
	ErrSessionNotFound       = errors.New("session not found")
	ErrExecutionTimeout      = errors.New("command execution timed out")
	ErrExecutionCancelled    = errors.New("command execution cancelled")

	// Lifecycle and plumbing.
	ErrFuncNotSet      = errors.New("function not set")
	ErrContextDone     = errors.New("context has been cancelled")
	ErrWaitOnReady     = errors.New("waiting for readiness has failed")
	ErrWaitOnClose     = errors.New("waiting for close has failed")
	ErrCloseReq        = errors.New("close requested")
	ErrOnClose         = errors.New("error closing")
	ErrPoolClosed      = errors.New("pool is shutting down")
	ErrHostClosed      = errors.New("terminal host is closed")
	ErrSessionExists   = errors.New("session id already exists in registry")
	ErrSendText        = errors.New("could not send text to session")
	ErrStartSessionCmd = errors.New("error starting session cmd")

	// Control socket and RPC.
	ErrOpenSocketCtrl  = errors.New("could not open ctrl socket")
	ErrStartRPCServer  = errors.New("error starting RPC server")
	ErrRPCServerExited = errors.New("RPC Server exited with error")

	// Configuration and CLI surface.
	ErrConfig           = errors.New("config error")
	ErrLoggerNotFound   = errors.New("logger not found in context")
	ErrInvalidFlag      = errors.New("invalid flag usage")
	ErrInvalidArgument  = errors.New("invalid positional argument")
	ErrTooManyArguments = errors.New("too many arguments")
	ErrOpenCatalogFile  = errors.New("failed to open profile catalog file")
	ErrInvalidCatalog   = errors.New("invalid profile catalog")
)
