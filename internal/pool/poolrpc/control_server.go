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

package poolrpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"

	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/pkg/api"
)

// Server accepts agent connections on a unix socket and serves the pool's
// RPC surface over JSON codecs.
type Server struct {
	logger *slog.Logger
	socket string
	ln     net.Listener
}

func NewServer(logger *slog.Logger, socket string) *Server {
	return &Server{logger: logger, socket: socket}
}

// OpenSocket prepares the listener, replacing any stale socket file from a
// previous run. The socket is private to the owning user.
func (s *Server) OpenSocket(ctx context.Context) error {
	if _, err := os.Stat(s.socket); err == nil {
		s.logger.WarnContext(ctx, "removing stale socket", "socket", s.socket)
		if rmErr := os.Remove(s.socket); rmErr != nil {
			return fmt.Errorf("%w: cannot remove stale socket: %w", errdefs.ErrOpenSocketCtrl, rmErr)
		}
	}

	lnCfg := net.ListenConfig{}
	ln, err := lnCfg.Listen(ctx, "unix", s.socket)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrOpenSocketCtrl, err)
	}
	if err := os.Chmod(s.socket, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("%w: %w", errdefs.ErrOpenSocketCtrl, err)
	}

	s.ln = ln
	s.logger.InfoContext(ctx, "listening on control socket", "socket", s.socket)
	return nil
}

// Serve runs the accept loop. readyCh reports the registration outcome once;
// doneCh reports the loop's exit. Cancelling ctx closes the listener, which
// is the normal way down.
func (s *Server) Serve(ctx context.Context, adapter *PoolAgentRPC, readyCh chan error, doneCh chan error) {
	defer func() {
		_ = s.ln.Close()
	}()

	// Stop accepting when ctx is cancelled.
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	srv := rpc.NewServer()
	if err := srv.RegisterName(api.PoolService, adapter); err != nil {
		readyCh <- err
		close(readyCh)
		select {
		case doneCh <- err:
		default:
		}
		close(doneCh)
		return
	}
	readyCh <- nil
	close(readyCh)

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				select {
				case doneCh <- nil:
				default:
				}
				close(doneCh)
				return
			}
			select {
			case doneCh <- err:
			default:
			}
			close(doneCh)
			return
		}
		go srv.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}
