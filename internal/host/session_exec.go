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

package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/shellpool/shellpool/internal/naming"
	"github.com/shellpool/shellpool/internal/shellkind"
	"github.com/shellpool/shellpool/pkg/api"
	"golang.org/x/sys/unix"
)

// execSession is one shell process under a PTY. It drains the PTY
// continuously into a capture file, scanning the stream for completion
// markers emitted by Execute.
type execSession struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	logger    *slog.Logger

	// immutable
	key        api.HandleKey
	name       string
	launchPath string

	cmd  *exec.Cmd
	ptmx *os.File

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan api.CommandCompletion

	exited     atomic.Bool
	closeOnce  sync.Once
	closePTY   sync.Once
	closedCh   chan struct{}
	onClosed   func(api.HandleKey)
	captureOut *os.File
}

func newExecSession(
	ctx context.Context,
	logger *slog.Logger,
	launch api.LaunchSpec,
	captureDir string,
	onClosed func(api.HandleKey),
) (*execSession, error) {
	name := launch.Name
	if name == "" {
		name = naming.RandomName()
	}

	s := &execSession{
		logger:     logger.With("session", name),
		key:        api.HandleKey(naming.RandomID()),
		name:       name,
		launchPath: launch.Path,
		pending:    make(map[string]chan api.CommandCompletion),
		closedCh:   make(chan struct{}),
		onClosed:   onClosed,
	}
	s.ctx, s.ctxCancel = context.WithCancel(ctx)

	cmd := exec.CommandContext(s.ctx, launch.Path, launch.Args...)
	cmd.Env = os.Environ()
	hasTERM := false
	for _, e := range cmd.Env {
		if len(e) >= 5 && e[:5] == "TERM=" {
			hasTERM = true
			break
		}
	}
	if !hasTERM {
		cmd.Env = append(cmd.Env, "TERM=xterm-256color", "COLORTERM=truecolor")
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setctty: true, // make the child the controlling TTY
		Setsid:  true, // new session
	}
	s.cmd = cmd

	ptmx, err := pty.Start(cmd)
	if err != nil {
		s.ctxCancel()
		return nil, fmt.Errorf("%w: %w", ErrStartPTY, err)
	}
	s.ptmx = ptmx

	if captureDir != "" {
		captureFile := filepath.Join(captureDir, string(s.key)+".capture")
		f, ferr := os.OpenFile(captureFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if ferr != nil {
			s.logger.Warn("could not open capture file", "file", captureFile, "err", ferr)
		} else {
			s.captureOut = f
		}
	}

	go s.drainOutput()
	go func() {
		err := cmd.Wait()
		s.logger.Debug("shell process exited", "key", s.key, "err", err)
		s.exited.Store(true)
		_ = s.teardown(errors.New("the shell process has exited"))
	}()

	return s, nil
}

func (s *execSession) Key() api.HandleKey { return s.key }
func (s *execSession) Name() string       { return s.name }
func (s *execSession) LaunchPath() string { return s.launchPath }

// SendText writes one instruction line into the shell. Fire and forget: no
// acknowledgement is read back.
func (s *execSession) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.closedCh:
		return fmt.Errorf("session %s: %w", s.key, ErrSessionGone)
	default:
	}

	if _, err := s.write([]byte(text + "\n")); err != nil {
		return fmt.Errorf("session %s: %w", s.key, err)
	}
	return nil
}

// Execute submits command followed by a marker printf, and resolves the
// returned channel when the marker echoes back with the shell's $?. The
// marker requires a POSIX shell: any other launch path reports
// ErrNoCompletionSignal so the caller resolves blind instead of waiting on
// a marker that will never echo.
func (s *execSession) Execute(ctx context.Context, command string) (<-chan api.CommandCompletion, error) {
	if !posixMarkerCapable(s.launchPath) {
		return nil, api.ErrNoCompletionSignal
	}

	token := naming.RandomID()
	ch := make(chan api.CommandCompletion, 1)

	s.pendingMu.Lock()
	s.pending[token] = ch
	s.pendingMu.Unlock()

	marker := fmt.Sprintf(`printf '\033]633;D;%s;%%d\a' "$?"`, token)
	if err := s.SendText(ctx, command+"\n"+marker); err != nil {
		s.pendingMu.Lock()
		delete(s.pending, token)
		s.pendingMu.Unlock()
		return nil, err
	}
	return ch, nil
}

// posixMarkerCapable reports whether the shell at launchPath expands the
// marker's "$?". Only launch paths classified as a POSIX family qualify;
// unknown shells (fish, powershell on an odd path) are treated as incapable
// so the caller's blind path handles them.
func posixMarkerCapable(launchPath string) bool {
	switch shellkind.Infer("", launchPath) {
	case api.ShellKindBash, api.ShellKindWSL, api.ShellKindUbuntu:
		return true
	default:
		return false
	}
}

// Reveal is a no-op: a headless host has no foreground to bring sessions to.
func (s *execSession) Reveal() {
	s.logger.Debug("reveal requested", "key", s.key)
}

// Alive probes the shell process with signal 0.
func (s *execSession) Alive() bool {
	if s.exited.Load() {
		return false
	}
	if s.cmd == nil || s.cmd.Process == nil {
		return false
	}
	return unix.Kill(s.cmd.Process.Pid, 0) == nil
}

func (s *execSession) Close(ctx context.Context) error {
	err := s.teardown(errors.New("close requested"))

	select {
	case <-s.closedCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// teardown is the single exit path: kills the child, closes the PTY, fails
// any pending executions and reports the closure upstream. Idempotent.
func (s *execSession) teardown(reason error) error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("closing session", "key", s.key, "reason", reason)
		s.ctxCancel()

		if s.cmd != nil && s.cmd.Process != nil && !s.exited.Load() {
			if kerr := s.cmd.Process.Kill(); kerr != nil {
				s.logger.Warn("could not kill shell process", "key", s.key, "err", kerr)
			}
		}
		s.closePTY.Do(func() {
			if s.ptmx != nil {
				err = s.ptmx.Close()
			}
		})

		s.pendingMu.Lock()
		for token, ch := range s.pending {
			delete(s.pending, token)
			close(ch)
		}
		s.pendingMu.Unlock()

		if s.captureOut != nil {
			_ = s.captureOut.Close()
		}

		close(s.closedCh)
		if s.onClosed != nil {
			s.onClosed(s.key)
		}
	})
	return err
}

// write pushes bytes into the PTY in small paced writes so a busy shell
// does not drop input.
func (s *execSession) write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	const chunk = 256
	for i := 0; i < len(p); i += chunk {
		end := i + chunk
		if end > len(p) {
			end = len(p)
		}
		if _, err := s.ptmx.Write(p[i:end]); err != nil {
			return i, err
		}
		time.Sleep(time.Microsecond)
	}
	return len(p), nil
}

// drainOutput reads the PTY until it closes, teeing into the capture file
// and resolving completion markers.
func (s *execSession) drainOutput() {
	var scanner markerScanner

	//nolint:mnd // buffer size
	buf := make([]byte, 8192)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			if s.captureOut != nil {
				if _, werr := s.captureOut.Write(buf[:n]); werr != nil {
					s.logger.Warn("capture write failed", "key", s.key, "err", werr)
					_ = s.captureOut.Close()
					s.captureOut = nil
				}
			}
			for _, mark := range scanner.scan(buf[:n]) {
				s.resolve(mark)
			}
		}
		if err != nil {
			s.logger.Debug("pty reader finished", "key", s.key, "err", err)
			return
		}
	}
}

func (s *execSession) resolve(mark completionMark) {
	s.pendingMu.Lock()
	ch, ok := s.pending[mark.token]
	if ok {
		delete(s.pending, mark.token)
	}
	s.pendingMu.Unlock()

	if !ok {
		s.logger.Debug("completion marker with no pending execution", "token", mark.token)
		return
	}
	ch <- api.CommandCompletion{ExitCode: mark.exitCode, When: time.Now()}
	close(ch)
}
