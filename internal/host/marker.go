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
	"bytes"
	"strconv"
	"strings"
)

// Command completion is reported in-band: Execute appends a printf that
// emits an OSC 633-style control sequence carrying an execution token and
// the shell's $?. The PTY reader scans output for these sequences.
//
//	ESC ] 6 3 3 ; D ; <token> [ ; <exit> ] BEL
const (
	markerPrefix = "\x1b]633;D;"
	markerEnd    = '\a'

	// Markers never exceed this; bounding the carry keeps the scanner from
	// buffering arbitrary output while waiting for a split sequence.
	markerCarryMax = 64
)

type completionMark struct {
	token    string
	exitCode *int
}

// markerScanner finds completion sequences in a PTY output stream. Chunks
// may split a sequence anywhere; the scanner carries a bounded tail between
// calls. Not safe for concurrent use.
type markerScanner struct {
	carry []byte
}

func (s *markerScanner) scan(chunk []byte) []completionMark {
	data := chunk
	if len(s.carry) > 0 {
		data = append(s.carry, chunk...) //nolint:gocritic // carry is consumed below
		s.carry = nil
	}

	var marks []completionMark
	for {
		start := bytes.Index(data, []byte(markerPrefix))
		if start < 0 {
			s.carry = tail(data, markerCarryMax)
			return marks
		}

		rest := data[start+len(markerPrefix):]
		end := bytes.IndexByte(rest, markerEnd)
		if end < 0 {
			if len(data)-start > markerCarryMax {
				// Unterminated and over budget: discard as noise.
				data = data[start+len(markerPrefix):]
				continue
			}
			s.carry = append([]byte(nil), data[start:]...)
			return marks
		}

		marks = append(marks, parseMark(string(rest[:end])))
		data = rest[end+1:]
	}
}

func parseMark(payload string) completionMark {
	token, exitStr, hasExit := strings.Cut(payload, ";")
	m := completionMark{token: token}
	if !hasExit {
		return m
	}
	if code, err := strconv.Atoi(exitStr); err == nil {
		m.exitCode = &code
	}
	return m
}

// tail keeps the last max bytes of data, copied so the caller's buffer can
// be reused.
func tail(data []byte, max int) []byte {
	if len(data) == 0 {
		return nil
	}
	if len(data) > max {
		data = data[len(data)-max:]
	}
	return append([]byte(nil), data...)
}
