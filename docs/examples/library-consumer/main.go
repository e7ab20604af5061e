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

// Minimal consumer of the shellpool client library: dial a running daemon,
// open (or reuse) a bash session and run one command in it.
//
// Start the daemon first:
//
//	shellpool serve
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shellpool/shellpool/pkg/api"
	"github.com/shellpool/shellpool/pkg/client"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	socket := filepath.Join(home, ".shellpool", "run", "pool.sock")

	pool, err := client.Dial(socket, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer pool.Close()

	opened, err := pool.OpenSession(&api.OpenSessionArgs{Kind: "bash", Comment: "library consumer"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(opened.Message)

	ran, err := pool.RunCommand(&api.RunCommandArgs{
		SessionID: string(opened.Session.ID),
		Command:   "uname -a",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(ran.Message)
}
