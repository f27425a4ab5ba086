// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ExecHandler runs an external program. The invocation's arguments are
// appended to Argv. A non-zero exit is returned as the *exec.ExitError,
// which carries the exit code.
type ExecHandler struct {
	Argv []string
}

// Run starts the program and waits for it.
func (h ExecHandler) Run(ctx context.Context, invocation *Invocation) error {
	if len(h.Argv) == 0 {
		return fmt.Errorf("exec handler has an empty argv")
	}
	args := append(append([]string{}, h.Argv[1:]...), invocation.Args...)
	command := exec.CommandContext(ctx, h.Argv[0], args...)
	command.Dir = invocation.Dir
	command.Env = append(os.Environ(), invocation.Env...)
	command.Stdin = invocation.Stdin
	command.Stdout = invocation.Stdout
	command.Stderr = invocation.Stderr
	return command.Run()
}
