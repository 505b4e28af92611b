// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// repository is the thin git CLI wrapper under Backend. Every command
// targets the case directory via "git -C <dir>"; there is no default
// directory.
type repository struct {
	dir string
}

// run executes a git command in the case directory and returns stdout.
// Stderr is captured separately and folded into the error on failure.
func (repo *repository) run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repo.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), repo.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// gitAvailable reports whether a usable git binary is on PATH. Checked
// once at Backend construction so every later failure is a real error,
// not a missing toolchain.
func gitAvailable() bool {
	return exec.Command("git", "--version").Run() == nil
}
