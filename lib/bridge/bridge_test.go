// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docket-foundation/docket/lib/testutil"
)

// collect drains a stream to completion and returns the lines split
// by source, plus the Wait result.
func collect(t *testing.T, stream *Stream) (stdout, stderr []string, waitErr error) {
	t.Helper()

	for line := range stream.Lines() {
		switch line.Source {
		case Stdout:
			stdout = append(stdout, line.Text)
		case Stderr:
			stderr = append(stderr, line.Text)
		}
	}
	return stdout, stderr, stream.Wait()
}

func TestExecute_StdoutLines(t *testing.T) {
	t.Parallel()

	stream, err := Execute(context.Background(), Spec{
		Command: "/bin/sh",
		Args:    []string{"-c", "echo one; echo two; echo three"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	stdout, stderr, waitErr := collect(t, stream)
	if waitErr != nil {
		t.Fatalf("Wait: %v", waitErr)
	}
	want := []string{"one", "two", "three"}
	if len(stdout) != len(want) {
		t.Fatalf("stdout = %v, want %v", stdout, want)
	}
	for i := range want {
		if stdout[i] != want[i] {
			t.Errorf("stdout[%d] = %q, want %q", i, stdout[i], want[i])
		}
	}
	if len(stderr) != 0 {
		t.Errorf("stderr = %v, want empty", stderr)
	}
}

func TestExecute_StderrSeparate(t *testing.T) {
	t.Parallel()

	stream, err := Execute(context.Background(), Spec{
		Command: "/bin/sh",
		Args:    []string{"-c", "echo out; echo diag >&2"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	stdout, stderr, waitErr := collect(t, stream)
	if waitErr != nil {
		t.Fatalf("Wait: %v", waitErr)
	}
	if len(stdout) != 1 || stdout[0] != "out" {
		t.Errorf("stdout = %v, want [out]", stdout)
	}
	if len(stderr) != 1 || stderr[0] != "diag" {
		t.Errorf("stderr = %v, want [diag]", stderr)
	}
}

func TestExecute_ExitCode(t *testing.T) {
	t.Parallel()

	stream, err := Execute(context.Background(), Spec{
		Command: "/bin/sh",
		Args:    []string{"-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	_, _, waitErr := collect(t, stream)
	var exitErr *ExitError
	if !errors.As(waitErr, &exitErr) {
		t.Fatalf("Wait = %v, want *ExitError", waitErr)
	}
	if exitErr.Code != 3 {
		t.Errorf("Code = %d, want 3", exitErr.Code)
	}
}

func TestExecute_EnvironmentIsolation(t *testing.T) {
	// No t.Parallel: t.Setenv forbids it.
	t.Setenv("BRIDGE_TEST_LEAKED", "should-not-appear")

	stream, err := Execute(context.Background(), Spec{
		Command: "/bin/sh",
		Args:    []string{"-c", `echo "leak=[$BRIDGE_TEST_LEAKED] pass=[$ADK_WORKSPACE]"`},
		Env:     map[string]string{"ADK_WORKSPACE": "/cases/silva"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	stdout, _, waitErr := collect(t, stream)
	if waitErr != nil {
		t.Fatalf("Wait: %v", waitErr)
	}
	if len(stdout) != 1 {
		t.Fatalf("stdout = %v, want one line", stdout)
	}
	if stdout[0] != "leak=[] pass=[/cases/silva]" {
		t.Errorf("child environment = %q, want only the supplied variables", stdout[0])
	}
}

func TestExecute_MissingBinary(t *testing.T) {
	t.Parallel()

	_, err := Execute(context.Background(), Spec{
		Command: "/nonexistent/docket-agent-binary",
	})
	if err == nil {
		t.Fatal("expected spawn failure for missing binary")
	}
}

func TestExecute_EmptyCommand(t *testing.T) {
	t.Parallel()

	_, err := Execute(context.Background(), Spec{})
	if err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestStream_Kill(t *testing.T) {
	t.Parallel()

	stream, err := Execute(context.Background(), Spec{
		Command: "/bin/sh",
		Args:    []string{"-c", "echo started; sleep 60"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Wait for the first line so the process is demonstrably running.
	line := testutil.RequireReceive(t, stream.Lines(), 5*time.Second, "waiting for child output")
	if line.Text != "started" {
		t.Fatalf("first line = %q, want started", line.Text)
	}

	if err := stream.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	_, _, waitErr := collect(t, stream)
	if waitErr == nil {
		t.Fatal("Wait after Kill = nil, want an error")
	}
}

func TestExecute_ContextCancelKillsChild(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := Execute(ctx, Spec{
		Command: "/bin/sh",
		Args:    []string{"-c", "sleep 60"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range stream.Lines() {
		}
		stream.Wait()
	}()
	testutil.RequireClosed(t, done, 10*time.Second, "cancelled child exits")
}

func TestExecute_WorkingDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stream, err := Execute(context.Background(), Spec{
		Command: "/bin/sh",
		Args:    []string{"-c", "pwd"},
		Dir:     dir,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	stdout, _, waitErr := collect(t, stream)
	if waitErr != nil {
		t.Fatalf("Wait: %v", waitErr)
	}
	if len(stdout) != 1 || stdout[0] != dir {
		t.Errorf("pwd = %v, want [%s]", stdout, dir)
	}
}
