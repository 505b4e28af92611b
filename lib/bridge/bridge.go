// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
)

// Source identifies which pipe a line arrived on.
type Source int

const (
	// Stdout lines may contain framed protocol events.
	Stdout Source = iota

	// Stderr lines are diagnostics only, never parsed as protocol.
	Stderr
)

// String returns the pipe name.
func (source Source) String() string {
	if source == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one line of child process output.
type Line struct {
	Source Source
	Text   string
}

// Spec describes the child process to spawn.
type Spec struct {
	// Command is the executable path or name.
	Command string

	// Args are the command arguments, excluding the command itself.
	Args []string

	// Dir is the working directory. Empty means the parent's.
	Dir string

	// Env is the complete environment for the child. The parent's
	// environment is never inherited; a nil or empty map spawns the
	// child with an empty environment.
	Env map[string]string
}

// ExitError reports a child process that exited with a non-zero code.
type ExitError struct {
	// Code is the exit code.
	Code int
}

func (err *ExitError) Error() string {
	return fmt.Sprintf("process exited with code %d", err.Code)
}

// Stream is the output of one child process: a finite, non-restartable
// sequence of lines terminated by an exit status. Create with Execute.
type Stream struct {
	command *exec.Cmd
	lines   chan Line
	pumps   sync.WaitGroup

	waitOnce sync.Once
	waitErr  error
}

// Execute spawns the child described by spec and starts reading both
// pipes. The returned Stream's Lines channel must be drained before
// (or concurrently with) calling Wait, or a child that fills a pipe
// buffer will stall.
//
// Cancelling ctx kills the child.
func Execute(ctx context.Context, spec Spec) (*Stream, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("empty command")
	}

	command := exec.CommandContext(ctx, spec.Command, spec.Args...)
	command.Dir = spec.Dir
	command.Env = flattenEnv(spec.Env)

	stdout, err := command.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := command.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", spec.Command, err)
	}

	stream := &Stream{
		command: command,
		// Buffered so a short burst of output does not block the
		// child on a slow consumer.
		lines: make(chan Line, 64),
	}

	stream.pumps.Add(2)
	go stream.pump(Stdout, stdout)
	go stream.pump(Stderr, stderr)
	go func() {
		stream.pumps.Wait()
		close(stream.lines)
	}()

	return stream, nil
}

// Lines returns the channel of output lines. It is closed once both
// pipes have drained, which happens at (or just before) process exit.
func (stream *Stream) Lines() <-chan Line {
	return stream.lines
}

// Wait blocks until the process exits and all output has been
// delivered. Returns nil for exit code 0, *ExitError for a non-zero
// exit, or the underlying error when the process could not run. Safe
// to call more than once.
func (stream *Stream) Wait() error {
	stream.waitOnce.Do(func() {
		// The pipes must drain before exec.Cmd.Wait closes them.
		stream.pumps.Wait()

		err := stream.command.Wait()
		if err == nil {
			return
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			stream.waitErr = &ExitError{Code: exitErr.ExitCode()}
			return
		}
		stream.waitErr = err
	})
	return stream.waitErr
}

// Kill terminates the child process immediately. The stream still
// drains and Wait still returns — callers cancel by killing, then
// consume the (now truncated) remainder as usual.
func (stream *Stream) Kill() error {
	if stream.command.Process == nil {
		return fmt.Errorf("process not started")
	}
	if err := stream.command.Process.Kill(); err != nil {
		// The process may have already exited.
		if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("killing process: %w", err)
	}
	return nil
}

// pump reads one pipe line by line into the shared channel.
func (stream *Stream) pump(source Source, pipe io.Reader) {
	defer stream.pumps.Done()

	scanner := bufio.NewScanner(pipe)
	// Agents can produce long lines (framed events carrying document
	// fragments), so grow well past the scanner default.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		stream.lines <- Line{Source: source, Text: scanner.Text()}
	}
	// Scanner errors (closed pipe on kill, over-long line) end this
	// pipe's contribution; the exit status from Wait is the
	// authoritative outcome.
}

// flattenEnv converts the environment map to the KEY=VALUE slice form
// exec.Cmd wants, sorted for deterministic spawn behavior.
func flattenEnv(env map[string]string) []string {
	flat := make([]string, 0, len(env))
	for key, value := range env {
		flat = append(flat, key+"="+value)
	}
	sort.Strings(flat)
	return flat
}
