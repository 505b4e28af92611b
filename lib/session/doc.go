// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package session owns the lifecycle of agent sessions: one case, one
// agent-run context, one child process at a time.
//
// A session moves CREATED → RUNNING → COMPLETED | FAILED, with
// transient checkpointing on phase boundaries while running. The
// Manager persists SessionInfo under the case's .adk_state/ directory
// after every meaningful transition, so a crashed or killed run is
// always inspectable afterwards: the session id, its status, and its
// last good checkpoint survive the process.
//
// The Manager never runs two sessions against the same case
// concurrently — the case directory, its checkpoint history, and its
// SessionInfo file are exclusively owned by the one active session.
// Different cases run independently; nothing here imposes a global
// concurrency cap.
package session
