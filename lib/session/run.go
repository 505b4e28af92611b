// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/docket-foundation/docket/lib/bridge"
	"github.com/docket-foundation/docket/lib/checkpoint"
	"github.com/docket-foundation/docket/lib/wire"
)

// Result is the outcome of one pipeline run.
type Result struct {
	// Success mirrors the terminal session status.
	Success bool `json:"success"`

	// ExitCode is the agent process exit code; -1 when the process
	// never ran or was killed by a signal.
	ExitCode int `json:"exit_code"`

	// Error is the failure description for unsuccessful runs,
	// extracted from the last cli_result when one was seen.
	Error string `json:"error,omitempty"`

	// Data is the payload of the final cli_result event.
	Data json.RawMessage `json:"data,omitempty"`

	// Checkpoints are the snapshots created during this run, in
	// creation order.
	Checkpoints []checkpoint.Checkpoint `json:"checkpoints,omitempty"`

	// LastStatus is the final loop_status observed.
	LastStatus *wire.LoopStatusData `json:"last_status,omitempty"`

	// Summary aggregates the event counts of the run.
	Summary Summary `json:"summary"`

	// Duration is the wall-clock run time.
	Duration time.Duration `json:"duration"`
}

// Run executes the agent pipeline for a started session. It spawns
// the external agent sandboxed to the session's case directory,
// pumps its output line by line, checkpoints on the phase boundaries
// the agent signals, and finalizes the session as completed or
// failed. The returned error is non-nil exactly when the run failed;
// the Result carries the diagnostics either way.
func (manager *Manager) Run(ctx context.Context, sessionID string, consultation json.RawMessage) (*Result, error) {
	casePath, err := manager.findCasePath(sessionID)
	if err != nil {
		return nil, err
	}
	info, err := loadInfo(casePath)
	if err != nil {
		return nil, err
	}
	if info.SessionID != sessionID {
		return nil, fmt.Errorf("session %s: case %s now belongs to session %s: %w",
			sessionID, casePath, info.SessionID, ErrNotFound)
	}
	if info.Status != StatusActive {
		return nil, fmt.Errorf("session %s is %s, not active", sessionID, info.Status)
	}

	backend, err := checkpoint.New(casePath)
	if err != nil {
		return nil, err
	}

	args := append([]string{}, manager.config.Agent.Args...)
	args = append(args, "run",
		"--session-id", sessionID,
		"--consultation", string(consultation),
	)

	started := time.Now()
	stream, err := bridge.Execute(ctx, bridge.Spec{
		Command: manager.config.Agent.Command,
		Args:    args,
		Dir:     casePath,
		Env:     manager.sandboxEnv(casePath),
	})
	if err != nil {
		// The process never ran: fail the session so the outcome is
		// inspectable, keep the pre-run checkpoint untouched.
		manager.finalize(&info, StatusFailed, fmt.Sprintf("spawning agent: %v", err))
		return nil, fmt.Errorf("spawning agent for session %s: %w", sessionID, err)
	}

	manager.mutex.Lock()
	manager.running[sessionID] = stream
	manager.mutex.Unlock()
	defer func() {
		manager.mutex.Lock()
		delete(manager.running, sessionID)
		delete(manager.progress, sessionID)
		manager.mutex.Unlock()
	}()

	eventLog, err := NewEventLogWriter(filepath.Join(casePath, stateDirName, eventLogName))
	if err != nil {
		stream.Kill()
		manager.finalize(&info, StatusFailed, err.Error())
		return nil, err
	}
	defer eventLog.Close()

	result := &Result{ExitCode: -1}
	var lastResult *wire.CLIResultData

	for line := range stream.Lines() {
		if line.Source == bridge.Stderr {
			// Stderr is diagnostics only, never protocol.
			manager.forwardLine(sessionID, line)
			continue
		}

		event, rest, parseErr := wire.ParseLine(line.Text)
		if parseErr != nil {
			if !errors.Is(parseErr, wire.ErrNoEvent) {
				// Malformed frame: recovered locally. The line is
				// still forwarded below so nothing is silently lost.
				manager.logger.Warn("malformed event frame",
					"session_id", sessionID,
					"error", parseErr,
				)
			}
			manager.forwardLine(sessionID, line)
			continue
		}

		if err := eventLog.Write(event); err != nil {
			manager.logger.Warn("writing session event log",
				"session_id", sessionID,
				"error", err,
			)
		}

		manager.handleEvent(ctx, sessionID, &info, backend, event, result, &lastResult)

		if manager.config.OnEvent != nil {
			manager.config.OnEvent(sessionID, event)
		}
		if rest != "" {
			manager.forwardLine(sessionID, bridge.Line{Source: bridge.Stdout, Text: rest})
		}
	}

	waitErr := stream.Wait()
	result.Duration = time.Since(started)
	result.Summary = eventLog.Summary()
	if lastResult != nil {
		result.Data = lastResult.Data
	}

	var runErr error
	switch {
	case waitErr == nil:
		result.Success = true
		result.ExitCode = 0
		manager.finalize(&info, StatusCompleted, "")
	default:
		var exitErr *bridge.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.Code
		}
		// Prefer the agent's own diagnosis when it reported one.
		if lastResult != nil && !lastResult.Success && lastResult.Error != "" {
			result.Error = lastResult.Error
		} else {
			result.Error = waitErr.Error()
		}
		manager.finalize(&info, StatusFailed, result.Error)
		runErr = fmt.Errorf("session %s: %s", sessionID, result.Error)
	}

	manager.archive(sessionID, casePath, eventLog)

	manager.logger.Info("pipeline run finished",
		"session_id", sessionID,
		"status", info.Status,
		"exit_code", result.ExitCode,
		"checkpoints", len(result.Checkpoints),
		"duration", result.Duration,
	)
	return result, runErr
}

// handleEvent applies one structured event to the run state.
// Checkpoint creation happens inline, synchronously: by the time the
// next line is read, the snapshot either exists or has been reported
// failed — a killed run never leaves a checkpoint half in flight.
func (manager *Manager) handleEvent(
	ctx context.Context,
	sessionID string,
	info *Info,
	backend *checkpoint.Backend,
	event wire.Event,
	result *Result,
	lastResult **wire.CLIResultData,
) {
	switch event.Type {
	case wire.EventTypeLoopStatus:
		if event.LoopStatus == nil {
			return
		}
		manager.mutex.Lock()
		manager.progress[sessionID] = *event.LoopStatus
		manager.mutex.Unlock()
		status := *event.LoopStatus
		result.LastStatus = &status

	case wire.EventTypeCheckpointCreated:
		phase, message := "", "Phase boundary"
		if event.CheckpointCreated != nil {
			if event.CheckpointCreated.Phase != "" {
				phase = event.CheckpointCreated.Phase
				message = "Phase " + phase + " completed"
			}
		}
		created, err := backend.CreateCheckpoint(ctx, phase, message)
		if err != nil {
			// A failed snapshot does not interrupt the run; the
			// previous checkpoint stays the high-water mark.
			manager.logger.Warn("checkpoint failed, continuing",
				"session_id", sessionID,
				"phase", phase,
				"error", err,
			)
			return
		}
		result.Checkpoints = append(result.Checkpoints, created)
		info.LastCheckpoint = created.CommitHash
		if err := saveInfo(*info); err != nil {
			manager.logger.Warn("persisting session info after checkpoint",
				"session_id", sessionID,
				"error", err,
			)
		}

	case wire.EventTypeCLIResult:
		if event.CLIResult != nil {
			*lastResult = event.CLIResult
		}
	}
}

// forwardLine delivers a plain output line to the configured observer.
func (manager *Manager) forwardLine(sessionID string, line bridge.Line) {
	if manager.config.OnLine != nil {
		manager.config.OnLine(sessionID, line)
	}
}

// finalize records the terminal session state. Persistence failures
// are logged, not returned: the run outcome has already been decided.
func (manager *Manager) finalize(info *Info, status Status, errorMessage string) {
	info.Status = status
	info.Error = errorMessage
	if err := saveInfo(*info); err != nil {
		manager.logger.Warn("persisting terminal session info",
			"session_id", info.SessionID,
			"error", err,
		)
	}
}

// archive writes the terminal event archive. Best effort: an archive
// failure is a warning, never a run failure.
func (manager *Manager) archive(sessionID, casePath string, eventLog *EventLogWriter) {
	events := eventLog.Events()
	if len(events) == 0 {
		return
	}
	digest, err := WriteArchive(casePath, sessionID, events)
	if err != nil {
		manager.logger.Warn("archiving session events",
			"session_id", sessionID,
			"error", err,
		)
		return
	}
	manager.logger.Info("session events archived",
		"session_id", sessionID,
		"events", len(events),
		"digest", digest,
	)
}
