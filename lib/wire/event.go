// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType classifies events on the agent stdout stream.
type EventType string

const (
	// EventTypeSessionCreated is emitted once when the agent has
	// bound itself to a case workspace.
	EventTypeSessionCreated EventType = "session_created"

	// EventTypeLoopStatus is a progress report from the agent's
	// pipeline loop.
	EventTypeLoopStatus EventType = "loop_status"

	// EventTypeCheckpointCreated signals a phase boundary at which
	// the agent wants workspace state snapshotted.
	EventTypeCheckpointCreated EventType = "checkpoint_created"

	// EventTypeCLIResult is the final result of an agent CLI
	// invocation. Each invocation emits exactly one, immediately
	// before exiting.
	EventTypeCLIResult EventType = "cli_result"
)

// Event is a structured message embedded in the agent's stdout stream.
// Exactly one of the typed payload pointers is set for recognized
// types; Raw always holds the original "data" JSON so unrecognized
// types survive round trips untyped.
type Event struct {
	// Type classifies the event. Unknown values are tolerated.
	Type EventType `json:"type"`

	// Timestamp is the agent-reported event time, preserved as the
	// original string (agents emit ISO 8601 with varying precision).
	Timestamp string `json:"timestamp"`

	// Raw is the unparsed "data" payload.
	Raw json.RawMessage `json:"data,omitempty"`

	// SessionCreated is set for EventTypeSessionCreated events.
	SessionCreated *SessionCreatedData `json:"-"`

	// LoopStatus is set for EventTypeLoopStatus events.
	LoopStatus *LoopStatusData `json:"-"`

	// CheckpointCreated is set for EventTypeCheckpointCreated events.
	CheckpointCreated *CheckpointCreatedData `json:"-"`

	// CLIResult is set for EventTypeCLIResult events.
	CLIResult *CLIResultData `json:"-"`
}

// SessionCreatedData announces the session an agent run is bound to.
type SessionCreatedData struct {
	// SessionID is the agent-side session identifier.
	SessionID string `json:"session_id"`

	// CaseID is the case the session belongs to.
	CaseID string `json:"case_id,omitempty"`

	// CasePath is the workspace directory the agent is sandboxed to.
	CasePath string `json:"case_path,omitempty"`

	// GitCommit is the checkpoint hash recorded at session start,
	// when the agent created one itself.
	GitCommit string `json:"git_commit,omitempty"`
}

// LoopStatusData reports pipeline loop progress.
type LoopStatusData struct {
	// State is the loop state (e.g. "running", "paused", "completed").
	State string `json:"state"`

	// CurrentPhase names the pipeline phase in progress.
	CurrentPhase string `json:"current_phase"`

	// ProgressPercent is overall progress in [0, 100].
	ProgressPercent float64 `json:"progress_percent"`

	// CurrentIteration and MaxIterations bound the loop when the
	// agent reports them; zero when it does not.
	CurrentIteration int `json:"current_iteration,omitempty"`
	MaxIterations    int `json:"max_iterations,omitempty"`
}

// CheckpointCreatedData signals a phase boundary snapshot request.
type CheckpointCreatedData struct {
	// CheckpointPath is the agent-side checkpoint artifact path.
	CheckpointPath string `json:"checkpoint_path,omitempty"`

	// Phase is the pipeline phase the checkpoint closes.
	Phase string `json:"phase,omitempty"`

	// CommitHash is set when the agent committed the snapshot itself.
	CommitHash string `json:"commit_hash,omitempty"`
}

// CLIResultData is the terminal result of one agent CLI invocation.
type CLIResultData struct {
	// Success reports whether the invocation succeeded.
	Success bool `json:"success"`

	// Data is the command-specific payload, preserved as raw JSON.
	Data json.RawMessage `json:"data,omitempty"`

	// Error is the failure description when Success is false.
	Error string `json:"error,omitempty"`
}

// envelope is the on-wire shape of every event.
type envelope struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// decodeEvent parses the JSON between a delimiter pair into an Event,
// decoding the typed payload for recognized types. Unknown types are
// not an error: the raw payload is retained and the typed pointers
// stay nil.
func decodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("parsing event envelope: %w", err)
	}

	event := Event{
		Type:      env.Type,
		Timestamp: env.Timestamp,
		Raw:       env.Data,
	}

	// An absent or null data payload is legal for every type.
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return event, nil
	}

	switch env.Type {
	case EventTypeSessionCreated:
		payload := &SessionCreatedData{}
		if err := json.Unmarshal(env.Data, payload); err != nil {
			return Event{}, fmt.Errorf("parsing session_created data: %w", err)
		}
		event.SessionCreated = payload
	case EventTypeLoopStatus:
		payload := &LoopStatusData{}
		if err := json.Unmarshal(env.Data, payload); err != nil {
			return Event{}, fmt.Errorf("parsing loop_status data: %w", err)
		}
		event.LoopStatus = payload
	case EventTypeCheckpointCreated:
		payload := &CheckpointCreatedData{}
		if err := json.Unmarshal(env.Data, payload); err != nil {
			return Event{}, fmt.Errorf("parsing checkpoint_created data: %w", err)
		}
		event.CheckpointCreated = payload
	case EventTypeCLIResult:
		payload := &CLIResultData{}
		if err := json.Unmarshal(env.Data, payload); err != nil {
			return Event{}, fmt.Errorf("parsing cli_result data: %w", err)
		}
		event.CLIResult = payload
	}

	return event, nil
}

// NewEvent builds an Event of the given type with a marshalled
// payload and the current time. Used by emitters (the mock agent,
// tests); the orchestrator side only parses.
func NewEvent(eventType EventType, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshalling %s payload: %w", eventType, err)
	}
	event := Event{
		Type:      eventType,
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Raw:       data,
	}
	switch typed := payload.(type) {
	case *SessionCreatedData:
		event.SessionCreated = typed
	case *LoopStatusData:
		event.LoopStatus = typed
	case *CheckpointCreatedData:
		event.CheckpointCreated = typed
	case *CLIResultData:
		event.CLIResult = typed
	}
	return event, nil
}
