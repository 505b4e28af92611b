// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Status is the lifecycle state of a session.
type Status string

const (
	// StatusActive means the session owns its case and may run the
	// agent pipeline.
	StatusActive Status = "active"

	// StatusCompleted means the agent run finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed means the agent run failed or was killed. The
	// last good checkpoint remains the durable high-water mark.
	StatusFailed Status = "failed"
)

// Session errors.
var (
	// ErrSessionActive means a session for the case is already
	// active; the existing session is left untouched.
	ErrSessionActive = errors.New("session already active for case")

	// ErrNotFound means no session with the given id is known.
	ErrNotFound = errors.New("session not found")
)

// stateDirName and infoFileName locate the persisted SessionInfo:
// <casePath>/.adk_state/.adk_session.json. The names are a contract
// with external agents, which read the same file.
const (
	stateDirName = ".adk_state"
	infoFileName = ".adk_session.json"
)

// Info is the persisted record of one session.
type Info struct {
	// SessionID is generated at session start.
	SessionID string `json:"session_id"`

	// CaseID ties the session to its registry entry.
	CaseID string `json:"case_id"`

	// CasePath is the absolute case directory the session owns.
	CasePath string `json:"case_path"`

	// CreatedAt is the session start time.
	CreatedAt time.Time `json:"created_at"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// LastCheckpoint is the hash of the most recent checkpoint
	// created during this session.
	LastCheckpoint string `json:"last_checkpoint,omitempty"`

	// Error records the failure reason for failed sessions.
	Error string `json:"error,omitempty"`
}

// infoPath returns the SessionInfo location for a case directory.
func infoPath(casePath string) string {
	return filepath.Join(casePath, stateDirName, infoFileName)
}

// loadInfo reads the persisted SessionInfo for a case. Returns
// os.ErrNotExist (wrapped) when no session has ever run there.
func loadInfo(casePath string) (Info, error) {
	data, err := os.ReadFile(infoPath(casePath))
	if err != nil {
		return Info{}, fmt.Errorf("reading session info: %w", err)
	}
	info := Info{}
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("parsing session info %s: %w", infoPath(casePath), err)
	}
	return info, nil
}

// saveInfo writes SessionInfo atomically (temp file + rename) so a
// crash mid-write never leaves a torn record.
func saveInfo(info Info) error {
	dir := filepath.Join(info.CasePath, stateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating session state directory: %w", err)
	}

	file, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	defer os.Remove(file.Name())

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(info); err != nil {
		file.Close()
		return fmt.Errorf("encoding session info: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("syncing session info: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing session info: %w", err)
	}
	if err := os.Rename(file.Name(), infoPath(info.CasePath)); err != nil {
		return fmt.Errorf("replacing session info: %w", err)
	}
	return nil
}
