// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// WorkspaceStore persists the single path designating the user's
// case-storage root. It is deliberately tiny: one JSON file, one
// field, explicit load and save — never an ambient singleton.
type WorkspaceStore struct {
	path  string
	mutex sync.Mutex
}

// workspaceState is the on-disk shape of the store.
type workspaceState struct {
	Root string `json:"workspace_root"`
}

// NewWorkspaceStore returns a store persisting at path (typically
// <config dir>/workspace.json).
func NewWorkspaceStore(path string) *WorkspaceStore {
	return &WorkspaceStore{path: path}
}

// Load returns the configured workspace root, or empty when none has
// been set yet.
func (store *WorkspaceStore) Load() (string, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	data, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading workspace store: %w", err)
	}
	state := workspaceState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return "", fmt.Errorf("parsing workspace store %s: %w", store.path, err)
	}
	return state.Root, nil
}

// Save records the workspace root.
func (store *WorkspaceStore) Save(root string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if root == "" {
		return fmt.Errorf("empty workspace root")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving workspace root: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(store.path), 0o755); err != nil {
		return fmt.Errorf("creating workspace store directory: %w", err)
	}
	data, err := json.MarshalIndent(workspaceState{Root: absRoot}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding workspace store: %w", err)
	}
	if err := os.WriteFile(store.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing workspace store: %w", err)
	}
	return nil
}
