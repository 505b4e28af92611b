// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"path/filepath"

	"github.com/docket-foundation/docket/lib/config"
	"github.com/docket-foundation/docket/lib/registry"
)

// ResolveWorkspaceRoot returns the workspace root to operate in: the
// path selected with `docket workspace set` when one exists, otherwise
// the configured default.
func ResolveWorkspaceRoot(cfg *config.Config) (string, error) {
	store := registry.NewWorkspaceStore(cfg.Workspace.StateFile)
	root, err := store.Load()
	if err != nil {
		return "", Internal("loading workspace selection: %w", err)
	}
	if root == "" {
		root = cfg.Workspace.Root
	}
	return root, nil
}

// OpenRegistry opens the case registry in the resolved workspace root.
func OpenRegistry(cfg *config.Config) (*registry.Registry, error) {
	root, err := ResolveWorkspaceRoot(cfg)
	if err != nil {
		return nil, err
	}
	cases, err := registry.New(root)
	if err != nil {
		return nil, Internal("opening case registry: %w", err)
	}
	return cases, nil
}

// ResolveCaseDir resolves the case directory a command operates on:
// an explicit --path wins, otherwise the case id is looked up in the
// registry.
func ResolveCaseDir(cases *registry.Registry, caseID, path string) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", Validation("resolving --path: %w", err)
		}
		return absPath, nil
	}
	if caseID == "" {
		return "", Validation("a case id argument or --path is required")
	}
	entry, err := cases.GetCase(caseID)
	if err != nil {
		return "", NotFound("case %s: %w", caseID, err)
	}
	return entry.ContextPath, nil
}
