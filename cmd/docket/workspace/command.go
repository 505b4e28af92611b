// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace implements the "docket workspace" command group:
// selecting and inspecting the case-storage root.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/docket-foundation/docket/cmd/docket/cli"
	"github.com/docket-foundation/docket/lib/registry"
)

// Command returns the "workspace" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "workspace",
		Summary: "Select and inspect the case-storage root",
		Description: `Select and inspect the workspace root.

The workspace root is the directory under which all case directories
and the case registry live. It is persisted in the workspace state
file, so every later command operates on the same root without
repeating it. When no workspace has been set, the configured default
root is used.`,
		Subcommands: []*cli.Command{
			setCommand(),
			showCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Point Docket at a directory for case storage",
				Command:     "docket workspace set ~/legal-cases",
			},
			{
				Description: "Show the active workspace root",
				Command:     "docket workspace show --json",
			},
		},
	}
}

type setParams struct {
	cli.ConfigFlag
	cli.JSONOutput
}

// workspaceResult is the JSON shape of workspace set/show output.
type workspaceResult struct {
	Root     string `json:"workspace_root"`
	Selected bool   `json:"selected"`
}

func setCommand() *cli.Command {
	var params setParams
	return &cli.Command{
		Name:    "set",
		Summary: "Set the workspace root",
		Usage:   "docket workspace set <path> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("workspace set", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("exactly one path argument is required\n\nUsage: docket workspace set <path>")
			}
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}

			absRoot, err := filepath.Abs(args[0])
			if err != nil {
				return cli.Validation("resolving path: %w", err)
			}
			if err := os.MkdirAll(absRoot, 0o755); err != nil {
				return cli.Internal("creating workspace root: %w", err)
			}

			store := registry.NewWorkspaceStore(cfg.Workspace.StateFile)
			if err := store.Save(absRoot); err != nil {
				return cli.Internal("saving workspace selection: %w", err)
			}

			if done, err := params.EmitJSON(workspaceResult{Root: absRoot, Selected: true}); done {
				return err
			}
			fmt.Printf("workspace root set to %s\n", absRoot)
			return nil
		},
	}
}

type showParams struct {
	cli.ConfigFlag
	cli.JSONOutput
}

func showCommand() *cli.Command {
	var params showParams
	return &cli.Command{
		Name:    "show",
		Summary: "Show the active workspace root",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("workspace show", &params)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}

			store := registry.NewWorkspaceStore(cfg.Workspace.StateFile)
			selected, err := store.Load()
			if err != nil {
				return cli.Internal("loading workspace selection: %w", err)
			}

			root := selected
			if root == "" {
				root = cfg.Workspace.Root
			}
			if done, err := params.EmitJSON(workspaceResult{Root: root, Selected: selected != ""}); done {
				return err
			}
			if selected == "" {
				fmt.Printf("%s (configured default, no workspace set)\n", root)
			} else {
				fmt.Println(root)
			}
			return nil
		},
	}
}
