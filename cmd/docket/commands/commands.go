// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete Docket CLI command tree. The
// docket binary and any embedding shell import this package to share
// a single source of truth for the available operations.
package commands

import (
	"fmt"

	casescmd "github.com/docket-foundation/docket/cmd/docket/cases"
	checkpointcmd "github.com/docket-foundation/docket/cmd/docket/checkpoint"
	"github.com/docket-foundation/docket/cmd/docket/cli"
	sessioncmd "github.com/docket-foundation/docket/cmd/docket/session"
	workspacecmd "github.com/docket-foundation/docket/cmd/docket/workspace"
	"github.com/docket-foundation/docket/lib/version"
)

// Root builds and returns the complete Docket CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "docket",
		Description: `Docket: case-sandboxed agent session orchestration.

Manage a workspace of isolated case directories, run external agent
pipelines sandboxed to one case at a time, and keep a checkpoint
audit trail of everything the agent changes.`,
		Subcommands: []*cli.Command{
			workspacecmd.Command(),
			casescmd.Command(),
			sessioncmd.Command(),
			checkpointcmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("docket %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Select the workspace root",
				Command:     "docket workspace set ~/legal-workspace",
			},
			{
				Description: "Create a case for a client",
				Command:     "docket case create 'Smith v. Jones' --client smith",
			},
			{
				Description: "Start a session and run the pipeline",
				Command:     "docket session start-and-run 4f7c... --consultation-file intake.jsonc",
			},
			{
				Description: "Inspect a case's snapshot history",
				Command:     "docket checkpoint history 4f7c...",
			},
		},
	}
}
