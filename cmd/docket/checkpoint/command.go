// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package checkpoint implements the "docket checkpoint" command
// group: inspecting and rewinding the snapshot history of a case.
package checkpoint

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/docket-foundation/docket/cmd/docket/cli"
	checkpointlib "github.com/docket-foundation/docket/lib/checkpoint"
	"github.com/docket-foundation/docket/lib/config"
)

// Command returns the "checkpoint" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "checkpoint",
		Summary: "Inspect and roll back case snapshots",
		Description: `Manage case checkpoints.

Every case directory carries its own snapshot history: the pre-run
checkpoint, one checkpoint per completed pipeline phase, and any
manual checkpoints. History shows them newest first; rollback rewinds
the working tree to a snapshot while keeping the full audit trail.`,
		Subcommands: []*cli.Command{
			createCommand(),
			historyCommand(),
			rollbackCommand(),
			statusCommand(),
			showCommand(),
			restoreCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Show the snapshot history of a case",
				Command:     "docket checkpoint history 4f7c... --limit 10",
			},
			{
				Description: "Rewind a case to an earlier snapshot",
				Command:     "docket checkpoint rollback 4f7c... a1b2c3d",
			},
			{
				Description: "Restore one file from a snapshot",
				Command:     "docket checkpoint restore 4f7c... a1b2c3d drafts/motion.md",
			},
		},
	}
}

// openBackend resolves the target case and opens its snapshot store.
// Every subcommand names the case by id or by explicit directory.
func openBackend(configFlag *cli.ConfigFlag, caseID, path string) (*checkpointlib.Backend, error) {
	cfg, err := configFlag.LoadConfig()
	if err != nil {
		return nil, err
	}
	caseDir, err := resolveCase(cfg, caseID, path)
	if err != nil {
		return nil, err
	}
	backend, err := checkpointlib.New(caseDir)
	if err != nil {
		return nil, cli.Internal("opening checkpoint store: %w", err)
	}
	return backend, nil
}

func resolveCase(cfg *config.Config, caseID, path string) (string, error) {
	if path != "" {
		return cli.ResolveCaseDir(nil, "", path)
	}
	cases, err := cli.OpenRegistry(cfg)
	if err != nil {
		return "", err
	}
	return cli.ResolveCaseDir(cases, caseID, "")
}

// caseArgs splits the positional arguments into an optional leading
// case id plus exactly want trailing arguments.
func caseArgs(args []string, want int, usage string) (caseID string, rest []string, err error) {
	switch len(args) {
	case want:
		return "", args, nil
	case want + 1:
		return args[0], args[1:], nil
	default:
		return "", nil, cli.Validation("wrong number of arguments\n\nUsage: %s", usage)
	}
}

type createParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Path    string `flag:"path" desc:"case directory (overrides registry lookup)"`
	Message string `flag:"message" desc:"checkpoint message" default:"Manual checkpoint"`
	Phase   string `flag:"phase" desc:"pipeline phase to attribute the checkpoint to"`
}

func createCommand() *cli.Command {
	var params createParams
	return &cli.Command{
		Name:    "create",
		Summary: "Create a manual checkpoint of the case's current state",
		Usage:   "docket checkpoint create [<case-id>] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("checkpoint create", &params)
		},
		Run: func(args []string) error {
			caseID, _, err := caseArgs(args, 0, "docket checkpoint create [<case-id>] [flags]")
			if err != nil {
				return err
			}
			backend, err := openBackend(&params.ConfigFlag, caseID, params.Path)
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := backend.EnsureInitialized(ctx); err != nil {
				return cli.Internal("initializing checkpoint store: %w", err)
			}
			created, err := backend.CreateCheckpoint(ctx, params.Phase, params.Message)
			if err != nil {
				return cli.Internal("creating checkpoint: %w", err)
			}
			if done, err := params.EmitJSON(created); done {
				return err
			}
			fmt.Printf("created checkpoint %s: %s\n", created.ShortHash, created.Message)
			return nil
		},
	}
}

type historyParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Path  string `flag:"path" desc:"case directory (overrides registry lookup)"`
	Limit int    `flag:"limit" desc:"maximum checkpoints to show (0 uses the configured limit)"`
}

func historyCommand() *cli.Command {
	var params historyParams
	return &cli.Command{
		Name:    "history",
		Summary: "List a case's checkpoints, newest first",
		Usage:   "docket checkpoint history [<case-id>] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("checkpoint history", &params)
		},
		Run: func(args []string) error {
			caseID, _, err := caseArgs(args, 0, "docket checkpoint history [<case-id>] [flags]")
			if err != nil {
				return err
			}
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			limit := params.Limit
			if limit <= 0 {
				limit = cfg.Checkpoint.HistoryLimit
			}
			caseDir, err := resolveCase(cfg, caseID, params.Path)
			if err != nil {
				return err
			}
			backend, err := checkpointlib.New(caseDir)
			if err != nil {
				return cli.Internal("opening checkpoint store: %w", err)
			}

			history, err := backend.History(context.Background(), limit)
			if err != nil {
				return cli.Internal("reading history: %w", err)
			}
			if done, err := params.EmitJSON(history); done {
				return err
			}
			if len(history) == 0 {
				fmt.Println("no checkpoints")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "HASH\tPHASE\tTIME\tMESSAGE")
			for _, entry := range history {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					entry.ShortHash,
					entry.Phase,
					entry.Timestamp.Format("2006-01-02 15:04"),
					entry.Message,
				)
			}
			return tw.Flush()
		},
	}
}

type rollbackParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Path string `flag:"path" desc:"case directory (overrides registry lookup)"`
}

func rollbackCommand() *cli.Command {
	var params rollbackParams
	return &cli.Command{
		Name:    "rollback",
		Summary: "Rewind the case working tree to a checkpoint",
		Usage:   "docket checkpoint rollback [<case-id>] <hash> [flags]",
		Description: `Rewind a case to an earlier checkpoint.

The working tree is reset to the snapshot's state. History is never
rewritten: the snapshots after the target remain reachable in the
audit trail.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("checkpoint rollback", &params)
		},
		Run: func(args []string) error {
			caseID, rest, err := caseArgs(args, 1, "docket checkpoint rollback [<case-id>] <hash> [flags]")
			if err != nil {
				return err
			}
			backend, err := openBackend(&params.ConfigFlag, caseID, params.Path)
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := backend.RollbackTo(ctx, rest[0]); err != nil {
				return cli.Internal("rolling back: %w", err)
			}
			head, err := backend.Head(ctx)
			if err != nil {
				return cli.Internal("reading head after rollback: %w", err)
			}
			if done, err := params.EmitJSON(head); done {
				return err
			}
			fmt.Printf("rolled back to %s: %s\n", head.ShortHash, head.Message)
			return nil
		},
	}
}

type statusParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Path string `flag:"path" desc:"case directory (overrides registry lookup)"`
}

func statusCommand() *cli.Command {
	var params statusParams
	return &cli.Command{
		Name:    "status",
		Summary: "Show uncommitted changes and the latest checkpoint",
		Usage:   "docket checkpoint status [<case-id>] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("checkpoint status", &params)
		},
		Run: func(args []string) error {
			caseID, _, err := caseArgs(args, 0, "docket checkpoint status [<case-id>] [flags]")
			if err != nil {
				return err
			}
			backend, err := openBackend(&params.ConfigFlag, caseID, params.Path)
			if err != nil {
				return err
			}
			status, err := backend.Status(context.Background())
			if err != nil {
				return cli.Internal("reading status: %w", err)
			}
			if done, err := params.EmitJSON(status); done {
				return err
			}
			fmt.Printf("checkpoints: %d\n", status.CheckpointCount)
			if status.LastCheckpoint != nil {
				fmt.Printf("latest:      %s  %s\n",
					status.LastCheckpoint.ShortHash, status.LastCheckpoint.Message)
			}
			if !status.HasChanges {
				fmt.Println("working tree clean")
				return nil
			}
			fmt.Println("uncommitted changes:")
			for _, file := range status.ChangedFiles {
				fmt.Printf("  %s\n", file)
			}
			return nil
		},
	}
}

type showParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Path string `flag:"path" desc:"case directory (overrides registry lookup)"`
}

func showCommand() *cli.Command {
	var params showParams
	return &cli.Command{
		Name:    "show",
		Summary: "Print a file's content as of a checkpoint",
		Usage:   "docket checkpoint show [<case-id>] <hash> <file> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("checkpoint show", &params)
		},
		Run: func(args []string) error {
			caseID, rest, err := caseArgs(args, 2, "docket checkpoint show [<case-id>] <hash> <file> [flags]")
			if err != nil {
				return err
			}
			backend, err := openBackend(&params.ConfigFlag, caseID, params.Path)
			if err != nil {
				return err
			}
			content, err := backend.ShowFile(context.Background(), rest[0], rest[1])
			if err != nil {
				return cli.NotFound("showing file: %w", err)
			}
			fmt.Print(content)
			return nil
		},
	}
}

type restoreParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Path string `flag:"path" desc:"case directory (overrides registry lookup)"`
}

func restoreCommand() *cli.Command {
	var params restoreParams
	return &cli.Command{
		Name:    "restore",
		Summary: "Restore one file from a checkpoint into the working tree",
		Usage:   "docket checkpoint restore [<case-id>] <hash> <file> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("checkpoint restore", &params)
		},
		Run: func(args []string) error {
			caseID, rest, err := caseArgs(args, 2, "docket checkpoint restore [<case-id>] <hash> <file> [flags]")
			if err != nil {
				return err
			}
			backend, err := openBackend(&params.ConfigFlag, caseID, params.Path)
			if err != nil {
				return err
			}
			if err := backend.RestoreFile(context.Background(), rest[0], rest[1]); err != nil {
				return cli.NotFound("restoring file: %w", err)
			}
			fmt.Printf("restored %s from %s\n", rest[1], rest[0])
			return nil
		},
	}
}
