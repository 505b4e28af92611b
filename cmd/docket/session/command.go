// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package session implements the "docket session" command group:
// starting, running, resuming, and inspecting agent sessions.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/docket-foundation/docket/cmd/docket/cli"
	"github.com/docket-foundation/docket/lib/bridge"
	"github.com/docket-foundation/docket/lib/config"
	sessionlib "github.com/docket-foundation/docket/lib/session"
)

// Command returns the "session" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Summary: "Start, run, and resume agent sessions",
		Description: `Manage agent sessions.

A session binds one agent pipeline run to one case directory. Starting
a session writes the session record into the case and takes a pre-run
checkpoint; running it spawns the external agent process sandboxed to
the case directory and consumes its event stream. Agent output is
forwarded to stderr; stdout carries only the command's own result.`,
		Subcommands: []*cli.Command{
			startCommand(),
			runCommand(),
			startAndRunCommand(),
			resumeCommand(),
			statusCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Start a session for a case",
				Command:     "docket session start 4f7c...",
			},
			{
				Description: "Run the pipeline with an inline consultation",
				Command:     `docket session run 9b1e... --consultation '{"matter":"contract review"}'`,
			},
			{
				Description: "Start and run in one step, reading the consultation from a file",
				Command:     "docket session start-and-run 4f7c... --consultation-file intake.jsonc --json",
			},
		},
	}
}

type startParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Path string `flag:"path" desc:"case directory (overrides registry lookup)"`
}

func startCommand() *cli.Command {
	var params startParams
	return &cli.Command{
		Name:    "start",
		Summary: "Start a new session for a case",
		Usage:   "docket session start <case-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("session start", &params)
		},
		Run: func(args []string) error {
			caseID, err := optionalCaseArg(args)
			if err != nil {
				return err
			}
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			casePath, err := resolveCase(cfg, caseID, params.Path)
			if err != nil {
				return err
			}
			manager, err := newManager(cfg, "session/start", false)
			if err != nil {
				return err
			}

			info, err := manager.Start(context.Background(), casePath, caseID)
			if err != nil {
				if errors.Is(err, sessionlib.ErrSessionActive) {
					return cli.Conflict("starting session: %w", err)
				}
				return cli.Internal("starting session: %w", err)
			}

			if done, err := params.EmitJSON(info); done {
				return err
			}
			fmt.Printf("started session %s\n  case:       %s\n  checkpoint: %s\n",
				info.SessionID, info.CasePath, info.LastCheckpoint)
			return nil
		},
	}
}

type runParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Consultation     string `flag:"consultation" desc:"consultation request as inline JSON"`
	ConsultationFile string `flag:"consultation-file" desc:"consultation request file (JSON, comments allowed)"`
}

func runCommand() *cli.Command {
	var params runParams
	return &cli.Command{
		Name:    "run",
		Summary: "Run the agent pipeline for a started session",
		Usage:   "docket session run <session-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("session run", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("exactly one session id is required\n\nUsage: docket session run <session-id> [flags]")
			}
			consultation, err := loadConsultation(params.Consultation, params.ConsultationFile)
			if err != nil {
				return err
			}
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			manager, err := newManager(cfg, "session/run", !params.OutputJSON)
			if err != nil {
				return err
			}

			result, err := manager.Run(context.Background(), args[0], consultation)
			return emitRunResult(&params.JSONOutput, result, err)
		},
	}
}

type startAndRunParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Path             string `flag:"path" desc:"case directory (overrides registry lookup)"`
	Consultation     string `flag:"consultation" desc:"consultation request as inline JSON"`
	ConsultationFile string `flag:"consultation-file" desc:"consultation request file (JSON, comments allowed)"`
}

func startAndRunCommand() *cli.Command {
	var params startAndRunParams
	return &cli.Command{
		Name:    "start-and-run",
		Summary: "Start a session and run the pipeline in one step",
		Usage:   "docket session start-and-run <case-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("session start-and-run", &params)
		},
		Run: func(args []string) error {
			caseID, err := optionalCaseArg(args)
			if err != nil {
				return err
			}
			consultation, err := loadConsultation(params.Consultation, params.ConsultationFile)
			if err != nil {
				return err
			}
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			casePath, err := resolveCase(cfg, caseID, params.Path)
			if err != nil {
				return err
			}
			manager, err := newManager(cfg, "session/start-and-run", !params.OutputJSON)
			if err != nil {
				return err
			}

			info, result, err := manager.StartAndRun(context.Background(), casePath, caseID, consultation)
			if info.SessionID == "" {
				// The start itself failed; no session to report on.
				if errors.Is(err, sessionlib.ErrSessionActive) {
					return cli.Conflict("starting session: %w", err)
				}
				return cli.Internal("starting session: %w", err)
			}
			if !params.OutputJSON {
				fmt.Fprintf(os.Stderr, "session %s\n", info.SessionID)
			}
			return emitRunResult(&params.JSONOutput, result, err)
		},
	}
}

type resumeParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Path string `flag:"path" desc:"case directory (overrides session id lookup)"`
}

func resumeCommand() *cli.Command {
	var params resumeParams
	return &cli.Command{
		Name:    "resume",
		Summary: "Restore a session's state from disk",
		Usage:   "docket session resume [<session-id>] [flags]",
		Description: `Restore a session's persisted state.

Resume does not replay the agent process. It locates the session's
case directory (by session id through the registry, or directly via
--path) and reloads the session record for display and continuation.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("session resume", &params)
		},
		Run: func(args []string) error {
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			manager, err := newManager(cfg, "session/resume", false)
			if err != nil {
				return err
			}

			var info sessionlib.Info
			switch {
			case params.Path != "":
				if len(args) != 0 {
					return cli.Validation("--path and a session id are mutually exclusive")
				}
				info, err = manager.ResumeByPath(params.Path)
			case len(args) == 1:
				info, err = manager.Resume(args[0])
			default:
				return cli.Validation("a session id argument or --path is required\n\nUsage: docket session resume [<session-id>] [flags]")
			}
			if err != nil {
				if errors.Is(err, sessionlib.ErrNotFound) {
					return cli.NotFound("resuming session: %w", err)
				}
				return cli.Internal("resuming session: %w", err)
			}

			if done, err := params.EmitJSON(info); done {
				return err
			}
			printInfo(info)
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
		Summary: "Show the persisted session state of a case",
		Usage:   "docket session status <case-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("session status", &params)
		},
		Run: func(args []string) error {
			caseID, err := optionalCaseArg(args)
			if err != nil {
				return err
			}
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			casePath, err := resolveCase(cfg, caseID, params.Path)
			if err != nil {
				return err
			}
			manager, err := newManager(cfg, "session/status", false)
			if err != nil {
				return err
			}

			info, err := manager.ResumeByPath(casePath)
			if err != nil {
				if errors.Is(err, sessionlib.ErrNotFound) {
					return cli.NotFound("no session for case: %w", err)
				}
				return cli.Internal("loading session: %w", err)
			}

			if done, err := params.EmitJSON(info); done {
				return err
			}
			printInfo(info)
			return nil
		},
	}
}

// optionalCaseArg accepts zero or one positional case id. Zero is
// legal because --path can stand in for the registry lookup.
func optionalCaseArg(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		return args[0], nil
	default:
		return "", cli.Validation("unexpected argument: %s", args[1])
	}
}

// resolveCase resolves the case directory: --path wins, otherwise the
// case id is looked up in the registry.
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

// loadConsultation assembles the consultation payload from the
// --consultation or --consultation-file flag. The file form tolerates
// comments and trailing commas; both forms must reduce to valid JSON.
func loadConsultation(inline, file string) (json.RawMessage, error) {
	if inline != "" && file != "" {
		return nil, cli.Validation("--consultation and --consultation-file are mutually exclusive")
	}
	var raw []byte
	switch {
	case inline != "":
		raw = []byte(inline)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, cli.Validation("reading consultation file: %w", err)
		}
		raw = jsonc.ToJSON(data)
	default:
		raw = []byte("{}")
	}
	if !json.Valid(raw) {
		return nil, cli.Validation("consultation is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

// newManager builds a session manager from configuration. When
// forward is set, the agent's plain output lines are copied to this
// process's stderr as they arrive.
func newManager(cfg *config.Config, command string, forward bool) (*sessionlib.Manager, error) {
	cases, err := cli.OpenRegistry(cfg)
	if err != nil {
		return nil, err
	}
	managerConfig := sessionlib.Config{
		Agent: sessionlib.AgentCommand{
			Command: cfg.Agent.Command,
			Args:    cfg.Agent.Args,
			Env:     cfg.Agent.PassEnv,
		},
		Registry: cases,
		Logger:   cli.NewCommandLogger().With("command", command),
	}
	if forward {
		managerConfig.OnLine = func(_ string, line bridge.Line) {
			fmt.Fprintln(os.Stderr, line.Text)
		}
	}
	return sessionlib.NewManager(managerConfig), nil
}

// emitRunResult reports a pipeline run. The run result is emitted even
// for failed runs; the process exit code then reflects the agent's.
func emitRunResult(output *cli.JSONOutput, result *sessionlib.Result, runErr error) error {
	if result == nil {
		if errors.Is(runErr, sessionlib.ErrNotFound) {
			return cli.NotFound("running session: %w", runErr)
		}
		return cli.Internal("running session: %w", runErr)
	}

	if done, err := output.EmitJSON(result); done {
		if err != nil {
			return err
		}
	} else {
		printResult(result)
	}

	if runErr != nil {
		code := result.ExitCode
		if code == 0 {
			code = 1
		}
		return &cli.ExitError{Code: code}
	}
	return nil
}

func printInfo(info sessionlib.Info) {
	fmt.Printf("session %s\n  case:       %s (%s)\n  status:     %s\n  created:    %s\n",
		info.SessionID, info.CaseID, info.CasePath, info.Status,
		info.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if info.LastCheckpoint != "" {
		fmt.Printf("  checkpoint: %s\n", info.LastCheckpoint)
	}
	if info.Error != "" {
		fmt.Printf("  error:      %s\n", info.Error)
	}
}

func printResult(result *sessionlib.Result) {
	if result.Success {
		fmt.Printf("run completed in %s\n", result.Duration.Round(time.Millisecond))
	} else {
		fmt.Printf("run failed in %s: %s\n", result.Duration.Round(time.Millisecond), result.Error)
	}
	fmt.Printf("  events:      %d (%d checkpoints, %d errors)\n",
		result.Summary.Events, result.Summary.Checkpoints, result.Summary.Errors)
	for _, created := range result.Checkpoints {
		fmt.Printf("  checkpoint:  %s  %s\n", created.ShortHash, created.Message)
	}
}
