// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// docket-agent-mock is a test binary that plays the external agent
// process. Configured as the agent command, it lets the full stack
// run end-to-end without a real pipeline: it honors the sandbox
// contract (operates only inside ADK_WORKSPACE), emits the framed
// event sequence of a complete pipeline run, and writes a draft so
// checkpoints have something to snapshot.
//
// The subcommands mirror the real agent CLI surface:
//
//	docket-agent-mock start --session-id <id>
//	docket-agent-mock run --session-id <id> --consultation <json>
//	docket-agent-mock start-and-run --session-id <id> --consultation <json>
//	docket-agent-mock git-status
//
// With --fail, run emits a failed cli_result and exits nonzero,
// exercising the orchestrator's failure path.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/docket-foundation/docket/lib/process"
	"github.com/docket-foundation/docket/lib/wire"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("a subcommand is required (run)")
	}
	switch args[0] {
	case "start":
		return runStart(args[1:])
	case "run", "start-and-run":
		return runPipeline(args[1:])
	case "git-status":
		return runGitStatus()
	default:
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

// runStart binds to the workspace and reports the session without
// running the pipeline.
func runStart(args []string) error {
	flags := pflag.NewFlagSet("start", pflag.ContinueOnError)
	sessionID := flags.String("session-id", "", "session identifier")
	if err := flags.Parse(args); err != nil {
		return err
	}
	workspace := os.Getenv("ADK_WORKSPACE")
	if workspace == "" {
		return fmt.Errorf("ADK_WORKSPACE is not set")
	}
	emit(wire.EventTypeSessionCreated, &wire.SessionCreatedData{
		SessionID: *sessionID,
		CasePath:  workspace,
	})
	emit(wire.EventTypeCLIResult, &wire.CLIResultData{Success: true})
	return nil
}

// runGitStatus reports whether the workspace holds the mock draft,
// the closest thing the mock has to uncommitted work.
func runGitStatus() error {
	workspace := os.Getenv("ADK_WORKSPACE")
	if workspace == "" {
		return fmt.Errorf("ADK_WORKSPACE is not set")
	}
	_, err := os.Stat(filepath.Join(workspace, "drafts", "mock-draft.md"))
	payload, marshalErr := json.Marshal(map[string]bool{"has_draft": err == nil})
	if marshalErr != nil {
		return marshalErr
	}
	emit(wire.EventTypeCLIResult, &wire.CLIResultData{Success: true, Data: payload})
	return nil
}

// phases is the mock pipeline: each phase reports progress, and the
// drafting phase produces the work product.
var phases = []string{"intake", "research", "analysis", "drafting"}

func runPipeline(args []string) error {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	sessionID := flags.String("session-id", "", "session identifier")
	consultation := flags.String("consultation", "{}", "consultation request JSON")
	fail := flags.Bool("fail", false, "emit a failed result and exit nonzero")
	failPhase := flags.String("fail-phase", "analysis", "phase to fail in when --fail is set")
	if err := flags.Parse(args); err != nil {
		return err
	}

	workspace := os.Getenv("ADK_WORKSPACE")
	if workspace == "" {
		return fmt.Errorf("ADK_WORKSPACE is not set")
	}
	if *sessionID == "" {
		return fmt.Errorf("--session-id is required")
	}
	if !json.Valid([]byte(*consultation)) {
		return fmt.Errorf("--consultation is not valid JSON")
	}

	emit(wire.EventTypeSessionCreated, &wire.SessionCreatedData{
		SessionID: *sessionID,
		CasePath:  workspace,
	})

	for index, phase := range phases {
		emit(wire.EventTypeLoopStatus, &wire.LoopStatusData{
			State:            "running",
			CurrentPhase:     phase,
			ProgressPercent:  float64(index) / float64(len(phases)) * 100,
			CurrentIteration: index + 1,
			MaxIterations:    len(phases),
		})
		fmt.Printf("mock agent: entering %s phase\n", phase)

		if *fail && phase == *failPhase {
			message := fmt.Sprintf("simulated failure in %s phase", phase)
			emit(wire.EventTypeCLIResult, &wire.CLIResultData{
				Success: false,
				Error:   message,
			})
			return fmt.Errorf("%s", message)
		}

		if phase == "drafting" {
			draft := filepath.Join(workspace, "drafts", "mock-draft.md")
			if err := os.MkdirAll(filepath.Dir(draft), 0o755); err != nil {
				return fmt.Errorf("creating drafts directory: %w", err)
			}
			content := fmt.Sprintf("# Mock Draft\n\nSession %s, consultation: %s\n", *sessionID, *consultation)
			if err := os.WriteFile(draft, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing draft: %w", err)
			}
		}

		emit(wire.EventTypeCheckpointCreated, &wire.CheckpointCreatedData{
			Phase: phase,
		})
	}

	emit(wire.EventTypeLoopStatus, &wire.LoopStatusData{
		State:           "completed",
		CurrentPhase:    phases[len(phases)-1],
		ProgressPercent: 100,
	})
	result, err := json.Marshal(map[string]string{
		"workspace": workspace,
		"draft":     "drafts/mock-draft.md",
	})
	if err != nil {
		return err
	}
	emit(wire.EventTypeCLIResult, &wire.CLIResultData{
		Success: true,
		Data:    result,
	})
	return nil
}

// emit frames one event onto stdout. The mock aborts on emission
// failure since a truncated stream is worse than no stream.
func emit(eventType wire.EventType, payload any) {
	event, err := wire.NewEvent(eventType, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docket-agent-mock: building %s event: %v\n", eventType, err)
		os.Exit(1)
	}
	if err := wire.Emit(os.Stdout, event); err != nil {
		fmt.Fprintf(os.Stderr, "docket-agent-mock: emitting %s event: %v\n", eventType, err)
		os.Exit(1)
	}
	// Brief spacing so line-buffered consumers observe ordering.
	time.Sleep(5 * time.Millisecond)
}
