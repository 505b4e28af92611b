// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docket-foundation/docket/lib/bridge"
	"github.com/docket-foundation/docket/lib/checkpoint"
	"github.com/docket-foundation/docket/lib/registry"
	"github.com/docket-foundation/docket/lib/wire"
)

// AgentCommand describes how to launch the external agent process.
type AgentCommand struct {
	// Command is the agent executable.
	Command string

	// Args are base arguments prepended before the subcommand
	// (e.g. ["-m", "legal_pipeline.session_cli"] for a Python
	// module entry point).
	Args []string

	// Env is the externally assembled pass-through environment
	// (MCP_SERVERS, FILESYSTEM_MODE, PATH, ...). The Manager adds
	// ADK_WORKSPACE; nothing else reaches the child.
	Env map[string]string
}

// Config configures a Manager.
type Config struct {
	// Agent is the external agent launch recipe. Required for Run.
	Agent AgentCommand

	// Registry locates cases when resuming a session by id alone.
	// Optional: without it, Resume requires the case path.
	Registry *registry.Registry

	// OnEvent observes every structured event as it arrives,
	// after the Manager's own handling. Optional.
	OnEvent func(sessionID string, event wire.Event)

	// OnLine observes plain output lines (stderr, and stdout with
	// event frames stripped). Optional.
	OnLine func(sessionID string, line bridge.Line)

	// Logger receives structured lifecycle and warning logs. A nil
	// logger falls back to a stderr text handler.
	Logger *slog.Logger
}

// Manager creates, runs, and resumes sessions.
type Manager struct {
	config Config
	logger *slog.Logger

	mutex sync.Mutex
	// known maps sessionID → case path for sessions this process has
	// started or resumed. The durable truth stays on disk.
	known map[string]string
	// running tracks the live child process per sessionID.
	running map[string]*bridge.Stream
	// progress holds the last loop_status per running session.
	progress map[string]wire.LoopStatusData
}

// NewManager returns a Manager for the given configuration.
func NewManager(config Config) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Manager{
		config:   config,
		logger:   logger,
		known:    make(map[string]string),
		running:  make(map[string]*bridge.Stream),
		progress: make(map[string]wire.LoopStatusData),
	}
}

// Start creates a new session for a case. It refuses when the case's
// persisted SessionInfo is still active (the conflicting session is
// left untouched), initializes checkpointing for the case directory,
// writes the new SessionInfo, and creates the pre-run checkpoint that
// every later failure can fall back to.
func (manager *Manager) Start(ctx context.Context, casePath, caseID string) (Info, error) {
	absPath, err := filepath.Abs(casePath)
	if err != nil {
		return Info{}, fmt.Errorf("resolving case path: %w", err)
	}

	if existing, err := loadInfo(absPath); err == nil && existing.Status == StatusActive {
		return Info{}, fmt.Errorf("case %s has active session %s: %w",
			caseID, existing.SessionID, ErrSessionActive)
	}

	backend, err := checkpoint.New(absPath)
	if err != nil {
		return Info{}, err
	}
	if err := backend.EnsureInitialized(ctx); err != nil {
		return Info{}, err
	}

	info := Info{
		SessionID: uuid.NewString(),
		CaseID:    caseID,
		CasePath:  absPath,
		CreatedAt: time.Now().UTC(),
		Status:    StatusActive,
	}
	if err := saveInfo(info); err != nil {
		return Info{}, err
	}

	// Pre-run checkpoint: the durable state before the agent touches
	// anything. Includes the fresh SessionInfo.
	created, err := backend.CreateCheckpoint(ctx, "init", "Session started")
	if err != nil {
		return Info{}, fmt.Errorf("creating pre-run checkpoint: %w", err)
	}
	info.LastCheckpoint = created.CommitHash
	if err := saveInfo(info); err != nil {
		return Info{}, err
	}

	manager.mutex.Lock()
	manager.known[info.SessionID] = absPath
	manager.mutex.Unlock()

	manager.logger.Info("session started",
		"session_id", info.SessionID,
		"case_id", caseID,
		"case_path", absPath,
	)
	return info, nil
}

// Resume loads the persisted SessionInfo for a session id. It does
// not replay the agent process — it restores state for display and
// continuation only.
func (manager *Manager) Resume(sessionID string) (Info, error) {
	casePath, err := manager.findCasePath(sessionID)
	if err != nil {
		return Info{}, err
	}
	info, err := loadInfo(casePath)
	if err != nil {
		return Info{}, err
	}

	manager.mutex.Lock()
	manager.known[sessionID] = casePath
	manager.mutex.Unlock()
	return info, nil
}

// ResumeByPath loads the persisted SessionInfo for a case directory.
func (manager *Manager) ResumeByPath(casePath string) (Info, error) {
	absPath, err := filepath.Abs(casePath)
	if err != nil {
		return Info{}, fmt.Errorf("resolving case path: %w", err)
	}
	info, err := loadInfo(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, fmt.Errorf("no session in %s: %w", absPath, ErrNotFound)
		}
		return Info{}, err
	}

	manager.mutex.Lock()
	manager.known[info.SessionID] = absPath
	manager.mutex.Unlock()
	return info, nil
}

// StartAndRun composes Start and Run as one externally observed
// operation. Internally the steps stay discrete: a Start failure
// never attempts the run, and a run failure leaves behind a valid
// failed session with its id.
func (manager *Manager) StartAndRun(ctx context.Context, casePath, caseID string, consultation json.RawMessage) (Info, *Result, error) {
	info, err := manager.Start(ctx, casePath, caseID)
	if err != nil {
		return Info{}, nil, err
	}
	result, err := manager.Run(ctx, info.SessionID, consultation)
	if err != nil {
		return info, result, err
	}
	return info, result, nil
}

// Kill terminates the running agent process of a session, if any.
// The run's pump observes the exit and marks the session failed.
func (manager *Manager) Kill(sessionID string) error {
	manager.mutex.Lock()
	stream, ok := manager.running[sessionID]
	manager.mutex.Unlock()
	if !ok {
		return fmt.Errorf("session %s has no running process: %w", sessionID, ErrNotFound)
	}
	return stream.Kill()
}

// Progress returns the last observed loop status of a session.
func (manager *Manager) Progress(sessionID string) (wire.LoopStatusData, bool) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	status, ok := manager.progress[sessionID]
	return status, ok
}

// findCasePath resolves a session id to its case directory: first the
// sessions this process already knows, then a registry scan over all
// case directories (the durable truth lives in each case's
// SessionInfo file).
func (manager *Manager) findCasePath(sessionID string) (string, error) {
	manager.mutex.Lock()
	casePath, ok := manager.known[sessionID]
	manager.mutex.Unlock()
	if ok {
		return casePath, nil
	}

	if manager.config.Registry == nil {
		return "", fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	entries, err := manager.config.Registry.ListCases(registry.Filter{})
	if err != nil {
		return "", fmt.Errorf("scanning registry for session %s: %w", sessionID, err)
	}
	for _, entry := range entries {
		info, err := loadInfo(entry.ContextPath)
		if err != nil {
			continue
		}
		if info.SessionID == sessionID {
			return entry.ContextPath, nil
		}
	}
	return "", fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
}

// sandboxEnv assembles the child environment: the configured
// pass-through variables plus ADK_WORKSPACE. Nothing is inherited
// from the orchestrator's own environment.
func (manager *Manager) sandboxEnv(casePath string) map[string]string {
	env := make(map[string]string, len(manager.config.Agent.Env)+1)
	for key, value := range manager.config.Agent.Env {
		env[key] = value
	}
	env["ADK_WORKSPACE"] = casePath
	return env
}
