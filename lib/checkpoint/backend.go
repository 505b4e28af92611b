// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Checkpoint is one immutable snapshot in a case's history.
type Checkpoint struct {
	// CommitHash is the full hash of the snapshot.
	CommitHash string `json:"commit_hash"`

	// ShortHash is the abbreviated hash for display.
	ShortHash string `json:"short_hash"`

	// Phase is the pipeline phase the snapshot closed, extracted
	// from the subject prefix; empty for manual checkpoints.
	Phase string `json:"phase,omitempty"`

	// Message is the checkpoint message without the subject prefix.
	Message string `json:"message"`

	// Timestamp is the author time of the snapshot.
	Timestamp time.Time `json:"timestamp"`
}

// Status summarizes the working state of a case directory.
type Status struct {
	// HasChanges reports uncommitted modifications.
	HasChanges bool `json:"has_changes"`

	// ChangedFiles lists the porcelain status lines.
	ChangedFiles []string `json:"changed_files,omitempty"`

	// LastCheckpoint is the most recent snapshot, nil before the
	// first commit.
	LastCheckpoint *Checkpoint `json:"last_checkpoint,omitempty"`

	// CheckpointCount is the total number of snapshots.
	CheckpointCount int `json:"checkpoint_count"`
}

// Identity used for automatic commits. Local to each case repository
// so checkpointing never depends on (or leaks into) the user's global
// git configuration.
const (
	commitUserName  = "Docket Agent"
	commitUserEmail = "docket@local"
)

// gitignoreContent excludes transient workspace state from snapshots:
// retrieval context (can be large and is regenerable), logs, caches,
// and editor configuration.
const gitignoreContent = `# Caches and temporaries
__pycache__/
*.pyc
.DS_Store
*.tmp
*.temp

# Retrieval context (regenerable, can be large)
.context/

# Debug logs
*.log

# Editor configs
.vscode/
.idea/
`

// Backend versions one case directory. Construct with New; the zero
// value is not usable.
type Backend struct {
	repo repository
}

// New returns a Backend for the case directory. It fails when no git
// binary is available — versioning is not optional for case
// workspaces, because the checkpoint history is the auditability
// contract.
func New(caseDir string) (*Backend, error) {
	if !gitAvailable() {
		return nil, fmt.Errorf("git binary not found: case versioning unavailable")
	}
	return &Backend{repo: repository{dir: caseDir}}, nil
}

// Dir returns the case directory this backend is scoped to.
func (backend *Backend) Dir() string {
	return backend.repo.dir
}

// EnsureInitialized makes the case directory a versioned workspace:
// git init, a repository-local commit identity, the standard
// .gitignore, and an initial commit. Idempotent — a directory that is
// already initialized is left untouched.
func (backend *Backend) EnsureInitialized(ctx context.Context) error {
	gitDir := filepath.Join(backend.repo.dir, ".git")
	if _, err := os.Stat(gitDir); err == nil {
		return nil
	}

	if err := os.MkdirAll(backend.repo.dir, 0o755); err != nil {
		return fmt.Errorf("creating case directory: %w", err)
	}

	if _, err := backend.repo.run(ctx, "init"); err != nil {
		return fmt.Errorf("initializing case repository: %w", err)
	}
	if _, err := backend.repo.run(ctx, "config", "user.email", commitUserEmail); err != nil {
		return err
	}
	if _, err := backend.repo.run(ctx, "config", "user.name", commitUserName); err != nil {
		return err
	}

	gitignorePath := filepath.Join(backend.repo.dir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if _, err := backend.repo.run(ctx, "add", ".gitignore"); err != nil {
		return err
	}
	if _, err := backend.repo.run(ctx, "commit", "-m", "[INIT] Case workspace initialized"); err != nil {
		return fmt.Errorf("creating initial checkpoint: %w", err)
	}
	return nil
}

// CreateCheckpoint stages all tracked changes and commits them as one
// snapshot. The subject carries an [AUTO/PHASE] prefix so the history
// reads as an audit trail. Safe to call with a clean tree: it then
// returns the current head snapshot without creating an empty commit.
func (backend *Backend) CreateCheckpoint(ctx context.Context, phase, message string) (Checkpoint, error) {
	if _, err := backend.repo.run(ctx, "add", "-A"); err != nil {
		return Checkpoint{}, fmt.Errorf("staging changes: %w", err)
	}

	hasChanges, err := backend.hasStagedChanges(ctx)
	if err != nil {
		return Checkpoint{}, err
	}
	if !hasChanges {
		head, err := backend.Head(ctx)
		if err != nil {
			return Checkpoint{}, fmt.Errorf("reading head with clean tree: %w", err)
		}
		return head, nil
	}

	subject := formatSubject(phase, message)
	if _, err := backend.repo.run(ctx, "commit", "-m", subject); err != nil {
		return Checkpoint{}, fmt.Errorf("committing checkpoint: %w", err)
	}
	return backend.Head(ctx)
}

// Head returns the current head snapshot.
func (backend *Backend) Head(ctx context.Context) (Checkpoint, error) {
	history, err := backend.History(ctx, 1)
	if err != nil {
		return Checkpoint{}, err
	}
	if len(history) == 0 {
		return Checkpoint{}, fmt.Errorf("case repository %s has no checkpoints", backend.repo.dir)
	}
	return history[0], nil
}

// History returns up to limit snapshots, most recent first. A limit
// of zero or less means the default of 20.
func (backend *Backend) History(ctx context.Context, limit int) ([]Checkpoint, error) {
	if limit <= 0 {
		limit = 20
	}
	output, err := backend.repo.run(ctx,
		"log", fmt.Sprintf("-%d", limit), "--format=%H|%h|%s|%aI")
	if err != nil {
		// A freshly created repository with no commits is an empty
		// history, not an error.
		if strings.Contains(err.Error(), "does not have any commits") {
			return nil, nil
		}
		return nil, fmt.Errorf("reading checkpoint history: %w", err)
	}

	var checkpoints []Checkpoint
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		timestamp, _ := time.Parse(time.RFC3339, parts[3])
		phase, message := parseSubject(parts[2])
		checkpoints = append(checkpoints, Checkpoint{
			CommitHash: parts[0],
			ShortHash:  parts[1],
			Phase:      phase,
			Message:    message,
			Timestamp:  timestamp,
		})
	}
	return checkpoints, nil
}

// RollbackTo hard-resets the case directory to the given checkpoint.
// Destroys all uncommitted state — callers must only invoke this on
// explicit user action, never automatically.
func (backend *Backend) RollbackTo(ctx context.Context, commitHash string) error {
	if commitHash == "" {
		return fmt.Errorf("empty checkpoint hash")
	}
	if _, err := backend.repo.run(ctx, "reset", "--hard", commitHash); err != nil {
		return fmt.Errorf("rolling back to %s: %w", commitHash, err)
	}
	return nil
}

// Status returns the working-state summary backing the git-status
// surface.
func (backend *Backend) Status(ctx context.Context) (Status, error) {
	output, err := backend.repo.run(ctx, "status", "--porcelain")
	if err != nil {
		return Status{}, fmt.Errorf("reading case status: %w", err)
	}

	var changed []string
	for _, line := range strings.Split(output, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			changed = append(changed, trimmed)
		}
	}

	status := Status{
		HasChanges:   len(changed) > 0,
		ChangedFiles: changed,
	}

	history, err := backend.History(ctx, 1)
	if err != nil {
		return Status{}, err
	}
	if len(history) > 0 {
		head := history[0]
		status.LastCheckpoint = &head
	}

	if countOutput, err := backend.repo.run(ctx, "rev-list", "--count", "HEAD"); err == nil {
		fmt.Sscanf(strings.TrimSpace(countOutput), "%d", &status.CheckpointCount)
	}
	return status, nil
}

// ShowFile returns the content of a file as of a given checkpoint.
func (backend *Backend) ShowFile(ctx context.Context, commitHash, path string) (string, error) {
	output, err := backend.repo.run(ctx, "show", commitHash+":"+path)
	if err != nil {
		return "", fmt.Errorf("reading %s at %s: %w", path, commitHash, err)
	}
	return output, nil
}

// RestoreFile restores a single file from a checkpoint into the
// working tree, leaving everything else untouched.
func (backend *Backend) RestoreFile(ctx context.Context, commitHash, path string) error {
	if _, err := backend.repo.run(ctx, "checkout", commitHash, "--", path); err != nil {
		return fmt.Errorf("restoring %s from %s: %w", path, commitHash, err)
	}
	return nil
}

// hasStagedChanges reports whether the index differs from HEAD.
func (backend *Backend) hasStagedChanges(ctx context.Context) (bool, error) {
	output, err := backend.repo.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("checking for changes: %w", err)
	}
	return strings.TrimSpace(output) != "", nil
}

// formatSubject builds the audit-trail commit subject. Automatic
// checkpoints read "[AUTO/PHASE] message"; an empty phase yields
// "[AUTO] message".
func formatSubject(phase, message string) string {
	if phase == "" {
		return "[AUTO] " + message
	}
	return "[AUTO/" + strings.ToUpper(phase) + "] " + message
}

// parseSubject splits a commit subject into phase and message,
// tolerating subjects that never came from formatSubject.
func parseSubject(subject string) (phase, message string) {
	if !strings.HasPrefix(subject, "[") {
		return "", subject
	}
	end := strings.Index(subject, "] ")
	if end < 0 {
		return "", subject
	}
	tag := subject[1:end]
	message = subject[end+2:]
	if rest, ok := strings.CutPrefix(tag, "AUTO/"); ok {
		return strings.ToLower(rest), message
	}
	return "", message
}
