// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DocumentVersion is the schema version written to new registry
// documents.
const DocumentVersion = 1

// registryFileName is the registry document inside the workspace root.
const registryFileName = ".registry.json"

// CaseStatus is the lifecycle state of a case.
type CaseStatus string

const (
	StatusActive   CaseStatus = "active"
	StatusPending  CaseStatus = "pending"
	StatusArchived CaseStatus = "archived"
)

// valid reports whether the status is one of the recognized values.
func (status CaseStatus) valid() bool {
	switch status {
	case StatusActive, StatusPending, StatusArchived:
		return true
	}
	return false
}

// Entry is one registered case.
type Entry struct {
	// ID is opaque, generated at creation, immutable.
	ID string `json:"id"`

	// Name is the user-facing case name.
	Name string `json:"name"`

	// Number is the optional court or internal case number.
	Number string `json:"number,omitempty"`

	// Client is the optional client name. Cases with a client are
	// nested under a shared per-client directory.
	Client string `json:"client,omitempty"`

	// Description is free text.
	Description string `json:"description,omitempty"`

	// Status is the lifecycle state. Cases are archived, never
	// physically deleted.
	Status CaseStatus `json:"status"`

	// CreatedAt and UpdatedAt are maintained by the registry;
	// UpdatedAt ≥ CreatedAt always holds.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ContextPath is the absolute case directory, immutable after
	// creation.
	ContextPath string `json:"context_path"`

	// Tags is the case's tag set, stored sorted.
	Tags []string `json:"tags,omitempty"`
}

// Document is the on-disk registry schema.
type Document struct {
	Version       int       `json:"version"`
	WorkspaceRoot string    `json:"workspace_root"`
	Cases         []Entry   `json:"cases"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// caseDirs is the scaffolding created inside every case directory.
var caseDirs = []string{".adk_state", ".context", "docs", "drafts"}

// Registry errors. IO failures are wrapped with %w and carry path
// context; these sentinels classify the domain outcomes.
var (
	// ErrNotFound means no case with the given id exists.
	ErrNotFound = errors.New("case not found")

	// ErrCaseExists means the target case directory already exists.
	ErrCaseExists = errors.New("case directory already exists")

	// ErrImmutableField means an update tried to change id,
	// contextPath, or createdAt.
	ErrImmutableField = errors.New("field is immutable")
)

// CreateOptions are the optional fields of a new case.
type CreateOptions struct {
	Number      string
	Client      string
	Description string
	Status      CaseStatus
	Tags        []string
}

// Patch carries the mutable fields of an update. Nil pointers leave
// the field untouched; Tags replaces the whole set when non-nil.
type Patch struct {
	Name        *string
	Number      *string
	Client      *string
	Description *string
	Status      *CaseStatus
	Tags        []string
}

// Filter selects cases in ListCases. Zero values match everything;
// Tags requires every listed tag to be present (intersection).
type Filter struct {
	Status CaseStatus
	Client string
	Tags   []string
}

// Registry manages the case index under one workspace root.
type Registry struct {
	root string
	lock *fileLock

	// now is the clock, swapped in tests for deterministic ordering.
	now func() time.Time
}

// New returns a Registry rooted at workspaceRoot. The root directory
// is created if missing.
func New(workspaceRoot string) (*Registry, error) {
	absRoot, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace root %s: %w", absRoot, err)
	}
	return &Registry{
		root: absRoot,
		lock: newFileLock(filepath.Join(absRoot, ".registry.lock")),
		now:  time.Now,
	}, nil
}

// Root returns the workspace root.
func (registry *Registry) Root() string {
	return registry.root
}

// documentPath returns the registry document location.
func (registry *Registry) documentPath() string {
	return filepath.Join(registry.root, registryFileName)
}

// load reads the document from disk. A missing document is lazily
// initialized empty rather than treated as an error. Callers must
// hold the lock for read-modify-write cycles.
func (registry *Registry) load() (*Document, error) {
	data, err := os.ReadFile(registry.documentPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			now := registry.now().UTC()
			return &Document{
				Version:       DocumentVersion,
				WorkspaceRoot: registry.root,
				CreatedAt:     now,
				UpdatedAt:     now,
			}, nil
		}
		return nil, fmt.Errorf("reading registry document: %w", err)
	}

	document := &Document{}
	if err := json.Unmarshal(data, document); err != nil {
		return nil, fmt.Errorf("parsing registry document %s: %w", registry.documentPath(), err)
	}
	return document, nil
}

// save writes the document atomically: temp file in the same
// directory, fsync, rename. A crash mid-write leaves either the old
// or the new document, never a torn one.
func (registry *Registry) save(document *Document) error {
	document.UpdatedAt = registry.now().UTC()

	file, err := os.CreateTemp(registry.root, ".registry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp registry file: %w", err)
	}
	defer os.Remove(file.Name())

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(document); err != nil {
		file.Close()
		return fmt.Errorf("encoding registry document: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("syncing registry document: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing registry document: %w", err)
	}
	if err := os.Rename(file.Name(), registry.documentPath()); err != nil {
		return fmt.Errorf("replacing registry document: %w", err)
	}
	return nil
}

// CreateCase registers a new case and scaffolds its directory tree.
// The directories exist before the registry row is written; a
// pre-existing target directory fails with ErrCaseExists and writes
// nothing.
func (registry *Registry) CreateCase(name string, opts CreateOptions) (Entry, error) {
	if name == "" {
		return Entry{}, fmt.Errorf("empty case name")
	}

	segment, err := SanitizeName(name)
	if err != nil {
		return Entry{}, fmt.Errorf("case name %q: %w", name, err)
	}

	contextPath := filepath.Join(registry.root, segment)
	if opts.Client != "" {
		clientSegment, err := SanitizeName(opts.Client)
		if err != nil {
			return Entry{}, fmt.Errorf("client name %q: %w", opts.Client, err)
		}
		contextPath = filepath.Join(registry.root, clientSegment, segment)
	}

	status := opts.Status
	if status == "" {
		status = StatusActive
	}
	if !status.valid() {
		return Entry{}, fmt.Errorf("invalid case status %q", status)
	}

	unlock, err := registry.lock.Acquire()
	if err != nil {
		return Entry{}, err
	}
	defer unlock()

	if _, err := os.Stat(contextPath); err == nil {
		return Entry{}, fmt.Errorf("%s: %w", contextPath, ErrCaseExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Entry{}, fmt.Errorf("checking case directory: %w", err)
	}

	// Scaffold first: a registry row must never reference a
	// directory that failed to be created.
	for _, dir := range caseDirs {
		if err := os.MkdirAll(filepath.Join(contextPath, dir), 0o755); err != nil {
			// Leave nothing behind on partial failure.
			os.RemoveAll(contextPath)
			return Entry{}, fmt.Errorf("scaffolding case directory: %w", err)
		}
	}

	document, err := registry.load()
	if err != nil {
		os.RemoveAll(contextPath)
		return Entry{}, err
	}

	now := registry.now().UTC()
	entry := Entry{
		ID:          uuid.NewString(),
		Name:        name,
		Number:      opts.Number,
		Client:      opts.Client,
		Description: opts.Description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
		ContextPath: contextPath,
		Tags:        normalizeTags(opts.Tags),
	}
	document.Cases = append(document.Cases, entry)

	if err := registry.save(document); err != nil {
		os.RemoveAll(contextPath)
		return Entry{}, err
	}
	return entry, nil
}

// UpdateCase applies a patch to the given case. Immutable fields are
// not expressible in Patch by construction; the method still guards
// the invariants that matter (status validity, UpdatedAt monotonic).
func (registry *Registry) UpdateCase(id string, patch Patch) (Entry, error) {
	if patch.Status != nil && !patch.Status.valid() {
		return Entry{}, fmt.Errorf("invalid case status %q", *patch.Status)
	}

	unlock, err := registry.lock.Acquire()
	if err != nil {
		return Entry{}, err
	}
	defer unlock()

	document, err := registry.load()
	if err != nil {
		return Entry{}, err
	}

	index := findCase(document, id)
	if index < 0 {
		return Entry{}, fmt.Errorf("case %s: %w", id, ErrNotFound)
	}

	entry := &document.Cases[index]
	if patch.Name != nil {
		if *patch.Name == "" {
			return Entry{}, fmt.Errorf("empty case name")
		}
		entry.Name = *patch.Name
	}
	if patch.Number != nil {
		entry.Number = *patch.Number
	}
	if patch.Client != nil {
		entry.Client = *patch.Client
	}
	if patch.Description != nil {
		entry.Description = *patch.Description
	}
	if patch.Status != nil {
		entry.Status = *patch.Status
	}
	if patch.Tags != nil {
		entry.Tags = normalizeTags(patch.Tags)
	}
	entry.UpdatedAt = registry.now().UTC()

	if err := registry.save(document); err != nil {
		return Entry{}, err
	}
	return *entry, nil
}

// ArchiveCase marks a case archived. Archived cases stay in the
// registry and on disk.
func (registry *Registry) ArchiveCase(id string) (Entry, error) {
	archived := StatusArchived
	return registry.UpdateCase(id, Patch{Status: &archived})
}

// GetCase returns one case by id.
func (registry *Registry) GetCase(id string) (Entry, error) {
	unlock, err := registry.lock.Acquire()
	if err != nil {
		return Entry{}, err
	}
	defer unlock()

	document, err := registry.load()
	if err != nil {
		return Entry{}, err
	}
	index := findCase(document, id)
	if index < 0 {
		return Entry{}, fmt.Errorf("case %s: %w", id, ErrNotFound)
	}
	return document.Cases[index], nil
}

// ListCases returns the cases matching the filter, most recently
// updated first. The ordering is a user-facing contract.
func (registry *Registry) ListCases(filter Filter) ([]Entry, error) {
	unlock, err := registry.lock.Acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	document, err := registry.load()
	if err != nil {
		return nil, err
	}

	var matched []Entry
	for _, entry := range document.Cases {
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		if filter.Client != "" && entry.Client != filter.Client {
			continue
		}
		if !hasAllTags(entry.Tags, filter.Tags) {
			continue
		}
		matched = append(matched, entry)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	return matched, nil
}

// ListClients returns the distinct non-empty client names, sorted.
func (registry *Registry) ListClients() ([]string, error) {
	return registry.distinct(func(entry Entry) []string {
		if entry.Client == "" {
			return nil
		}
		return []string{entry.Client}
	})
}

// ListTags returns the distinct tags across all cases, sorted.
func (registry *Registry) ListTags() ([]string, error) {
	return registry.distinct(func(entry Entry) []string {
		return entry.Tags
	})
}

// distinct collects, dedupes, and sorts values derived per entry.
func (registry *Registry) distinct(values func(Entry) []string) ([]string, error) {
	unlock, err := registry.lock.Acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	document, err := registry.load()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, entry := range document.Cases {
		for _, value := range values(entry) {
			if value != "" {
				seen[value] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(seen))
	for value := range seen {
		result = append(result, value)
	}
	sort.Strings(result)
	return result, nil
}

// findCase returns the index of the case with the given id, or -1.
func findCase(document *Document, id string) int {
	for i := range document.Cases {
		if document.Cases[i].ID == id {
			return i
		}
	}
	return -1
}

// hasAllTags reports whether entry tags contain every wanted tag.
func hasAllTags(entryTags, wanted []string) bool {
	for _, tag := range wanted {
		found := false
		for _, have := range entryTags {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// normalizeTags dedupes, drops empties, and sorts.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if tag != "" {
			seen[tag] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(seen))
	for tag := range seen {
		normalized = append(normalized, tag)
	}
	sort.Strings(normalized)
	return normalized
}
