// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	registry, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return registry
}

func TestCreateCase_Scaffolding(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	entry, err := registry.CreateCase("Silva vs Banco", CreateOptions{Client: "Joao"})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	wantPath := filepath.Join(registry.Root(), "Joao", "Silva_vs_Banco")
	if entry.ContextPath != wantPath {
		t.Errorf("ContextPath = %s, want %s", entry.ContextPath, wantPath)
	}
	for _, dir := range []string{".adk_state", ".context", "docs", "drafts"} {
		info, err := os.Stat(filepath.Join(entry.ContextPath, dir))
		if err != nil || !info.IsDir() {
			t.Errorf("required subdirectory %s missing: %v", dir, err)
		}
	}
	if entry.ID == "" {
		t.Error("generated ID is empty")
	}
	if entry.Status != StatusActive {
		t.Errorf("Status = %s, want active", entry.Status)
	}
	if entry.UpdatedAt.Before(entry.CreatedAt) {
		t.Error("UpdatedAt earlier than CreatedAt")
	}
}

func TestCreateCase_DuplicateDirectory(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	if _, err := registry.CreateCase("Silva vs Banco", CreateOptions{}); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	_, err := registry.CreateCase("Silva vs Banco", CreateOptions{})
	if !errors.Is(err, ErrCaseExists) {
		t.Fatalf("duplicate CreateCase error = %v, want ErrCaseExists", err)
	}

	// The duplicate attempt must not have disturbed the registry.
	cases, err := registry.ListCases(Filter{})
	if err != nil {
		t.Fatalf("ListCases: %v", err)
	}
	if len(cases) != 1 {
		t.Errorf("case count = %d, want 1", len(cases))
	}
}

func TestCreateCase_InvalidName(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	if _, err := registry.CreateCase("", CreateOptions{}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := registry.CreateCase("///", CreateOptions{}); err == nil {
		t.Error("expected error for name with no safe characters")
	}
}

func TestUpdateCase(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	entry, err := registry.CreateCase("Estate of Pereira", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	pending := StatusPending
	description := "probate proceedings"
	updated, err := registry.UpdateCase(entry.ID, Patch{
		Status:      &pending,
		Description: &description,
		Tags:        []string{"probate", "urgent", "probate"},
	})
	if err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}
	if updated.Status != StatusPending {
		t.Errorf("Status = %s, want pending", updated.Status)
	}
	if updated.Description != description {
		t.Errorf("Description = %q", updated.Description)
	}
	if len(updated.Tags) != 2 || updated.Tags[0] != "probate" || updated.Tags[1] != "urgent" {
		t.Errorf("Tags = %v, want deduped sorted [probate urgent]", updated.Tags)
	}
	if !updated.UpdatedAt.After(entry.UpdatedAt) && !updated.UpdatedAt.Equal(entry.UpdatedAt) {
		t.Error("UpdatedAt regressed")
	}
	// Immutable fields survive.
	if updated.ID != entry.ID || updated.ContextPath != entry.ContextPath || !updated.CreatedAt.Equal(entry.CreatedAt) {
		t.Error("immutable fields changed by update")
	}
}

func TestUpdateCase_NotFound(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	_, err := registry.UpdateCase("no-such-id", Patch{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestArchiveCase(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	entry, err := registry.CreateCase("Old Matter", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	archived, err := registry.ArchiveCase(entry.ID)
	if err != nil {
		t.Fatalf("ArchiveCase: %v", err)
	}
	if archived.Status != StatusArchived {
		t.Errorf("Status = %s, want archived", archived.Status)
	}

	// Archived cases remain in the registry and on disk.
	if _, err := os.Stat(archived.ContextPath); err != nil {
		t.Errorf("archived case directory removed: %v", err)
	}
	all, err := registry.ListCases(Filter{})
	if err != nil {
		t.Fatalf("ListCases: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("case count after archive = %d, want 1", len(all))
	}
}

func TestListCases_OrderAndFilters(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)

	// Deterministic clock so UpdatedAt ordering is exact.
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	registry.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}

	first, err := registry.CreateCase("Alpha", CreateOptions{Client: "Joao", Tags: []string{"civil"}})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	second, err := registry.CreateCase("Beta", CreateOptions{Client: "Maria", Tags: []string{"civil", "urgent"}})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	third, err := registry.CreateCase("Gamma", CreateOptions{Client: "Joao"})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	// Touch the oldest case: it must move to the front.
	if _, err := registry.UpdateCase(first.ID, Patch{Tags: []string{"civil", "appeal"}}); err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}

	cases, err := registry.ListCases(Filter{})
	if err != nil {
		t.Fatalf("ListCases: %v", err)
	}
	if len(cases) != 3 {
		t.Fatalf("case count = %d, want 3", len(cases))
	}
	if cases[0].ID != first.ID || cases[1].ID != third.ID || cases[2].ID != second.ID {
		t.Errorf("order = [%s %s %s], want most recently updated first",
			cases[0].Name, cases[1].Name, cases[2].Name)
	}

	joao, err := registry.ListCases(Filter{Client: "Joao"})
	if err != nil {
		t.Fatalf("ListCases(client): %v", err)
	}
	if len(joao) != 2 {
		t.Errorf("Joao cases = %d, want 2", len(joao))
	}

	urgent, err := registry.ListCases(Filter{Tags: []string{"civil", "urgent"}})
	if err != nil {
		t.Fatalf("ListCases(tags): %v", err)
	}
	if len(urgent) != 1 || urgent[0].ID != second.ID {
		t.Errorf("tag intersection returned %d cases, want exactly Beta", len(urgent))
	}

	_ = third
}

func TestListClientsAndTags(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	mustCreate := func(name string, opts CreateOptions) {
		t.Helper()
		if _, err := registry.CreateCase(name, opts); err != nil {
			t.Fatalf("CreateCase %s: %v", name, err)
		}
	}
	mustCreate("A", CreateOptions{Client: "Zeta", Tags: []string{"tax"}})
	mustCreate("B", CreateOptions{Client: "Alpha", Tags: []string{"civil", "tax"}})
	mustCreate("C", CreateOptions{})

	clients, err := registry.ListClients()
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if len(clients) != 2 || clients[0] != "Alpha" || clients[1] != "Zeta" {
		t.Errorf("clients = %v, want [Alpha Zeta]", clients)
	}

	tags, err := registry.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 2 || tags[0] != "civil" || tags[1] != "tax" {
		t.Errorf("tags = %v, want [civil tax]", tags)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	registry, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	created, err := registry.CreateCase("Round Trip", CreateOptions{
		Number: "0001234-56.2026.8.26.0100",
		Tags:   []string{"civil"},
	})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	// A fresh Registry over the same root sees the identical entry:
	// the document on disk is the single source of truth.
	reopened, err := New(root)
	if err != nil {
		t.Fatalf("New (reopen): %v", err)
	}
	got, err := reopened.GetCase(created.ID)
	if err != nil {
		t.Fatalf("GetCase after reopen: %v", err)
	}
	if got.Name != created.Name || got.Number != created.Number ||
		got.ContextPath != created.ContextPath || !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("reloaded entry differs:\ngot  %+v\nwant %+v", got, created)
	}
}

func TestConcurrentCreators(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	const creators = 8

	var wait sync.WaitGroup
	errs := make([]error, creators)
	for i := range creators {
		wait.Add(1)
		go func() {
			defer wait.Done()
			// Each goroutine gets its own Registry, as independent
			// sessions would.
			registry, err := New(root)
			if err != nil {
				errs[i] = err
				return
			}
			_, errs[i] = registry.CreateCase(fmt.Sprintf("Case %02d", i), CreateOptions{})
		}()
	}
	wait.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("creator %d: %v", i, err)
		}
	}

	registry, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases, err := registry.ListCases(Filter{})
	if err != nil {
		t.Fatalf("ListCases: %v", err)
	}
	if len(cases) != creators {
		t.Fatalf("case count = %d, want %d (lost update)", len(cases), creators)
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "Silva vs Banco", want: "Silva_vs_Banco"},
		{name: "  padded name  ", want: "padded_name"},
		{name: "case/2026", want: "case2026"},
		{name: "...", wantErr: true},
		{name: "///", wantErr: true},
		{name: "já-ação", want: "j-ao"},
	}

	for _, test := range tests {
		got, err := SanitizeName(test.name)
		if test.wantErr {
			if err == nil {
				t.Errorf("SanitizeName(%q) = %q, want error", test.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("SanitizeName(%q): %v", test.name, err)
			continue
		}
		if got != test.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestWorkspaceStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config", "workspace.json")
	store := NewWorkspaceStore(path)

	// Unset store loads empty, not an error.
	root, err := store.Load()
	if err != nil {
		t.Fatalf("Load (unset): %v", err)
	}
	if root != "" {
		t.Errorf("unset root = %q, want empty", root)
	}

	want := t.TempDir()
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	root, err = store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if root != want {
		t.Errorf("root = %q, want %q", root, want)
	}

	if err := store.Save(""); err == nil {
		t.Error("expected error saving empty root")
	}
}
