// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConsultation_Inline(t *testing.T) {
	t.Parallel()

	payload, err := loadConsultation(`{"matter":"contract review"}`, "")
	if err != nil {
		t.Fatalf("loadConsultation: %v", err)
	}
	if string(payload) != `{"matter":"contract review"}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestLoadConsultation_DefaultsToEmptyObject(t *testing.T) {
	t.Parallel()

	payload, err := loadConsultation("", "")
	if err != nil {
		t.Fatalf("loadConsultation: %v", err)
	}
	if string(payload) != "{}" {
		t.Errorf("payload = %s, want {}", payload)
	}
}

func TestLoadConsultation_FileStripsComments(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "intake.jsonc")
	content := "{\n  // client intake notes\n  \"matter\": \"eviction\",\n}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing consultation file: %v", err)
	}

	payload, err := loadConsultation("", path)
	if err != nil {
		t.Fatalf("loadConsultation: %v", err)
	}
	var decoded struct {
		Matter string `json:"matter"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("parsing stripped payload %s: %v", payload, err)
	}
	if decoded.Matter != "eviction" {
		t.Errorf("matter = %q, want eviction", decoded.Matter)
	}
}

func TestLoadConsultation_RejectsBothSources(t *testing.T) {
	t.Parallel()

	if _, err := loadConsultation("{}", "intake.jsonc"); err == nil {
		t.Fatal("expected error for both --consultation and --consultation-file")
	}
}

func TestLoadConsultation_RejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	if _, err := loadConsultation("{not json", ""); err == nil {
		t.Fatal("expected error for invalid inline JSON")
	}
}
