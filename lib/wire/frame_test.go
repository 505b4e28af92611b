// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"strings"
	"testing"
)

func TestParseLine_PlainText(t *testing.T) {
	t.Parallel()

	line := "ordinary progress text with no frame"
	_, rest, err := ParseLine(line)
	if !errors.Is(err, ErrNoEvent) {
		t.Fatalf("ParseLine error = %v, want ErrNoEvent", err)
	}
	if rest != line {
		t.Errorf("remainder = %q, want the original line", rest)
	}
}

func TestParseLine_FramedEvent(t *testing.T) {
	t.Parallel()

	line := `__ADK_EVENT__{"type":"x","data":{},"timestamp":"t"}__ADK_EVENT__`
	event, rest, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if event.Type != "x" {
		t.Errorf("Type = %q, want %q", event.Type, "x")
	}
	if event.Timestamp != "t" {
		t.Errorf("Timestamp = %q, want %q", event.Timestamp, "t")
	}
	if string(event.Raw) != "{}" {
		t.Errorf("Raw = %q, want {}", event.Raw)
	}
	if rest != "" {
		t.Errorf("remainder = %q, want empty", rest)
	}
}

func TestParseLine_EventWithSurroundingText(t *testing.T) {
	t.Parallel()

	line := `phase done __ADK_EVENT__{"type":"loop_status","data":{"state":"running","current_phase":"intake","progress_percent":42},"timestamp":"2026-01-02T03:04:05Z"}__ADK_EVENT__ trailing`
	event, rest, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if event.Type != EventTypeLoopStatus {
		t.Fatalf("Type = %q, want loop_status", event.Type)
	}
	if event.LoopStatus == nil {
		t.Fatal("LoopStatus payload not decoded")
	}
	if event.LoopStatus.CurrentPhase != "intake" {
		t.Errorf("CurrentPhase = %q, want intake", event.LoopStatus.CurrentPhase)
	}
	if event.LoopStatus.ProgressPercent != 42 {
		t.Errorf("ProgressPercent = %v, want 42", event.LoopStatus.ProgressPercent)
	}
	if rest != "phase done  trailing" {
		t.Errorf("remainder = %q, want %q", rest, "phase done  trailing")
	}
}

func TestParseLine_MalformedJSON(t *testing.T) {
	t.Parallel()

	line := `__ADK_EVENT__{not json}__ADK_EVENT__`
	_, rest, err := ParseLine(line)
	if err == nil {
		t.Fatal("expected a parse error for malformed JSON")
	}
	if errors.Is(err, ErrNoEvent) {
		t.Fatal("malformed frame should not be classified as plain text by the parser")
	}
	if rest != line {
		t.Errorf("remainder = %q, want the original line for display", rest)
	}
}

func TestParseLine_UnclosedDelimiter(t *testing.T) {
	t.Parallel()

	// A log line that mentions the literal delimiter once. This is
	// the documented collision risk: the parser must treat it as
	// plain text, not hang waiting for a closing delimiter.
	line := "the agent writes __ADK_EVENT__ before each event"
	_, rest, err := ParseLine(line)
	if !errors.Is(err, ErrNoEvent) {
		t.Fatalf("ParseLine error = %v, want ErrNoEvent", err)
	}
	if rest != line {
		t.Errorf("remainder = %q, want original line", rest)
	}
}

func TestParseLine_CollisionWithEmptyFrame(t *testing.T) {
	t.Parallel()

	// Two adjacent delimiter mentions form a frame around the empty
	// string, which is not valid JSON. The line degrades to plain
	// text with a logged error — the accepted outcome for the
	// delimiter collision weak point.
	line := "mentioning __ADK_EVENT____ADK_EVENT__ twice"
	_, rest, err := ParseLine(line)
	if err == nil || errors.Is(err, ErrNoEvent) {
		t.Fatalf("ParseLine error = %v, want a JSON parse error", err)
	}
	if rest != line {
		t.Errorf("remainder = %q, want original line", rest)
	}
}

func TestParseLine_UnknownType(t *testing.T) {
	t.Parallel()

	line := `__ADK_EVENT__{"type":"vector_store_ready","data":{"chunks":12},"timestamp":"t"}__ADK_EVENT__`
	event, _, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if event.Type != "vector_store_ready" {
		t.Errorf("Type = %q, want vector_store_ready", event.Type)
	}
	if string(event.Raw) != `{"chunks":12}` {
		t.Errorf("Raw = %s, want the untouched payload", event.Raw)
	}
	if event.SessionCreated != nil || event.LoopStatus != nil ||
		event.CheckpointCreated != nil || event.CLIResult != nil {
		t.Error("unknown type must not decode into a typed payload")
	}
}

func TestParseLine_CLIResult(t *testing.T) {
	t.Parallel()

	line := `__ADK_EVENT__{"type":"cli_result","data":{"success":false,"error":"boom"},"timestamp":"t"}__ADK_EVENT__`
	event, _, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if event.CLIResult == nil {
		t.Fatal("CLIResult payload not decoded")
	}
	if event.CLIResult.Success {
		t.Error("Success = true, want false")
	}
	if event.CLIResult.Error != "boom" {
		t.Errorf("Error = %q, want boom", event.CLIResult.Error)
	}
}

func TestStripEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "no delimiter",
			line: "plain text",
			want: "plain text",
		},
		{
			name: "frame only",
			line: `__ADK_EVENT__{"type":"x","data":{},"timestamp":"t"}__ADK_EVENT__`,
			want: "",
		},
		{
			name: "frame with surrounding text",
			line: `before __ADK_EVENT__{"a":1}__ADK_EVENT__ after`,
			want: "before  after",
		},
		{
			name: "two frames",
			line: `a__ADK_EVENT__{}__ADK_EVENT__b__ADK_EVENT__{}__ADK_EVENT__c`,
			want: "abc",
		},
		{
			name: "malformed frame still stripped",
			line: `x __ADK_EVENT__{not json}__ADK_EVENT__ y`,
			want: "x  y",
		},
		{
			name: "unclosed delimiter untouched",
			line: "mentions __ADK_EVENT__ once",
			want: "mentions __ADK_EVENT__ once",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := StripEvents(test.line); got != test.want {
				t.Errorf("StripEvents(%q) = %q, want %q", test.line, got, test.want)
			}
		})
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	t.Parallel()

	original, err := NewEvent(EventTypeCheckpointCreated, &CheckpointCreatedData{
		Phase:      "drafting",
		CommitHash: "abc123",
	})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	line, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(line, Delimiter) || !strings.HasSuffix(line, Delimiter) {
		t.Fatalf("encoded line %q not framed by delimiters", line)
	}

	parsed, rest, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if rest != "" {
		t.Errorf("remainder = %q, want empty", rest)
	}
	if parsed.Type != EventTypeCheckpointCreated {
		t.Errorf("Type = %q, want checkpoint_created", parsed.Type)
	}
	if parsed.CheckpointCreated == nil {
		t.Fatal("CheckpointCreated payload not decoded")
	}
	if parsed.CheckpointCreated.Phase != "drafting" {
		t.Errorf("Phase = %q, want drafting", parsed.CheckpointCreated.Phase)
	}
	if parsed.CheckpointCreated.CommitHash != "abc123" {
		t.Errorf("CommitHash = %q, want abc123", parsed.CheckpointCreated.CommitHash)
	}
}

func TestEmit(t *testing.T) {
	t.Parallel()

	event, err := NewEvent(EventTypeSessionCreated, &SessionCreatedData{SessionID: "s-1"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	var builder strings.Builder
	if err := Emit(&builder, event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	output := builder.String()
	if !strings.HasSuffix(output, "\n") {
		t.Error("Emit output must end with a newline")
	}
	if strings.Count(output, "\n") != 1 {
		t.Errorf("Emit output = %q, want exactly one line", output)
	}
}
