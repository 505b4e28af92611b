// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/docket-foundation/docket/lib/wire"
)

// eventLogName is the JSONL event log inside the case's state
// directory.
const eventLogName = "session.jsonl"

// logRecord is one line of the session event log: the wire envelope
// plus the orchestrator-side receive time.
type logRecord struct {
	ReceivedAt time.Time       `json:"received_at"`
	Type       wire.EventType  `json:"type"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  string          `json:"timestamp,omitempty"`
}

// EventLogWriter appends structured events as JSONL to the session
// event log. Safe for concurrent use.
type EventLogWriter struct {
	file    *os.File
	encoder *json.Encoder
	mutex   sync.Mutex

	// Aggregated counters, protected by mutex.
	events      []wire.Event
	checkpoints int64
	errors      int64
}

// Summary aggregates a finished session's event counts.
type Summary struct {
	Events      int64 `json:"events"`
	Checkpoints int64 `json:"checkpoints"`
	Errors      int64 `json:"errors"`
}

// NewEventLogWriter creates (or truncates) the session event log.
func NewEventLogWriter(path string) (*EventLogWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating session event log %q: %w", path, err)
	}
	encoder := json.NewEncoder(file)
	// One compact JSON object per line.
	encoder.SetEscapeHTML(false)
	return &EventLogWriter{file: file, encoder: encoder}, nil
}

// Write appends one event. Each write is synced so events survive an
// orchestrator crash; the throughput of agent sessions (tens of
// events per run) makes the cost irrelevant.
func (writer *EventLogWriter) Write(event wire.Event) error {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	record := logRecord{
		ReceivedAt: time.Now(),
		Type:       event.Type,
		Data:       event.Raw,
		Timestamp:  event.Timestamp,
	}
	if err := writer.encoder.Encode(record); err != nil {
		return fmt.Errorf("encoding session event: %w", err)
	}
	if err := writer.file.Sync(); err != nil {
		return fmt.Errorf("syncing session event log: %w", err)
	}

	writer.events = append(writer.events, event)
	switch event.Type {
	case wire.EventTypeCheckpointCreated:
		writer.checkpoints++
	case wire.EventTypeCLIResult:
		if event.CLIResult != nil && !event.CLIResult.Success {
			writer.errors++
		}
	}
	return nil
}

// Events returns a copy of everything written so far, in order. Used
// for the terminal archive.
func (writer *EventLogWriter) Events() []wire.Event {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	events := make([]wire.Event, len(writer.events))
	copy(events, writer.events)
	return events
}

// Summary returns the aggregated counters.
func (writer *EventLogWriter) Summary() Summary {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	return Summary{
		Events:      int64(len(writer.events)),
		Checkpoints: writer.checkpoints,
		Errors:      writer.errors,
	}
}

// Close closes the underlying file.
func (writer *EventLogWriter) Close() error {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	return writer.file.Close()
}
