// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Delimiter frames an event inside a stdout line. This is a protocol
// constant shared with external agents — changing it breaks every
// deployed agent runtime.
const Delimiter = "__ADK_EVENT__"

// ErrNoEvent is returned by ParseLine when the line contains no
// complete delimiter pair and is therefore plain log text.
var ErrNoEvent = errors.New("line contains no framed event")

// ParseLine extracts the first framed event from a stdout line.
//
// The remainder is the line with the matched span removed — the
// human-readable text for log display. Three outcomes:
//
//   - no delimiter pair: (zero, line, ErrNoEvent) — plain text
//   - valid frame, valid JSON: (event, remainder, nil)
//   - valid frame, malformed JSON: (zero, line, error) — the caller
//     logs the error and treats the whole line as plain text; the
//     stream continues
func ParseLine(line string) (Event, string, error) {
	start := strings.Index(line, Delimiter)
	if start < 0 {
		return Event{}, line, ErrNoEvent
	}
	inner := line[start+len(Delimiter):]
	end := strings.Index(inner, Delimiter)
	if end < 0 {
		// Opening delimiter with no closing one: free text that
		// happens to contain the literal delimiter string.
		return Event{}, line, ErrNoEvent
	}

	event, err := decodeEvent([]byte(inner[:end]))
	if err != nil {
		return Event{}, line, fmt.Errorf("framed event at column %d: %w", start, err)
	}

	remainder := line[:start] + inner[end+len(Delimiter):]
	return event, remainder, nil
}

// StripEvents removes every complete delimited span from a line,
// returning the human-readable remainder. Spans are removed whether
// or not their JSON parses — display code should never show raw
// frames. A line with no delimiter pair is returned unchanged.
func StripEvents(line string) string {
	for {
		start := strings.Index(line, Delimiter)
		if start < 0 {
			return line
		}
		inner := line[start+len(Delimiter):]
		end := strings.Index(inner, Delimiter)
		if end < 0 {
			return line
		}
		line = line[:start] + inner[end+len(Delimiter):]
	}
}

// Encode renders an event as a framed line, without a trailing
// newline.
func Encode(event Event) (string, error) {
	data, err := json.Marshal(envelope{
		Type:      event.Type,
		Data:      event.Raw,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("marshalling event: %w", err)
	}
	return Delimiter + string(data) + Delimiter, nil
}

// Emit writes an event as a framed line to w. Agents call this once
// per event; each event occupies exactly one line.
func Emit(w io.Writer, event Event) error {
	line, err := Encode(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return fmt.Errorf("writing event line: %w", err)
	}
	return nil
}
