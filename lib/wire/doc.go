// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the event framing protocol shared between
// the orchestrator and external agent processes.
//
// An agent process has exactly one trustworthy output channel: its
// stdout. The wire format embeds structured events inside that
// otherwise free-text stream by framing a JSON object between two
// occurrences of a long, distinctive delimiter:
//
//	__ADK_EVENT__{"type":"loop_status","data":{...},"timestamp":"..."}__ADK_EVENT__
//
// A line without the delimiter pair is plain log text. A line with the
// pair is parsed as JSON; if parsing fails the line degrades to plain
// text and the caller logs a warning — a malformed event never kills
// the stream. The delimiter scheme is a compatibility contract with
// unmodified external agents; a log line that accidentally contains
// the literal delimiter text is a documented (and tested) weak point,
// accepted as unlikely rather than impossible.
//
// Event payloads are a tagged union: one optional typed payload per
// recognized event kind, with the raw JSON retained on every event so
// unknown types pass through untouched.
package wire
