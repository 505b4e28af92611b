// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry maintains the durable index of case workspaces.
//
// The single source of truth is one JSON document at
// <workspaceRoot>/.registry.json. There is no long-lived in-memory
// authoritative copy: every mutation re-reads the document from disk,
// applies the change, and writes it back atomically (temp file, fsync,
// rename), all while holding an exclusive flock(2) on a sidecar lock
// file. Concurrent case creation from independent sessions therefore
// serializes instead of losing updates.
//
// A case's on-disk scaffolding (.adk_state/, .context/, docs/,
// drafts/) is created before its registry row is written, so the
// registry never references a directory that does not exist.
package registry
