// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package checkpoint versions a case directory with git and exposes
// it as an append-only history of named snapshots.
//
// One Backend is scoped to one case directory; all git commands
// target that directory via the -C flag, so there is never a
// "current repository" ambiguity. The versioning is invisible
// plumbing: callers deal in checkpoints (hash, phase, message,
// timestamp), not in git concepts, and the only destructive
// operation — RollbackTo — exists for explicit user action.
//
// Transient workspace state (.context/ retrieval artifacts, logs,
// editor droppings) is excluded from every snapshot through the
// .gitignore written at initialization.
package checkpoint
