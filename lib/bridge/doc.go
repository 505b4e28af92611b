// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge spawns external agent processes and exposes their
// output as a lazy, finite stream of line events.
//
// Each Execute call owns exactly one child process. The child receives
// only the environment variables the caller supplies — nothing is
// inherited from the parent — which is how the sandbox contract is
// enforced: an agent that was not handed a variable cannot see it.
//
// Output is consumed by ordinary channel iteration rather than
// callback registration. Lines() yields stdout and stderr lines in
// per-pipe arrival order and closes when both pipes drain; Wait()
// then reports the exit status. Stderr lines are carried for logging
// only and are never parsed as protocol.
package bridge
