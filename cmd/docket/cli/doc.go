// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the docket unified CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in cmd/docket/main.go
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// Commands bind their flags declaratively through struct tags via
// [FlagsFromParams]; see params.go. The embeddable [JSONOutput] adds a
// --json flag and the EmitJSON helper for script-friendly output.
//
// Errors returned by command Run functions are categorized via the
// constructors in toolerror.go ([Validation], [NotFound], [Conflict],
// [Internal], ...) so the desktop shell invoking the CLI can make
// programmatic recovery decisions without parsing message text.
package cli
