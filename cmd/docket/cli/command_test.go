// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "docket",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(args []string) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "case",
				Run: func(args []string) error {
					called = "case"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"case"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "case" {
		t.Errorf("dispatched to %q, want %q", called, "case")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "docket",
		Subcommands: []*Command{
			{
				Name: "case",
				Subcommands: []*Command{
					{
						Name: "create",
						Run: func(args []string) error {
							called = "case create"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"case", "create", "Smith v. Jones"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "case create" {
		t.Errorf("dispatched to %q, want %q", called, "case create")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "Smith v. Jones" {
		t.Errorf("args = %v, want [Smith v. Jones]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var client string
	var target string

	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.StringVar(&client, "client", "", "filter by client")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--client", "smith", "active"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if client != "smith" {
		t.Errorf("client = %q, want %q", client, "smith")
	}
	if target != "active" {
		t.Errorf("target = %q, want %q", target, "active")
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "docket",
		Subcommands: []*Command{
			{Name: "workspace", Run: func(args []string) error { return nil }},
			{Name: "session", Run: func(args []string) error { return nil }},
		},
	}

	err := root.Execute([]string{"sesion"})
	if err == nil {
		t.Fatal("Execute() succeeded on unknown subcommand")
	}
	if !strings.Contains(err.Error(), `did you mean "session"`) {
		t.Errorf("error %q does not suggest session", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "history",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("history", pflag.ContinueOnError)
			flagSet.Int("limit", 20, "number of entries")
			flagSet.String("case", "", "case directory")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--limt", "5"})
	if err == nil {
		t.Fatal("Execute() succeeded on unknown flag")
	}
	if !strings.Contains(err.Error(), "--limit") {
		t.Errorf("error %q does not suggest --limit", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	root := &Command{
		Name: "docket",
		Subcommands: []*Command{
			{Name: "case", Run: func(args []string) error { return nil }},
		},
	}

	if err := root.Execute(nil); err == nil {
		t.Fatal("Execute() with no args succeeded, want subcommand-required error")
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	root := &Command{
		Name: "docket",
		Subcommands: []*Command{
			{Name: "case", Summary: "Manage cases", Run: func(args []string) error { return nil }},
		},
	}

	// Help must not be treated as an error.
	if err := root.Execute([]string{"--help"}); err != nil {
		t.Fatalf("Execute(--help) error: %v", err)
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	root := &Command{
		Name:        "docket",
		Description: "Docket: case-sandboxed agent session orchestrator.",
		Subcommands: []*Command{
			{Name: "case", Summary: "Manage cases"},
			{Name: "session", Summary: "Run agent sessions"},
		},
		Examples: []Example{
			{Description: "Create a case", Command: "docket case create 'Smith v. Jones'"},
		},
	}

	var buffer bytes.Buffer
	root.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Docket: case-sandboxed agent session orchestrator.",
		"case",
		"Manage cases",
		"session",
		"docket case create 'Smith v. Jones'",
		"Run 'docket <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q:\n%s", want, output)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"session", "session", 0},
		{"sesion", "session", 1},
		{"cas", "case", 1},
		{"workspace", "worksapce", 2},
		{"history", "rollback", 8},
	}

	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
