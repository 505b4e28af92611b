// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestBindFlags_BasicTypes(t *testing.T) {
	type params struct {
		Name     string        `flag:"name,n" desc:"case name"`
		Limit    int           `flag:"limit" desc:"entry limit" default:"20"`
		Verbose  bool          `flag:"verbose" desc:"verbose output"`
		Ratio    float64       `flag:"ratio" desc:"a ratio" default:"0.5"`
		Timeout  time.Duration `flag:"timeout" desc:"run timeout" default:"30s"`
		Tags     []string      `flag:"tag" desc:"tags"`
		Internal string        // no flag tag: skipped
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	args := []string{
		"-n", "Smith v. Jones",
		"--limit", "5",
		"--verbose",
		"--tag", "urgent", "--tag", "litigation",
	}
	if err := flagSet.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Name != "Smith v. Jones" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.Limit != 5 {
		t.Errorf("Limit = %d, want 5", p.Limit)
	}
	if !p.Verbose {
		t.Error("Verbose = false, want true")
	}
	if p.Ratio != 0.5 {
		t.Errorf("Ratio = %v, want default 0.5", p.Ratio)
	}
	if p.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want default 30s", p.Timeout)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "urgent" {
		t.Errorf("Tags = %v", p.Tags)
	}
}

func TestBindFlags_EmbeddedStruct(t *testing.T) {
	type params struct {
		JSONOutput
		Client string `flag:"client" desc:"filter by client"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	if err := flagSet.Parse([]string{"--json", "--client", "smith"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !p.OutputJSON {
		t.Error("embedded --json flag not bound")
	}
	if p.Client != "smith" {
		t.Errorf("Client = %q", p.Client)
	}
}

func TestBindFlags_RejectsNonPointer(t *testing.T) {
	type params struct {
		Name string `flag:"name"`
	}

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(params{}, flagSet); err == nil {
		t.Fatal("BindFlags accepted a non-pointer")
	}
}

func TestBindFlags_UnsupportedType(t *testing.T) {
	type params struct {
		Bad map[string]string `flag:"bad"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err == nil {
		t.Fatal("BindFlags accepted an unsupported field type")
	}
}

func TestBindFlags_RejectsUnexportedEmbedded(t *testing.T) {
	type inner struct {
		Name string `flag:"name"`
	}
	type params struct {
		inner
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err == nil {
		t.Fatal("BindFlags accepted an unexported embedded struct")
	}
}

func TestBindFlags_BadDefault(t *testing.T) {
	type params struct {
		Limit int `flag:"limit" default:"not-a-number"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err == nil {
		t.Fatal("BindFlags accepted an unparseable default")
	}
}
