// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/pflag"

	"github.com/docket-foundation/docket/lib/config"
)

// ConfigFlag is an embeddable struct that adds the --config flag to a
// command's parameter struct. It implements [FlagBinder], so
// [BindFlags] wires it automatically.
//
// Usage:
//
//	type startParams struct {
//	    cli.ConfigFlag
//	    cli.JSONOutput
//	}
//
//	// In Run:
//	cfg, err := params.LoadConfig()
type ConfigFlag struct {
	Path string
}

// AddFlags registers the --config flag.
func (c *ConfigFlag) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.Path, "config", "", "path to docket.yaml (default: $DOCKET_CONFIG)")
}

// LoadConfig loads the configuration: from --config when given,
// otherwise from the DOCKET_CONFIG environment variable. The loaded
// config is validated before being returned.
func (c *ConfigFlag) LoadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if c.Path != "" {
		cfg, err = config.LoadFile(c.Path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
