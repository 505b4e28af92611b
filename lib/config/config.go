// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Docket components.
//
// Configuration is loaded from a single file specified by:
//   - DOCKET_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures deterministic,
// auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections (development,
// production) that override base values when the environment matches.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Production is for end-user installations.
	Production Environment = "production"
)

// Config is the master configuration for Docket.
type Config struct {
	// Environment identifies the deployment type (development, production).
	Environment Environment `yaml:"environment"`

	// Workspace configures case storage locations.
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Agent configures the external agent process.
	Agent AgentConfig `yaml:"agent"`

	// Checkpoint configures checkpoint behavior.
	Checkpoint CheckpointConfig `yaml:"checkpoint"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Workspace  *WorkspaceConfig  `yaml:"workspace,omitempty"`
	Agent      *AgentConfig      `yaml:"agent,omitempty"`
	Checkpoint *CheckpointConfig `yaml:"checkpoint,omitempty"`
}

// WorkspaceConfig configures case storage locations.
type WorkspaceConfig struct {
	// Root is the default workspace root under which case directories
	// are created. A workspace selected with `docket workspace set`
	// takes precedence.
	// Default: ${HOME}/.docket/workspace
	Root string `yaml:"root"`

	// StateFile is where the selected workspace root is persisted.
	// Default: ${HOME}/.docket/workspace.json
	StateFile string `yaml:"state_file"`
}

// AgentConfig configures the external agent process.
type AgentConfig struct {
	// Command is the agent executable.
	// Default: python3
	Command string `yaml:"command"`

	// Args are base arguments prepended before the agent subcommand,
	// for example a module entry point.
	Args []string `yaml:"args"`

	// PassEnv lists the environment variables handed to the agent
	// process. Nothing else from the orchestrator's environment
	// reaches it.
	PassEnv map[string]string `yaml:"pass_env"`
}

// CheckpointConfig configures checkpoint behavior.
type CheckpointConfig struct {
	// HistoryLimit is how many checkpoints history listings show by
	// default.
	// Default: 20
	HistoryLimit int `yaml:"history_limit"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".docket")

	return &Config{
		Environment: Development,
		Workspace: WorkspaceConfig{
			Root:      filepath.Join(defaultRoot, "workspace"),
			StateFile: filepath.Join(defaultRoot, "workspace.json"),
		},
		Agent: AgentConfig{
			Command: "python3",
			Args:    nil,
			PassEnv: map[string]string{},
		},
		Checkpoint: CheckpointConfig{
			HistoryLimit: 20,
		},
	}
}

// Load loads configuration from the DOCKET_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if DOCKET_CONFIG is not set, this fails.
// This ensures deterministic, auditable configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("DOCKET_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("DOCKET_CONFIG environment variable not set; " +
			"set it to the path of your docket.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values - this ensures deterministic, auditable configuration.
// The only expansion performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Workspace != nil {
		if overrides.Workspace.Root != "" {
			c.Workspace.Root = overrides.Workspace.Root
		}
		if overrides.Workspace.StateFile != "" {
			c.Workspace.StateFile = overrides.Workspace.StateFile
		}
	}

	if overrides.Agent != nil {
		if overrides.Agent.Command != "" {
			c.Agent.Command = overrides.Agent.Command
		}
		if overrides.Agent.Args != nil {
			c.Agent.Args = overrides.Agent.Args
		}
		if overrides.Agent.PassEnv != nil {
			c.Agent.PassEnv = overrides.Agent.PassEnv
		}
	}

	if overrides.Checkpoint != nil {
		if overrides.Checkpoint.HistoryLimit != 0 {
			c.Checkpoint.HistoryLimit = overrides.Checkpoint.HistoryLimit
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"DOCKET_ROOT": c.Workspace.Root,
		"HOME":        os.Getenv("HOME"),
	}

	c.Workspace.Root = expandVars(c.Workspace.Root, vars)
	vars["DOCKET_ROOT"] = c.Workspace.Root // Update for dependent paths.

	c.Workspace.StateFile = expandVars(c.Workspace.StateFile, vars)
	c.Agent.Command = expandVars(c.Agent.Command, vars)
	for key, value := range c.Agent.PassEnv {
		c.Agent.PassEnv[key] = expandVars(value, vars)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Workspace.Root == "" {
		errs = append(errs, fmt.Errorf("workspace.root is required"))
	}

	if c.Workspace.StateFile == "" {
		errs = append(errs, fmt.Errorf("workspace.state_file is required"))
	}

	if c.Agent.Command == "" {
		errs = append(errs, fmt.Errorf("agent.command is required"))
	}

	if c.Checkpoint.HistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("checkpoint.history_limit must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Workspace.Root,
		filepath.Dir(c.Workspace.StateFile),
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
