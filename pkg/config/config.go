// Package config loads ScriptyScript host configuration from YAML.
package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ProjectFile is looked up in the working directory.
const ProjectFile = ".ss.yaml"

// Config is the host-side configuration. Scripts cannot read it.
type Config struct {
	REPL     REPL     `yaml:"repl"`
	Log      Log      `yaml:"log"`
	Limits   Limits   `yaml:"limits"`
	Builtins Builtins `yaml:"builtins"`

	// Source is the file the configuration was read from; empty for defaults.
	Source string `yaml:"-"`
}

// REPL configures the interactive shell.
type REPL struct {
	Prompt       string `yaml:"prompt"`
	HistoryFile  string `yaml:"history_file"`
	HistoryLimit int    `yaml:"history_limit"`
}

// Log configures host logging.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Limits bounds script execution.
type Limits struct {
	MaxCallDepth int `yaml:"max_call_depth"`
}

// Builtins selects which built-ins are bound in the root environment.
type Builtins struct {
	Deny []string `yaml:"deny"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		REPL: REPL{
			Prompt:       "ss> ",
			HistoryFile:  "~/.ss_history",
			HistoryLimit: 1000,
		},
		Log: Log{
			Level:  "warn",
			Format: "text",
		},
		Limits: Limits{
			MaxCallDepth: 10000,
		},
	}
}

// Load reads configuration. An explicit path must exist. Otherwise the
// precedence is: project (./.ss.yaml) → user
// (~/.config/scriptyscript/config.yaml) → defaults.
func Load(explicit, projectDir string) (*Config, error) {
	if explicit != "" {
		return loadFile(explicit)
	}

	projectPath := filepath.Join(projectDir, ProjectFile)
	if cfg, err := loadFile(projectPath); err == nil {
		return cfg, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".config", "scriptyscript", "config.yaml")
		if cfg, err := loadFile(userPath); err == nil {
			return cfg, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return Default(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Limits.MaxCallDepth < 0 {
		return errors.Errorf("limits.max_call_depth must not be negative, got %d", c.Limits.MaxCallDepth)
	}
	if c.REPL.HistoryLimit < 0 {
		return errors.Errorf("repl.history_limit must not be negative, got %d", c.REPL.HistoryLimit)
	}
	return nil
}

// CheckBuiltins reports deny entries that name no known built-in.
func (c *Config) CheckBuiltins(known []string) error {
	set := make(map[string]bool, len(known))
	for _, name := range known {
		set[name] = true
	}
	for _, name := range c.Builtins.Deny {
		if !set[name] {
			return errors.Errorf("builtins.deny: unknown built-in %q", name)
		}
	}
	return nil
}

// HistoryPath returns the REPL history file with a leading ~ expanded.
// It is empty when history is disabled.
func (c *Config) HistoryPath() string {
	p := c.REPL.HistoryFile
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}

// NewLogger builds the host logger described by the configuration.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}
