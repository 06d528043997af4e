// Package config holds the interpreter's constants and its optional
// configuration file.
//
// The configuration is read from lox.yaml (or lox.yml, or lox.toml) found by
// walking up from the working directory, and may be overridden by LOX_*
// environment variables. Every setting has a default, so running without a
// config file is the common case.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Color modes for diagnostics output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config represents the interpreter configuration.
type Config struct {
	// Trace prints the operand stack and each instruction before it executes.
	Trace bool `yaml:"trace" toml:"trace"`

	// PrintCode disassembles every successfully compiled chunk before it runs.
	PrintCode bool `yaml:"print_code" toml:"print_code"`

	// LogLevel is a zerolog level name ("debug", "info", "warn", ...).
	// Defaults to "warn".
	LogLevel string `yaml:"log_level,omitempty" toml:"log_level"`

	// Prompt is printed before each REPL line when stdin is a terminal.
	Prompt string `yaml:"prompt,omitempty" toml:"prompt"`

	// Color controls colored diagnostics: auto, always or never.
	Color string `yaml:"color,omitempty" toml:"color"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses the config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses config content from bytes. The path selects the format
// (".toml" is TOML, anything else YAML) and is used in error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for a config file starting from dir and walking up
// to parent directories.
// Returns the path to the config file and nil error if found,
// or empty string and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// Load resolves the effective configuration for a process started in dir:
// the file named by LOX_CONFIG, else the nearest config file, else defaults,
// with LOX_* environment overrides applied last. It returns the path of the
// file that was read, or "" when none was.
func Load(dir string, lookupEnv func(string) (string, bool)) (*Config, string, error) {
	path, explicit := lookupEnv(EnvConfig)
	if !explicit || path == "" {
		found, err := FindConfig(dir)
		if err != nil {
			return nil, "", err
		}
		path = found
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(lookupEnv); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// ApplyEnv overrides settings from LOX_* environment variables.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) error {
	if v, ok := lookupEnv(EnvTrace); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTrace, err)
		}
		c.Trace = b
	}
	if v, ok := lookupEnv(EnvPrintCode); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPrintCode, err)
		}
		c.PrintCode = b
	}
	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		if _, err := zerolog.ParseLevel(v); err != nil {
			return fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		c.LogLevel = v
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.WarnLevel
	}
	return lvl
}

func (c *Config) validate(path string) error {
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("%s: invalid log_level %q", path, c.LogLevel)
		}
	}

	switch c.Color {
	case "", ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%s: color must be one of auto, always, never (got %q)", path, c.Color)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = zerolog.LevelWarnValue
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.Color == "" {
		c.Color = ColorAuto
	}
}
