// Package config handles TOML-based configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"lecturetube/internal/httputil"
)

// Duration is a time.Duration written as a string ("30s", "1m") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds all application configuration.
type Config struct {
	Endpoint  string   `toml:"endpoint"`
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
	History   bool     `toml:"history"`
	Output    string   `toml:"output"`
	Debug     bool     `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Endpoint:  "https://oc-presentation.ltcc.tuwien.ac.at/search/episode.json",
		Timeout:   Duration{30 * time.Second},
		UserAgent: httputil.DefaultUserAgent,
		History:   true,
		Output:    "table",
		Debug:     false,
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lecturetube"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "lecturetube"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file at path (or the default location when path
// is empty) and merges it over the defaults.
// A missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing config %s: unknown key %q", path, undecoded[0].String())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if err := httputil.ValidateURL(c.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}

	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}

	validOutputs := map[string]bool{
		"table": true, "json": true,
	}
	if !validOutputs[strings.ToLower(c.Output)] {
		return fmt.Errorf("unsupported output %q (valid: table, json)", c.Output)
	}

	if strings.ContainsAny(c.UserAgent, "\r\n") {
		return fmt.Errorf("user_agent must be a single line")
	}

	return nil
}

// HistoryPath returns the path to the history database.
func HistoryPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "lecturetube", "history.db"), nil
}
