// Package config handles the minq configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds the settings the CLI reads before applying flags.
type Config struct {
	// DB is the SQLite database queried when no scene is given.
	DB string `toml:"db"`

	// Format is the output format: text or json.
	Format string `toml:"format"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`

	// BulkRewrite enables the bulk predicate path.
	BulkRewrite bool `toml:"bulk_rewrite"`

	// ScenesDir is where relative scene paths are resolved.
	ScenesDir string `toml:"scenes_dir"`

	// MaxElements caps intermediate sequence length (0 = unlimited).
	MaxElements int `toml:"max_elements"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DB:          "scene.db",
		Format:      FormatText,
		BulkRewrite: true,
		ScenesDir:   "scenes",
	}
}

// Load reads path, or the default location when path is empty. A missing
// file at the default location yields Default(); a missing explicit path is
// an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file over the defaults. Unknown keys are
// rejected.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if !slices.Contains([]string{FormatText, FormatJSON}, c.Format) {
		return fmt.Errorf("format must be %q or %q, got %q", FormatText, FormatJSON, c.Format)
	}
	if c.MaxElements < 0 {
		return fmt.Errorf("max_elements must not be negative, got %d", c.MaxElements)
	}
	return nil
}

// ScenePath resolves a scene path against ScenesDir. Absolute paths and
// paths that exist relative to the working directory are returned as-is.
func (c *Config) ScenePath(p string) string {
	if filepath.IsAbs(p) || c.ScenesDir == "" {
		return p
	}
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return filepath.Join(c.ScenesDir, p)
}

// DefaultPath returns $XDG_CONFIG_HOME/minq/config.toml, falling back to
// ~/.config/minq/config.toml.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "minq", "config.toml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "minq", "config.toml")
	}
	return filepath.Join(".", "config.toml")
}
