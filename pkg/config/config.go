// Package config loads shakify settings from a TOML file and the environment.
//
// Settings are resolved in increasing priority: built-in defaults, the config
// file, environment variables, then command-line flags (applied by the CLI).
//
// The config file lives at $XDG_CONFIG_HOME/shakify/config.toml, or
// ~/.config/shakify/config.toml when XDG_CONFIG_HOME is unset:
//
//	registry = "https://registry.npmjs.org"
//	cache_url = "redis://localhost:6379/0"
//	concurrency = 4
//	node_paths = ["/opt/shared/node_modules"]
//	external = ["react", "react-dom"]
//	minify = false
//	registry_ttl = "10m"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	shakerr "github.com/matzehuels/shakify/pkg/errors"
)

// Defaults.
const (
	DefaultRegistry    = "https://registry.npmjs.org"
	DefaultConcurrency = 1
	DefaultRegistryTTL = 10 * time.Minute
)

// Environment variables that override the config file.
const (
	EnvRegistry    = "SHAKIFY_REGISTRY"
	EnvCacheURL    = "SHAKIFY_CACHE_URL"
	EnvConcurrency = "SHAKIFY_CONCURRENCY"
)

// Config holds resolved settings.
type Config struct {
	// Registry is the npm registry base URL.
	Registry string `toml:"registry"`

	// CacheURL selects the result store. Empty means the default file in the
	// system temp directory. See cache.Open for accepted forms.
	CacheURL string `toml:"cache_url"`

	// Concurrency is the number of exports bundled at once.
	Concurrency int `toml:"concurrency"`

	NodePaths []string `toml:"node_paths"`
	External  []string `toml:"external"`
	Minify    bool     `toml:"minify"`

	// RegistryTTL is how long registry responses stay cached on disk.
	RegistryTTL Duration `toml:"registry_ttl"`
}

// Duration is a time.Duration read from a TOML string such as "10m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Registry:    DefaultRegistry,
		Concurrency: DefaultConcurrency,
		RegistryTTL: Duration{DefaultRegistryTTL},
	}
}

// Path returns the config file location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "shakify", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "shakify", "config.toml"), nil
}

// Load reads the config file at [Path], if any, and applies environment
// overrides.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		cfg := Default()
		return cfg, cfg.applyEnv(os.Getenv)
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path and applies environment overrides.
// A missing file is not an error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvRegistry)); v != "" {
		c.Registry = v
	}
	if v := strings.TrimSpace(getenv(EnvCacheURL)); v != "" {
		c.CacheURL = v
	}
	if v := strings.TrimSpace(getenv(EnvConcurrency)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConcurrency, err)
		}
		c.Concurrency = n
	}
	return nil
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.RegistryTTL.Duration < 0 {
		return fmt.Errorf("registry_ttl must not be negative")
	}
	if c.Registry != "" {
		if err := shakerr.ValidateURL(c.Registry); err != nil {
			return fmt.Errorf("registry %q: %w", c.Registry, err)
		}
	}
	return nil
}
