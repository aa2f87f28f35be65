// Package cli implements the shakify command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/shakify/pkg/analyzer"
	"github.com/matzehuels/shakify/pkg/bundle"
	"github.com/matzehuels/shakify/pkg/cache"
	"github.com/matzehuels/shakify/pkg/config"
	"github.com/matzehuels/shakify/pkg/httputil"
	"github.com/matzehuels/shakify/pkg/integrations/npm"
	"github.com/matzehuels/shakify/pkg/integrations/tarball"
	"github.com/matzehuels/shakify/pkg/result"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "shakify"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// stdout receives reports, stderr usage and per-export errors.
	stdout io.Writer
	stderr io.Writer

	// spinner enables the progress spinner on stderr.
	spinner bool

	// newService builds the analysis service for a command run. Tests
	// replace it with a fake.
	newService func(ctx context.Context, s settings) (service, error)
}

// service is what commands need from an analysis engine.
type service interface {
	Analyze(ctx context.Context, pkg string) (*result.Result, error)
	Clear(ctx context.Context) (bool, error)
	Close() error
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	c := &CLI{
		Logger:  newLogger(w, level),
		stdout:  os.Stdout,
		stderr:  w,
		spinner: true,
	}
	c.newService = c.newEngine
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects report output.
func (c *CLI) SetOutput(stdout, stderr io.Writer) {
	c.stdout = stdout
	c.stderr = stderr
}

// =============================================================================
// Engine Factory
// =============================================================================

// engine wires the registry client, materializer, bundler and result store
// into an analyzer.
type engine struct {
	*analyzer.Analyzer
	npm          *npm.Client
	materializer *tarball.Materializer
	bundler      *bundle.Bundler
}

func (e *engine) Close() error { return e.Store().Close() }

// newEngine builds the production engine from resolved settings.
func (c *CLI) newEngine(ctx context.Context, s settings) (service, error) {
	return c.buildEngine(ctx, s)
}

func (c *CLI) buildEngine(ctx context.Context, s settings) (*engine, error) {
	dir, err := registryCacheDir()
	if err != nil {
		return nil, err
	}
	responses, err := httputil.NewCache(dir, s.RegistryTTL.Duration)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, s)
	if err != nil {
		return nil, err
	}

	e := &engine{
		npm:          npm.NewClientWithOptions(npm.Options{Registry: s.Registry, Cache: responses}),
		materializer: tarball.New(tarball.Options{}),
		bundler: bundle.New(bundle.Options{
			NodePaths: s.NodePaths,
			External:  s.External,
			Minify:    s.Minify,
			Logger:    c.Logger,
		}),
	}
	e.Analyzer = analyzer.New(e.npm, e.materializer, e.bundler, store, analyzer.Options{
		Concurrency: s.Concurrency,
		Refresh:     s.Refresh,
		Logger:      c.Logger,
		Progress:    s.progress,
	})
	c.Logger.Debug("engine ready",
		"registry", e.npm.Registry(),
		"store", cache.Backend(store),
		"location", store.Location(),
		"concurrency", s.Concurrency)
	return e, nil
}

func openStore(ctx context.Context, s settings) (cache.Store, error) {
	if s.NoCache {
		return cache.NewNullStore(), nil
	}
	return cache.Open(ctx, s.CacheURL)
}

// =============================================================================
// Settings
// =============================================================================

// settings are config file values overlaid with command-line flags.
type settings struct {
	config.Config

	Refresh bool
	NoCache bool

	// progress receives analyzer status lines.
	progress func(string)
}

// loadSettings reads the config file and applies any flags the user set.
func loadSettings(cmd *cobra.Command, f *analyzeFlags) (settings, error) {
	cfg, err := config.Load()
	if err != nil {
		return settings{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("registry") {
		cfg.Registry = f.registry
	}
	if flags.Changed("cache-url") {
		cfg.CacheURL = f.cacheURL
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if flags.Changed("minify") {
		cfg.Minify = f.minify
	}
	cfg.NodePaths = append(cfg.NodePaths, f.nodePaths...)
	cfg.External = append(cfg.External, f.external...)
	if err := cfg.Validate(); err != nil {
		return settings{}, err
	}
	return settings{Config: cfg, Refresh: f.refresh, NoCache: f.noCache}, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/shakify/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// registryCacheDir holds cached registry responses.
func registryCacheDir() (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "registry"), nil
}
