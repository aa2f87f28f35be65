package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/shakify/pkg/buildinfo"
	"github.com/matzehuels/shakify/pkg/cache"
)

// ErrUsage is returned when the command line is incomplete. The usage text
// has already been printed.
var ErrUsage = errors.New("missing package name")

// analyzeFlags are the flags shared by the root and analyze commands.
type analyzeFlags struct {
	json        bool
	interactive bool
	refresh     bool
	noCache     bool
	clearCache  bool
	concurrency int
	minify      bool
	nodePaths   []string
	external    []string
	registry    string
	cacheURL    string
}

func (f *analyzeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&f.json, "json", false, "print the result as JSON")
	fs.BoolVarP(&f.interactive, "interactive", "i", false, "browse export sizes interactively")
	fs.BoolVar(&f.refresh, "refresh", false, "ignore cached results and registry responses")
	fs.BoolVar(&f.noCache, "no-cache", false, "neither read nor write the result store")
	fs.IntVarP(&f.concurrency, "concurrency", "j", 1, "number of exports bundled at once")
	fs.BoolVar(&f.minify, "minify", false, "minify bundles before measuring")
	fs.StringArrayVar(&f.nodePaths, "node-path", nil, "extra node_modules directory for bare imports (repeatable)")
	fs.StringArrayVar(&f.external, "external", nil, "import path to leave unbundled, * wildcards allowed (repeatable)")
	fs.StringVar(&f.registry, "registry", "", "npm registry URL")
	fs.StringVar(&f.cacheURL, "cache-url", "", "result store: file path, redis://, mongodb:// or none")
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var f analyzeFlags
	root := &cobra.Command{
		Use:   "shakify <package-name>",
		Short: "Shakify measures the tree-shaken size of each npm package export",
		Long: `Shakify downloads the latest version of an npm package, bundles every public
export on its own with tree shaking, and reports the raw and gzipped size of
each bundle. Results are cached per package version.`,
		Version:           buildinfo.Read().Version,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completePackages,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.clearCache {
				return c.runClear(cmd, &f)
			}
			return c.runAnalyze(cmd, &f, args)
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	f.register(root)
	root.Flags().BoolVar(&f.clearCache, "clear-cache", false, "delete all cached results and exit")

	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// analyzeCommand creates the explicit "analyze" subcommand.
func (c *CLI) analyzeCommand() *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze <package-name>",
		Short: "Measure the size of each export of a package",
		Example: `  shakify analyze preact
  shakify analyze @preact/signals --json
  shakify analyze lodash-es -j 8 --minify`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completePackages,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAnalyze(cmd, &f, args)
		},
	}
	f.register(cmd)
	return cmd
}

func (c *CLI) runAnalyze(cmd *cobra.Command, f *analyzeFlags, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(c.stderr, "Usage: %s <package-name> [--clear-cache]\n", appName)
		return ErrUsage
	}
	name := args[0]
	ctx := cmd.Context()

	s, err := loadSettings(cmd, f)
	if err != nil {
		return err
	}

	var spin *Spinner
	if c.spinner && !f.json {
		spin = newSpinnerWithContext(ctx, "Starting...")
		spin.out = c.stderr
		s.progress = spin.SetMessage
	} else {
		s.progress = func(msg string) { c.Logger.Debug(msg) }
	}

	svc, err := c.newService(ctx, s)
	if err != nil {
		return err
	}
	defer svc.Close()

	if spin != nil {
		spin.Start()
	}
	res, err := svc.Analyze(ctx, name)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}

	switch {
	case f.json:
		return writeJSON(c.stdout, res)
	case f.interactive:
		return runBrowser(ctx, c.stdout, name, res)
	default:
		writeReport(c.stdout, c.stderr, name, res)
		return nil
	}
}

// runClear deletes the result store and reports whether anything existed.
func (c *CLI) runClear(cmd *cobra.Command, f *analyzeFlags) error {
	ctx := cmd.Context()
	s, err := loadSettings(cmd, f)
	if err != nil {
		return err
	}
	store, err := cache.Open(ctx, s.CacheURL)
	if err != nil {
		return err
	}
	defer store.Close()

	cleared, err := store.Clear(ctx)
	if err != nil {
		return err
	}
	if cleared {
		fmt.Fprintln(c.stdout, "Cache cleared!")
	} else {
		fmt.Fprintln(c.stdout, "No cache found.")
	}
	c.Logger.Debug("result store", "backend", cache.Backend(store), "location", store.Location())
	return nil
}
