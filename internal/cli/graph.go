package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/shakify/pkg/bundle"
	shakerr "github.com/matzehuels/shakify/pkg/errors"
	"github.com/matzehuels/shakify/pkg/manifest"
	"github.com/matzehuels/shakify/pkg/render/modgraph"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPNG = "png"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	analyzeFlags
	export       string // export to bundle, "." for the root
	output       string // output file; the extension selects the format
	format       string // output format when output has no extension
	hideExternal bool   // omit external imports
}

// graphCommand creates the graph command for rendering an export's module graph.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts
	cmd := &cobra.Command{
		Use:   "graph <package-name>",
		Short: "Render the module graph of one export bundle",
		Long: `Render the module graph of one export bundle.

The graph command bundles a single export of the latest version of a package
and draws the modules esbuild kept, labelled with the bytes each contributes.
CommonJS modules are dashed, external imports are ellipses.

The output format follows the file extension of --output (.svg, .png, .dot).
Without --output the DOT source is printed.`,
		Example: `  shakify graph preact --export ./hooks -o hooks.svg
  shakify graph lodash-es | dot -Tpng > lodash.png`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completePackages,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd, args[0], &opts)
		},
	}
	opts.analyzeFlags.registerBundle(cmd)
	cmd.Flags().StringVarP(&opts.export, "export", "e", manifest.RootExport, "export to bundle")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.svg, .png or .dot)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format when --output has no extension: svg, png, dot")
	cmd.Flags().BoolVar(&opts.hideExternal, "hide-external", false, "omit external imports")
	_ = cmd.RegisterFlagCompletionFunc("format", completeGraphFormat)
	return cmd
}

// registerBundle adds the flags that shape bundling and registry access.
func (f *analyzeFlags) registerBundle(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&f.refresh, "refresh", false, "ignore cached registry responses")
	fs.BoolVar(&f.minify, "minify", false, "minify the bundle")
	fs.StringArrayVar(&f.nodePaths, "node-path", nil, "extra node_modules directory for bare imports (repeatable)")
	fs.StringArrayVar(&f.external, "external", nil, "import path to leave unbundled, * wildcards allowed (repeatable)")
	fs.StringVar(&f.registry, "registry", "", "npm registry URL")
}

func (c *CLI) runGraph(cmd *cobra.Command, name string, opts *graphOpts) error {
	ctx := cmd.Context()
	format, err := graphFormat(opts.output, opts.format)
	if err != nil {
		return err
	}

	s, err := loadSettings(cmd, &opts.analyzeFlags)
	if err != nil {
		return err
	}
	s.NoCache = true
	e, err := c.buildEngine(ctx, s)
	if err != nil {
		return err
	}
	defer e.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Bundling %s %s...", name, opts.export))
	spinner.out = c.stderr
	if c.spinner {
		spinner.Start()
	}
	meta, version, err := c.bundleExport(ctx, e, name, opts.export, s.Refresh)
	spinner.Stop()
	if err != nil {
		return err
	}

	dot := modgraph.ToDOT(meta, modgraph.Options{
		Title:        fmt.Sprintf("%s@%s %s", name, version, opts.export),
		HideExternal: opts.hideExternal,
	})

	var data []byte
	switch format {
	case formatDOT:
		data = []byte(dot)
	case formatSVG:
		data, err = modgraph.RenderSVG(ctx, dot)
	case formatPNG:
		data, err = modgraph.RenderPNG(ctx, dot)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	if opts.output == "" {
		_, err := c.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return err
	}
	printSuccess("Module graph of %s@%s %s", name, version, opts.export)
	printFile(opts.output)
	return nil
}

// bundleExport fetches, materializes and bundles one export, returning its
// metafile and the version it came from.
func (c *CLI) bundleExport(ctx context.Context, e *engine, name, export string, refresh bool) (*bundle.Metafile, string, error) {
	prog := newProgress(loggerFromContext(ctx))
	m, err := e.npm.FetchLatest(ctx, name, refresh)
	if err != nil {
		return nil, "", err
	}
	ws, err := e.materializer.Materialize(ctx, m)
	if err != nil {
		return nil, "", err
	}
	defer ws.Cleanup()

	pkg, err := manifest.Load(ws.Dir)
	if err != nil {
		return nil, "", err
	}
	exports := manifest.Exports(pkg)
	if !slices.Contains(exports, export) {
		return nil, "", shakerr.New(shakerr.ErrCodeInvalidInput,
			"%s@%s has no export %q (exports: %s)", name, m.Version, export, strings.Join(exports, ", "))
	}

	out, err := e.bundler.Bundle(ctx, bundle.Request{Package: name, Export: export, Dir: ws.Root})
	if err != nil {
		return nil, "", err
	}
	prog.done(fmt.Sprintf("Bundled %s %s: %d bytes, %d modules", name, export, len(out.Code), len(out.Metafile.Inputs)))
	return out.Metafile, m.Version, nil
}

// graphFormat picks the output format from the file extension or flag.
func graphFormat(output, flag string) (string, error) {
	format := strings.ToLower(flag)
	if ext := strings.TrimPrefix(filepath.Ext(output), "."); ext != "" {
		format = strings.ToLower(ext)
	}
	switch format {
	case "", "gv", formatDOT:
		return formatDOT, nil
	case formatSVG, formatPNG:
		return format, nil
	}
	return "", shakerr.New(shakerr.ErrCodeInvalidInput, "unsupported graph format %q (want svg, png or dot)", format)
}
