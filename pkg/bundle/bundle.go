package bundle

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/evanw/esbuild/pkg/api"

	"github.com/matzehuels/shakify/pkg/errors"
	"github.com/matzehuels/shakify/pkg/manifest"
)

// Request names one export to bundle.
type Request struct {
	// Package is the package name, e.g. "lodash-es" or "@scope/pkg".
	Package string

	// Export is the export name, "." for the root.
	Export string

	// Dir is the work directory containing node_modules/<Package>.
	Dir string
}

// Output is a bundled export.
type Output struct {
	Code     []byte
	Metafile *Metafile
}

// Options configures a [Bundler].
type Options struct {
	// NodePaths are extra directories searched for bare imports, typically
	// node_modules trees holding the package's dependencies.
	NodePaths []string

	// External lists import paths left unbundled. "*" wildcards are allowed.
	External []string

	// Minify enables whitespace, identifier and syntax minification.
	Minify bool

	// Logger receives debug output. Nil discards it.
	Logger *log.Logger
}

// Bundler builds per-export bundles with esbuild. It is safe for concurrent
// use.
type Bundler struct {
	opts Options
}

// New creates a Bundler.
func New(opts Options) *Bundler {
	return &Bundler{opts: opts}
}

// Bundle builds the export named by req and returns the emitted ESM code.
func (b *Bundler) Bundle(ctx context.Context, req Request) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if manifest.IsPattern(req.Export) {
		return nil, errors.New(errors.ErrCodeBundle,
			"subpath pattern %s names many modules and cannot be bundled as one entry", req.Export)
	}

	dir, err := filepath.Abs(req.Dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBundle, err, "resolve work directory")
	}
	target := manifest.ImportPath(req.Package, req.Export)

	bctx, cerr := api.Context(b.buildOptions(dir, target))
	if cerr != nil {
		return nil, bundleError(target, cerr.Errors)
	}
	defer bctx.Dispose()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			bctx.Cancel()
		case <-stop:
		}
	}()

	res := bctx.Rebuild()
	close(stop)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, bundleError(target, res.Errors)
	}
	if len(res.OutputFiles) == 0 {
		return nil, errors.New(errors.ErrCodeBundle, "esbuild produced no output for %s", target)
	}

	var meta Metafile
	if err := json.Unmarshal([]byte(res.Metafile), &meta); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBundle, err, "parse metafile for %s", target)
	}

	if b.opts.Logger != nil {
		b.opts.Logger.Debug("bundled export",
			"target", target,
			"inputs", len(meta.Inputs),
			"commonjs", meta.CommonJSInputs(),
			"bytes", len(res.OutputFiles[0].Contents),
			"warnings", len(res.Warnings))
	}

	return &Output{Code: res.OutputFiles[0].Contents, Metafile: &meta}, nil
}

func (b *Bundler) buildOptions(dir, target string) api.BuildOptions {
	nodePaths := append([]string{filepath.Join(dir, "node_modules")}, b.opts.NodePaths...)
	return api.BuildOptions{
		EntryPoints:       []string{entrySpecifier},
		Bundle:            true,
		Write:             false,
		Metafile:          true,
		Format:            api.FormatESModule,
		Platform:          api.PlatformNeutral,
		Target:            api.ESNext,
		MainFields:        []string{"module", "main"},
		Conditions:        []string{"module"},
		NodePaths:         nodePaths,
		External:          b.opts.External,
		AbsWorkingDir:     dir,
		Outfile:           filepath.Join(dir, "bundle.js"),
		LogLevel:          api.LogLevelSilent,
		TreeShaking:       api.TreeShakingTrue,
		MinifyWhitespace:  b.opts.Minify,
		MinifyIdentifiers: b.opts.Minify,
		MinifySyntax:      b.opts.Minify,
		Plugins: []api.Plugin{
			virtualEntryPlugin(EntrySource(target), dir),
			builtinsPlugin(),
		},
	}
}

func bundleError(target string, msgs []api.Message) error {
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Text)
	}
	return errors.New(errors.ErrCodeBundle, "bundle %s: %s", target, strings.Join(texts, "; "))
}
