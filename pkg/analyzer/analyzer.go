package analyzer

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/shakify/pkg/bundle"
	"github.com/matzehuels/shakify/pkg/cache"
	"github.com/matzehuels/shakify/pkg/errors"
	"github.com/matzehuels/shakify/pkg/integrations"
	"github.com/matzehuels/shakify/pkg/integrations/tarball"
	"github.com/matzehuels/shakify/pkg/manifest"
	"github.com/matzehuels/shakify/pkg/measure"
	"github.com/matzehuels/shakify/pkg/observability"
	"github.com/matzehuels/shakify/pkg/result"
)

// MetadataResolver returns the manifest of a package's latest version.
type MetadataResolver interface {
	FetchLatest(ctx context.Context, pkg string, refresh bool) (*manifest.Manifest, error)
}

// Materializer places a package's published files on disk.
type Materializer interface {
	Materialize(ctx context.Context, m *manifest.Manifest) (*tarball.Workspace, error)
}

// Bundler bundles one export of a materialized package.
type Bundler interface {
	Bundle(ctx context.Context, req bundle.Request) (*bundle.Output, error)
}

// Options tune an [Analyzer].
type Options struct {
	// Concurrency is the number of exports bundled at once. Values below 1
	// mean 1.
	Concurrency int

	// Refresh skips the cache lookup. Fresh results are still persisted.
	Refresh bool

	// Logger receives progress and warnings. Nil discards them.
	Logger *log.Logger

	// Progress, when set, is called with a short status line at each step.
	// With Concurrency above 1 it is called from several goroutines.
	Progress func(status string)
}

// Analyzer runs analyses. It holds no per-analysis state.
type Analyzer struct {
	resolver     MetadataResolver
	materializer Materializer
	bundler      Bundler
	store        cache.Store
	opts         Options
	logger       *log.Logger
}

// New creates an Analyzer. A nil store disables caching.
func New(resolver MetadataResolver, materializer Materializer, bundler Bundler, store cache.Store, opts Options) *Analyzer {
	if store == nil {
		store = cache.NewNullStore()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Analyzer{
		resolver:     resolver,
		materializer: materializer,
		bundler:      bundler,
		store:        store,
		opts:         opts,
		logger:       logger,
	}
}

// Store returns the result store.
func (a *Analyzer) Store() cache.Store { return a.store }

// WithRefresh returns a copy of a with Options.Refresh set to refresh.
func (a *Analyzer) WithRefresh(refresh bool) *Analyzer {
	c := *a
	c.opts.Refresh = refresh
	return &c
}

// Analyze returns the analysis of the latest version of pkg, from the cache
// when possible.
func (a *Analyzer) Analyze(ctx context.Context, pkg string) (res *result.Result, err error) {
	if err := errors.ValidatePackageName(pkg); err != nil {
		return nil, err
	}

	hooks := observability.Analysis()
	hooks.OnAnalyzeStart(ctx, pkg)
	start := time.Now()
	defer func() {
		version, cached := "", false
		if res != nil {
			version, cached = res.Version, res.Cached
		}
		hooks.OnAnalyzeComplete(ctx, pkg, version, cached, time.Since(start), err)
	}()

	a.progress("Fetching metadata for %s...", pkg)
	meta, err := a.resolver.FetchLatest(ctx, pkg, a.opts.Refresh)
	if err != nil {
		return nil, classifyFetch(err, pkg)
	}
	version := meta.Version
	key := result.Key(pkg, version)

	if !a.opts.Refresh {
		if cached, ok := a.lookup(ctx, key); ok {
			a.logger.Info("using cached result", "package", key)
			out := cached.Clone()
			out.Cached = true
			out.Version = version
			return out, nil
		}
	}

	a.logger.Info("analyzing", "package", key)
	res, err = a.analyze(ctx, pkg, meta)
	if err != nil {
		return nil, err
	}

	a.persist(ctx, key, res)
	a.logger.Info("analysis complete",
		"package", key,
		"exports", len(res.ExportSizes),
		"failed", res.Failures(),
		"duration", time.Since(start))
	return res, nil
}

// Clear deletes every stored result and reports whether anything existed.
func (a *Analyzer) Clear(ctx context.Context) (bool, error) {
	return a.store.Clear(ctx)
}

func (a *Analyzer) analyze(ctx context.Context, pkg string, meta *manifest.Manifest) (*result.Result, error) {
	a.progress("Downloading %s...", pkg)
	ws, err := a.materializer.Materialize(ctx, meta)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeMaterialize, err, "materialize %s@%s: %v", pkg, meta.Version, err)
		}
		return nil, err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			a.logger.Warn("failed to remove work directory", "dir", ws.Root, "error", err)
		}
	}()
	a.logger.Debug("materialized package", "dir", ws.Dir, "files", ws.Files)

	local, err := manifest.Load(ws.Dir)
	if err != nil {
		return nil, err
	}
	name := meta.Name
	if name == "" {
		name = pkg
	}

	exports := manifest.Exports(local)
	a.logger.Debug("resolved exports", "package", name, "exports", exports)

	sizes, err := a.measureExports(ctx, name, ws.Root, exports)
	if err != nil {
		return nil, err
	}

	return &result.Result{
		Analysis:    manifest.Analyze(local),
		ExportSizes: sizes,
		Version:     meta.Version,
		Cached:      false,
	}, nil
}

// measureExports bundles and measures every export. Only cancellation
// returns an error; bundling failures are recorded per export.
func (a *Analyzer) measureExports(ctx context.Context, pkg, dir string, exports []string) ([]result.ExportMeasurement, error) {
	sizes := make([]result.ExportMeasurement, len(exports))
	hooks := observability.Analysis()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, export := range exports {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a.progress("Bundling export '%s'...", export)
			start := time.Now()

			out, err := a.bundler.Bundle(gctx, bundle.Request{Package: pkg, Export: export, Dir: dir})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				a.logger.Debug("export failed", "export", export, "error", err)
				sizes[i] = result.ExportMeasurement{ExportName: export, Error: errors.UserMessage(err)}
				hooks.OnExportMeasured(gctx, pkg, export, 0, 0, time.Since(start), err)
				return nil
			}

			s := measure.Measure(out.Code)
			sizes[i] = result.ExportMeasurement{
				ExportName:  export,
				Size:        s.Size,
				GzippedSize: s.Gzipped,
				BrotliSize:  s.Brotli,
			}
			hooks.OnExportMeasured(gctx, pkg, export, s.Size, s.Gzipped, time.Since(start), nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sizes, nil
}

func (a *Analyzer) lookup(ctx context.Context, key string) (*result.Result, bool) {
	backend := cache.Backend(a.store)
	r, ok, err := cache.Get(ctx, a.store, key)
	if err != nil {
		a.logger.Warn("cache unavailable, treating as empty", "cache", a.store.Location(), "error", err)
		observability.Cache().OnCacheMiss(ctx, backend)
		return nil, false
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, backend)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, backend)
	return r, true
}

func (a *Analyzer) persist(ctx context.Context, key string, r *result.Result) {
	if err := cache.Put(ctx, a.store, key, r); err != nil {
		a.logger.Warn("failed to save result", "cache", a.store.Location(), "error", err)
		return
	}
	size := 0
	if data, err := json.Marshal(r); err == nil {
		size = len(data)
	}
	observability.Cache().OnCacheSet(ctx, cache.Backend(a.store), size)
}

func (a *Analyzer) progress(format string, args ...any) {
	if a.opts.Progress != nil {
		a.opts.Progress(fmt.Sprintf(format, args...))
	}
}

func classifyFetch(err error, pkg string) error {
	var coded *errors.Error
	switch {
	case stderrors.As(err, &coded):
		return err
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return err
	case stderrors.Is(err, integrations.ErrNotFound):
		return errors.Wrap(errors.ErrCodePackageNotFound, err, "package %s not found in registry", pkg)
	default:
		return errors.Wrap(errors.ErrCodeNetwork, err, "fetch metadata for %s: %v", pkg, err)
	}
}
