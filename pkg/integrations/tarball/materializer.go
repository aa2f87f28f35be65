package tarball

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	shakerr "github.com/matzehuels/shakify/pkg/errors"
	"github.com/matzehuels/shakify/pkg/httputil"
	"github.com/matzehuels/shakify/pkg/integrations"
	"github.com/matzehuels/shakify/pkg/manifest"
)

// Workspace is a materialized package.
type Workspace struct {
	// Root is the work directory; remove it to discard everything.
	Root string

	// NodeModules is Root/node_modules, the resolution root for bare imports.
	NodeModules string

	// Dir is the extracted package directory, NodeModules/<name>.
	Dir string

	// Files is the number of files extracted.
	Files int
}

// Cleanup removes the work directory.
func (w *Workspace) Cleanup() error {
	if w == nil || w.Root == "" {
		return nil
	}
	return os.RemoveAll(w.Root)
}

// Materializer downloads and extracts package archives.
type Materializer struct {
	client  *integrations.Client
	tempDir string
}

// Options configures a [Materializer].
type Options struct {
	// TempDir is the parent of work directories. Defaults to os.TempDir().
	TempDir string

	// Client performs the download. Defaults to an uncached client.
	Client *integrations.Client
}

// New creates a Materializer.
func New(opts Options) *Materializer {
	if opts.Client == nil {
		opts.Client = integrations.NewClient(nil, nil)
	}
	return &Materializer{client: opts.Client, tempDir: opts.TempDir}
}

// Materialize downloads m.Dist.Tarball, verifies it and extracts it into a new
// work directory under node_modules/<m.Name>.
//
// On failure the work directory is removed and the error carries
// MATERIALIZE_FAILED, INTEGRITY_MISMATCH, NETWORK_ERROR or, when the tarball
// url answers 404, NOT_FOUND.
func (t *Materializer) Materialize(ctx context.Context, m *manifest.Manifest) (*Workspace, error) {
	if m.Dist.Tarball == "" {
		return nil, shakerr.New(shakerr.ErrCodeMaterialize, "%s@%s has no tarball url", m.Name, m.Version)
	}
	if err := shakerr.ValidatePackageName(m.Name); err != nil {
		return nil, err
	}

	root, err := os.MkdirTemp(t.tempDir, "shakify-*")
	if err != nil {
		return nil, shakerr.Wrap(shakerr.ErrCodeMaterialize, err, "create work directory")
	}
	ws := &Workspace{
		Root:        root,
		NodeModules: filepath.Join(root, "node_modules"),
	}
	ws.Dir = filepath.Join(ws.NodeModules, filepath.FromSlash(m.Name))

	archive := filepath.Join(root, "package.tgz")
	err = httputil.RetryWithBackoff(ctx, func() error {
		return t.download(ctx, m, archive)
	})
	if err != nil {
		ws.Cleanup()
		return nil, classify(err, m)
	}

	f, err := os.Open(archive)
	if err != nil {
		ws.Cleanup()
		return nil, shakerr.Wrap(shakerr.ErrCodeMaterialize, err, "open archive")
	}
	n, err := Extract(f, ws.Dir)
	f.Close()
	os.Remove(archive)
	if err != nil {
		ws.Cleanup()
		return nil, shakerr.Wrap(shakerr.ErrCodeMaterialize, err, "extract %s@%s: %v", m.Name, m.Version, err)
	}
	ws.Files = n
	return ws, nil
}

// download writes the archive to dst, verifying its checksum on the way.
func (t *Materializer) download(ctx context.Context, m *manifest.Manifest, dst string) error {
	body, err := t.client.Open(ctx, m.Dist.Tarball, nil)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()

	sum := expectedChecksum(m.Dist)
	var w io.Writer = f
	if sum != nil {
		w = io.MultiWriter(f, sum.hash)
	}
	if _, err := io.Copy(w, body); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &httputil.RetryableError{Err: fmt.Errorf("%w: %v", integrations.ErrNetwork, err)}
	}
	if sum != nil {
		return sum.verify(m.Dist.Tarball)
	}
	return nil
}

func classify(err error, m *manifest.Manifest) error {
	var coded *shakerr.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, integrations.ErrNotFound):
		return shakerr.Wrap(shakerr.ErrCodeNotFound, err, "tarball for %s@%s not found", m.Name, m.Version)
	case errors.Is(err, integrations.ErrNetwork):
		return shakerr.Wrap(shakerr.ErrCodeNetwork, err, "download %s@%s: %v", m.Name, m.Version, err)
	default:
		return shakerr.Wrap(shakerr.ErrCodeMaterialize, err, "download %s@%s: %v", m.Name, m.Version, err)
	}
}
