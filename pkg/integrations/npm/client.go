package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/shakify/pkg/httputil"
	"github.com/matzehuels/shakify/pkg/integrations"
	"github.com/matzehuels/shakify/pkg/manifest"
)

// Client resolves npm package names to the manifest of their latest version.
type Client struct {
	*integrations.Client
	baseURL string
}

// Options configures a [Client].
type Options struct {
	// Registry is the registry base URL. Defaults to [integrations.DefaultRegistry].
	Registry string

	// Cache stores registry responses. Nil disables response caching.
	Cache *httputil.Cache
}

// NewClient creates a registry client that caches responses for cacheTTL in
// the default cache directory.
func NewClient(cacheTTL time.Duration) (*Client, error) {
	cache, err := integrations.NewCache(cacheTTL)
	if err != nil {
		return nil, err
	}
	return NewClientWithOptions(Options{Cache: cache}), nil
}

// NewClientWithOptions creates a registry client from opts.
func NewClientWithOptions(opts Options) *Client {
	base := strings.TrimRight(opts.Registry, "/")
	if base == "" {
		base = integrations.DefaultRegistry
	}
	cache := opts.Cache
	if cache != nil {
		cache = cache.Namespace("npm:" + base + ":")
	}
	return &Client{
		Client:  integrations.NewClient(cache, map[string]string{"Accept": "application/json"}),
		baseURL: base,
	}
}

// Registry returns the registry base URL.
func (c *Client) Registry() string { return c.baseURL }

// FetchLatest returns the manifest of the version tagged "latest".
// If refresh is true the response cache is bypassed.
//
// A 404 from the registry yields an error wrapping [integrations.ErrNotFound].
func (c *Client) FetchLatest(ctx context.Context, pkg string, refresh bool) (*manifest.Manifest, error) {
	pkg = strings.TrimSpace(pkg)

	var m manifest.Manifest
	err := c.Cached(ctx, pkg, refresh, &m, func() error {
		return c.fetch(ctx, pkg, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) fetch(ctx context.Context, pkg string, m *manifest.Manifest) error {
	var data registryResponse
	if err := c.Get(ctx, c.baseURL+"/"+EscapeName(pkg), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: npm package %s", err, pkg)
		}
		return err
	}

	latest := data.DistTags.Latest
	if latest == "" {
		return fmt.Errorf("%w: npm package %s has no latest dist-tag", integrations.ErrNotFound, pkg)
	}
	raw, ok := data.Versions[latest]
	if !ok {
		return fmt.Errorf("%w: version %s of %s", integrations.ErrNotFound, latest, pkg)
	}
	if err := json.Unmarshal(raw, m); err != nil {
		return fmt.Errorf("decode %s@%s: %w", pkg, latest, err)
	}
	if m.Name == "" {
		m.Name = pkg
	}
	if m.Version == "" {
		m.Version = latest
	}
	return nil
}

// EscapeName encodes a package name for a registry URL path. The slash of a
// scoped name is percent-encoded, so "@scope/pkg" becomes "@scope%2fpkg".
func EscapeName(pkg string) string {
	return strings.ReplaceAll(pkg, "/", "%2f")
}

type registryResponse struct {
	Name     string                     `json:"name"`
	DistTags distTags                   `json:"dist-tags"`
	Versions map[string]json.RawMessage `json:"versions"`
}

type distTags struct {
	Latest string `json:"latest"`
}
