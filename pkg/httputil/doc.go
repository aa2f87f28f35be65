// Package httputil provides HTTP utilities for the registry and tarball clients.
//
// # Overview
//
//   - [Cache]: file-based caching of registry metadata responses
//   - [Retry]: retry with exponential backoff that honors Retry-After
//
// # Caching
//
// [Cache] stores decoded registry documents under ~/.cache/shakify/registry
// with a short TTL. The TTL is deliberately short: the "latest" dist-tag moves,
// and a stale document would make shakify analyze an old version. Analysis
// results are cached separately and forever, keyed by exact version (see
// package cache).
//
//	c, err := httputil.NewCache("", 10*time.Minute)
//	var doc registryDocument
//	if ok, _ := c.Get("npm:react", &doc); !ok {
//	    doc = fetchFromRegistry()
//	    _ = c.Set("npm:react", doc)
//	}
//
// # Retry
//
// [Retry] re-runs a request only when it failed with a [RetryableError]
// (network errors, 5xx and 429 responses). Other failures such as 404 are
// returned immediately. When the npm registry rate limits a client it sends
// Retry-After; the client parses it with [ParseRetryAfter] into an
// errors.RateLimitedError and Retry sleeps for that long, up to
// [MaxRetryAfter], instead of the doubling delay.
//
// The cache can be cleared via `shakify cache clear --registry`.
package httputil
