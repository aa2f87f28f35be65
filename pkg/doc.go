// Package pkg provides the core libraries for shakify, a per-export bundle
// size analyzer for npm packages.
//
// # Overview
//
// shakify fetches the latest version of a package from the npm registry,
// unpacks it, bundles every public export on its own with esbuild and
// reports how large each bundle is, raw and compressed. Results are cached
// by name@version, so a package is analyzed again only when it publishes a
// new version.
//
// # Architecture
//
// The data flow of one analysis:
//
//	npm registry
//	     ↓
//	[integrations/npm] (latest manifest)
//	     ↓
//	[cache] ─hit─→ result
//	     ↓ miss
//	[integrations/tarball] (download, verify, extract)
//	     ↓
//	[manifest] (package.json fields and export subpaths)
//	     ↓
//	[bundle] (one esbuild bundle per export)
//	     ↓
//	[measure] (raw, gzip and brotli sizes)
//	     ↓
//	[result] → [cache]
//
// [analyzer] drives the whole sequence. The CLI, HTTP API and MCP server all
// call into it.
//
// # Main Packages
//
// ## Analysis
//
// [analyzer] - Orchestrates one package analysis with bounded concurrency
// across exports.
//
// [manifest] - package.json parsing, tree-shaking flags and export discovery.
//
// [bundle] - esbuild wrapper producing a minimal consumer bundle for one export.
//
// [measure] - Byte, gzip and brotli sizes of a bundle.
//
// [result] - The analysis result document and its JSON form.
//
// ## Infrastructure
//
// [cache] - Result stores keyed by name@version: JSON file (default), Redis
// and MongoDB.
//
// [integrations] - HTTP client for the npm registry and tarball materializer.
//
// [httputil] - Response cache and retry helpers for registry requests.
//
// [config] - TOML and environment settings.
//
// [errors] - Coded errors with user-facing messages.
//
// [observability] - Hooks for analysis, cache and upstream HTTP events.
//
// ## Visualization
//
// [render/modgraph] - Module graph of one export bundle as DOT, SVG or PNG.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test -run Example ./pkg/...       # Examples only
//	go test -tags integration ./pkg/...  # Include registry tests
//
// [analyzer]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/analyzer
// [manifest]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/manifest
// [bundle]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/bundle
// [measure]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/measure
// [result]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/result
// [cache]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/cache
// [integrations]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/integrations
// [integrations/npm]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/integrations/npm
// [integrations/tarball]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/integrations/tarball
// [httputil]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/httputil
// [config]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/observability
// [render/modgraph]: https://pkg.go.dev/github.com/matzehuels/shakify/pkg/render/modgraph
package pkg
