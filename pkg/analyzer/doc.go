// Package analyzer runs the shakify analysis for one package.
//
// An [Analyzer] wires four collaborators behind narrow interfaces:
//
//   - [MetadataResolver]: package name to latest manifest (npm registry)
//   - [Materializer]: manifest to extracted package on disk (tarball)
//   - [Bundler]: one export to a bundle (esbuild)
//   - [cache.Store]: persisted results keyed by name@version
//
// and drives them through a fixed sequence:
//
//	fetch metadata → check cache ─hit─→ return cached result
//	                      │
//	                     miss
//	                      ↓
//	materialize → load package.json → analyze fields → per export: bundle, measure
//	                                                           ↓
//	                                                  persist → return
//
// Metadata, materialization and manifest failures abort the analysis and
// nothing is cached. A failing export is recorded in the result and the
// remaining exports are still measured. Cache read and write failures are
// logged and otherwise ignored.
//
// # Concurrency
//
// Exports are measured by up to [Options.Concurrency] goroutines (default 1).
// Results are stored by index, so their order always matches the order of
// the package's "exports" map. An Analyzer may be shared by goroutines
// analyzing different packages.
package analyzer
