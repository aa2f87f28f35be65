// Package bundle builds the minimal bundle a consumer gets when importing one
// export of a package.
//
// For each export, [Bundler.Bundle] runs esbuild on a synthetic entry module
//
//	import * as pkg from "<package>/<subpath>"; export default pkg;
//
// served from memory by a plugin, so nothing is written next to the package.
// The namespace import keeps every binding of the export alive while still
// letting esbuild drop modules the export never reaches and modules marked
// side-effect free that contribute no bindings.
//
// # Resolution
//
// Bare specifiers resolve from the work directory's node_modules (where
// package tarball puts the package) and then from any extra node paths.
// Entry fields are tried in the order "module", "main"; the "module"
// condition is enabled for "exports" maps. Node builtins and configured
// externals stay as import statements in the output.
//
// # Module formats
//
// CommonJS modules in the graph are wrapped by esbuild at link time, so an
// ESM export importing a CommonJS dependency (or the reverse) bundles into a
// single ESM module. [Metafile.CommonJSInputs] reports how many inputs were
// CommonJS.
//
// # Errors
//
// Unresolvable targets, missing dependencies and subpath patterns all fail
// with a BUNDLE_FAILED error whose message lists esbuild's diagnostics.
package bundle
