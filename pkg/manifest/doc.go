// Package manifest derives analysis facts from an npm package manifest.
//
// A [Manifest] is the subset of package.json that shakify cares about: the
// legacy "main" entry, the ESM "module" entry, the "exports" map and the
// "sideEffects" flag, plus the registry's "dist" block when the manifest came
// from the registry rather than from an extracted tarball.
//
// # Exports
//
// [Exports] returns the analyzable entry points in declaration order:
//
//	{"exports": {".": "./index.js", "./utils": "./utils.js", "#internal": "./x.js"}}
//	// => [".", "./utils"]
//
// A string target, an array fallback, a conditions-only object such as
// {"import": "./a.mjs", "require": "./a.cjs"}, or no "exports" at all yield
// exactly ["."]. An object holding only private "#" keys yields an empty list.
//
// # Fields
//
// [Analyze] computes [Fields]. The "sideEffects" value is preserved verbatim
// (true, false, or a list of globs); a package is tree-shakeable when it is
// literally false or an empty list.
//
// Both functions are total: malformed input falls back to the defaults above
// and never returns an error.
package manifest
