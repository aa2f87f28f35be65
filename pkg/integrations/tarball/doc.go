// Package tarball materializes a published npm archive on disk.
//
// [Materializer.Materialize] downloads the archive named by a manifest's
// dist.tarball, checks it against dist.integrity (or the legacy dist.shasum),
// and extracts it into a fresh work directory laid out like an install:
//
//	<tmp>/shakify-XXXX/
//	└── node_modules/
//	    └── <name>/          archive contents, first path component stripped
//
// Bundlers resolve the bare package name against <tmp>/shakify-XXXX/node_modules,
// so the analyzed package behaves as if it were installed. Dependencies are
// not installed.
//
// Archive entries that would land outside the package directory are rejected.
// Symbolic links and device files are skipped. Call [Workspace.Cleanup] when
// the analysis is done.
package tarball
