// Package integrations provides the HTTP clients that fetch what shakify
// analyzes.
//
// # Overview
//
//   - [npm]: registry client resolving a package name to its latest manifest
//   - [tarball]: downloads, verifies and extracts a published archive
//
// # Shared Infrastructure
//
// The [Client] type provides the HTTP plumbing both use: default headers,
// retry of transient failures through [httputil.RetryWithBackoff], response
// caching via [httputil.Cache], and request events for
// [observability.HTTPHooks].
//
// Failures are reported with two sentinels. [ErrNotFound] means the registry
// answered 404; [ErrNetwork] covers everything else that went wrong on the
// wire. Callers translate them into coded errors.
//
// [npm]: github.com/matzehuels/shakify/pkg/integrations/npm
// [tarball]: github.com/matzehuels/shakify/pkg/integrations/tarball
package integrations
