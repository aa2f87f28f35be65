// Package npm provides an HTTP client for the npm registry API.
//
// # Usage
//
//	client, err := npm.NewClient(10 * time.Minute)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	m, err := client.FetchLatest(ctx, "lodash-es", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(m.Name, m.Version, m.Dist.Tarball)
//
// # Version Selection
//
// The client always resolves the version tagged "latest" in dist-tags. The
// returned [manifest.Manifest] is the registry's copy of that version's
// package.json, including the "dist" block with the tarball URL and
// checksums.
//
// # Caching
//
// Responses are cached on disk for the TTL given when creating the client.
// Keep the TTL short; the latest tag moves. Pass refresh=true to bypass the
// cache.
//
// # Other Registries
//
// [NewClientWithOptions] accepts a registry base URL for mirrors and private
// registries that speak the npm registry protocol.
package npm
