package bundle

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const (
	entrySpecifier = "shakify:entry"
	entryNamespace = "shakify"
	entryPath      = "entry"
)

// EntrySource returns the synthetic entry module for importPath. The path is
// emitted as a quoted string literal, so quotes in export names stay inside it.
func EntrySource(importPath string) string {
	return "import * as pkg from " + strconv.Quote(importPath) + "; export default pkg;"
}

// virtualEntryPlugin serves the synthetic entry from memory. Its imports
// resolve relative to resolveDir.
func virtualEntryPlugin(source, resolveDir string) api.Plugin {
	return api.Plugin{
		Name: "shakify-entry",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(entrySpecifier) + "$"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:      entryPath,
						Namespace: entryNamespace,
					}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: entryNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := source
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: resolveDir,
						Loader:     api.LoaderJS,
					}, nil
				})
		},
	}
}

// nodeBuiltins are the modules Node provides without installation.
var nodeBuiltins = []string{
	"assert", "async_hooks", "buffer", "child_process", "cluster", "console",
	"constants", "crypto", "dgram", "diagnostics_channel", "dns", "domain",
	"events", "fs", "http", "http2", "https", "inspector", "module", "net",
	"os", "path", "perf_hooks", "process", "punycode", "querystring",
	"readline", "repl", "stream", "string_decoder", "sys", "timers", "tls",
	"trace_events", "tty", "url", "util", "v8", "vm", "wasi",
	"worker_threads", "zlib",
}

var builtinFilter = `^(node:.*|(` + strings.Join(nodeBuiltins, "|") + `)(/.*)?)$`

// builtinsPlugin leaves Node builtins as external imports.
func builtinsPlugin() api.Plugin {
	return api.Plugin{
		Name: "node-builtins",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: builtinFilter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:     args.Path,
						External: true,
					}, nil
				})
		},
	}
}
