package bundle

import (
	"path/filepath"
	"sort"
	"strings"
)

// Metafile is esbuild's description of a build.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileInput is one source module.
type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
	Format  string           `json:"format,omitempty"` // "cjs" or "esm"
}

// MetafileImport is one import edge.
type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// MetafileOutput is one emitted file.
type MetafileOutput struct {
	Bytes   int                     `json:"bytes"`
	Inputs  map[string]InputContrib `json:"inputs"`
	Imports []MetafileImport        `json:"imports"`
}

// InputContrib is how many output bytes an input produced.
type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// CommonJSInputs counts inputs esbuild treated as CommonJS.
func (m *Metafile) CommonJSInputs() int {
	n := 0
	for _, in := range m.Inputs {
		if in.Format == "cjs" {
			n++
		}
	}
	return n
}

// Contributions returns output bytes per input path, summed over outputs.
func (m *Metafile) Contributions() map[string]int {
	out := make(map[string]int)
	for _, o := range m.Outputs {
		for path, c := range o.Inputs {
			out[path] += c.BytesInOutput
		}
	}
	return out
}

// Externals returns the sorted, de-duplicated external imports of the
// bundle.
func (m *Metafile) Externals() []string {
	seen := make(map[string]bool)
	for _, o := range m.Outputs {
		for _, imp := range o.Imports {
			if imp.External {
				seen[imp.Path] = true
			}
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// DisplayPath shortens an input path for humans: the part after the last
// node_modules directory, or the path itself.
func DisplayPath(path string) string {
	if path == entryNamespace+":"+entryPath {
		return "<entry>"
	}
	slashed := filepath.ToSlash(path)
	if i := strings.LastIndex(slashed, "node_modules/"); i >= 0 {
		return slashed[i+len("node_modules/"):]
	}
	return slashed
}
