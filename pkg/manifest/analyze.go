package manifest

import (
	"bytes"
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RootExport is the export name of a package's main entry point.
const RootExport = "."

// Fields are the manifest facts reported for a package.
type Fields struct {
	SideEffects     json.RawMessage `json:"sideEffects"`
	TreeShakeable   bool            `json:"treeShakeable"`
	ESMSupport      bool            `json:"esmSupport"`
	CommonJSSupport bool            `json:"commonJsSupport"`
}

var jsonTrue = json.RawMessage("true")

// Analyze computes the analysis fields of m.
func Analyze(m *Manifest) Fields {
	side := sideEffects(m.SideEffects)
	return Fields{
		SideEffects:     side,
		TreeShakeable:   treeShakeable(side),
		ESMSupport:      m.Module != "" || truthy(m.Exports),
		CommonJSSupport: m.Main != "",
	}
}

// sideEffects returns the declared flag, or true when it is absent or not a
// boolean or list.
func sideEffects(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return jsonTrue
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return raw
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		return raw
	}
	return jsonTrue
}

func treeShakeable(side json.RawMessage) bool {
	var b bool
	if json.Unmarshal(side, &b) == nil {
		return !b
	}
	var list []json.RawMessage
	if json.Unmarshal(side, &list) == nil {
		return len(list) == 0
	}
	return false
}

// truthy mirrors how package managers test for a declared "exports" field.
func truthy(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "false", `""`, "0", "null":
		return false
	}
	return true
}

// Exports returns the export names of m in declaration order.
// The returned slice is never nil.
func Exports(m *Manifest) []string {
	raw := bytes.TrimSpace(m.Exports)
	if !truthy(raw) || raw[0] != '{' {
		return []string{RootExport}
	}

	om := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, om); err != nil {
		return []string{RootExport}
	}

	names := make([]string, 0, om.Len())
	subpaths := false
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		if strings.HasPrefix(pair.Key, "#") {
			continue
		}
		if strings.HasPrefix(pair.Key, ".") {
			subpaths = true
		}
		names = append(names, pair.Key)
	}
	if len(names) > 0 && !subpaths {
		// Conditions such as "import" and "require" describe the root entry.
		return []string{RootExport}
	}
	return names
}

// ImportPath returns the specifier a consumer would use to import export
// from pkg.
func ImportPath(pkg, export string) string {
	if export == RootExport || export == "" {
		return pkg
	}
	return pkg + strings.TrimPrefix(export, ".")
}

// IsPattern reports whether export is a subpath pattern like "./features/*".
// Patterns name many files and cannot be bundled as one entry.
func IsPattern(export string) bool {
	return strings.Contains(export, "*")
}
