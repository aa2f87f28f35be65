package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/matzehuels/shakify/pkg/errors"
)

// Manifest is the part of package.json needed for analysis.
//
// Exports and SideEffects are kept as raw JSON because both have several
// legal shapes; use [Exports] and [Analyze] to interpret them.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Main        string          `json:"main,omitempty"`
	Module      string          `json:"module,omitempty"`
	Exports     json.RawMessage `json:"exports,omitempty"`
	SideEffects json.RawMessage `json:"sideEffects,omitempty"`
	Dist        Dist            `json:"dist"`
}

// Dist describes the published archive of one version.
type Dist struct {
	Tarball   string `json:"tarball,omitempty"`
	Shasum    string `json:"shasum,omitempty"`
	Integrity string `json:"integrity,omitempty"`
}

// UnmarshalJSON decodes leniently: a field with an unexpected type is left
// empty instead of failing the whole manifest.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Manifest{
		Name:        str(raw["name"]),
		Version:     str(raw["version"]),
		Main:        str(raw["main"]),
		Module:      str(raw["module"]),
		Exports:     present(raw["exports"]),
		SideEffects: present(raw["sideEffects"]),
	}
	if d, ok := raw["dist"]; ok {
		var dist map[string]json.RawMessage
		if json.Unmarshal(d, &dist) == nil {
			m.Dist = Dist{
				Tarball:   str(dist["tarball"]),
				Shasum:    str(dist["shasum"]),
				Integrity: str(dist["integrity"]),
			}
		}
	}
	return nil
}

// Parse decodes a package.json document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "invalid package.json: %v", err)
	}
	return &m, nil
}

// Load reads and parses <dir>/package.json.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "cannot read %s", path)
	}
	return Parse(data)
}

func str(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// present returns raw unless it is absent or JSON null.
func present(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}
