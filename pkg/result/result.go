// Package result defines the analysis result model and its persisted form.
package result

import (
	"encoding/json"

	"github.com/matzehuels/shakify/pkg/manifest"
)

// Result is the outcome of analyzing one package version.
type Result struct {
	Analysis    manifest.Fields     `json:"analysis"`
	ExportSizes []ExportMeasurement `json:"exportSizes"`
	Version     string              `json:"version"`
	Cached      bool                `json:"cached"`
}

// ExportMeasurement is the size of one export, or the reason it could not be
// measured. Exactly one of the size fields or Error is meaningful.
type ExportMeasurement struct {
	ExportName  string `json:"exportName"`
	Size        int    `json:"size"`
	GzippedSize int    `json:"gzippedSize"`
	BrotliSize  int    `json:"brotliSize"`
	Error       string `json:"error,omitempty"`
}

// MarshalJSON writes either the sizes or the error, never both.
func (m ExportMeasurement) MarshalJSON() ([]byte, error) {
	if m.Failed() {
		return json.Marshal(struct {
			ExportName string `json:"exportName"`
			Error      string `json:"error"`
		}{m.ExportName, m.Error})
	}
	type plain ExportMeasurement
	return json.Marshal(plain(m))
}

// Failed reports whether the export could not be measured.
func (m ExportMeasurement) Failed() bool { return m.Error != "" }

// Document maps name@version keys to results. It is the unit the cache
// persists and replaces.
type Document map[string]*Result

// Key returns the cache key for a package version.
func Key(name, version string) string {
	return name + "@" + version
}

// Clone returns a shallow copy of r with its own export slice, so callers can
// set Cached without touching the stored value.
func (r *Result) Clone() *Result {
	c := *r
	c.ExportSizes = append([]ExportMeasurement(nil), r.ExportSizes...)
	return &c
}

// Failures counts exports that could not be measured.
func (r *Result) Failures() int {
	n := 0
	for _, m := range r.ExportSizes {
		if m.Failed() {
			n++
		}
	}
	return n
}
