package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/shakify/pkg/result"
)

// reportRule closes the analysis header.
const reportRule = "========================================"

// writeReport prints the plain-text analysis report. Measured exports go to
// w; exports that failed go to errw.
func writeReport(w, errw io.Writer, name string, r *result.Result) {
	a := r.Analysis
	fmt.Fprintf(w, "\n=== Package Analysis: %s@%s ===\n", name, r.Version)
	fmt.Fprintf(w, "ESM Support:        %t\n", a.ESMSupport)
	fmt.Fprintf(w, "CommonJS Support:   %t\n", a.CommonJSSupport)
	fmt.Fprintf(w, "Side Effects Flag:  %s\n", compactJSON(a.SideEffects))
	fmt.Fprintf(w, "Tree-shakeable:     %t\n", a.TreeShakeable)
	fmt.Fprintf(w, "Cached Result:      %t\n", r.Cached)
	fmt.Fprint(w, reportRule+"\n\n")

	fmt.Fprintln(w, "Export sizes:")
	for _, e := range r.ExportSizes {
		if e.Failed() {
			fmt.Fprintf(errw, "%-15s | Error: %s\n", e.ExportName, e.Error)
			continue
		}
		fmt.Fprintf(w, "%-15s | Size: %7d bytes | Gzipped: %6d bytes\n", e.ExportName, e.Size, e.GzippedSize)
	}
}

// writeJSON prints r as indented JSON.
func writeJSON(w io.Writer, r *result.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// compactJSON renders a raw JSON value on one line. A missing value prints
// as true, the default for sideEffects.
func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "true"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
