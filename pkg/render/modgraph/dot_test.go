package modgraph

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/shakify/pkg/bundle"
)

func sampleMetafile() *bundle.Metafile {
	return &bundle.Metafile{
		Inputs: map[string]bundle.MetafileInput{
			"shakify:entry": {Imports: []bundle.MetafileImport{{Path: "node_modules/demo/index.js", Kind: "import-statement"}}},
			"node_modules/demo/index.js": {Bytes: 100, Format: "esm", Imports: []bundle.MetafileImport{
				{Path: "node_modules/dep/index.js", Kind: "import-statement"},
				{Path: "node:fs", Kind: "import-statement", External: true},
			}},
			"node_modules/dep/index.js":   {Bytes: 50, Format: "cjs"},
			"node_modules/demo/unused.js": {Bytes: 20, Format: "esm"},
		},
		Outputs: map[string]bundle.MetafileOutput{
			"bundle.js": {Bytes: 400, Inputs: map[string]bundle.InputContrib{
				"shakify:entry":              {BytesInOutput: 30},
				"node_modules/demo/index.js": {BytesInOutput: 2048},
				"node_modules/dep/index.js":  {BytesInOutput: 60},
			}},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleMetafile(), Options{Title: "demo@1.0.0 ."})

	for _, want := range []string{
		"digraph G",
		`label="demo@1.0.0 ."`,
		`"shakify:entry" -> "node_modules/demo/index.js"`,
		`"node_modules/demo/index.js" -> "node:fs"`,
		`demo/index.js\n2.0 KiB`,
		`<entry>\n30 B`,
		"dashed",
		"lightgrey",
		"shape=ellipse",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTHideExternal(t *testing.T) {
	dot := ToDOT(sampleMetafile(), Options{HideExternal: true})
	if strings.Contains(dot, "node:fs") {
		t.Error("external import rendered with HideExternal")
	}
}

func TestToDOTDeterministic(t *testing.T) {
	m := sampleMetafile()
	if ToDOT(m, Options{}) != ToDOT(m, Options{}) {
		t.Error("ToDOT() is not deterministic")
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(sampleMetafile(), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderSVG() output is not SVG")
	}
	if !strings.Contains(string(svg), `viewBox="0 0 `) {
		t.Error("viewBox not normalized")
	}
}

func TestRenderSVGInvalid(t *testing.T) {
	if _, err := RenderSVG(context.Background(), "not a graph {"); err == nil {
		t.Error("RenderSVG() error = nil for invalid DOT")
	}
}
