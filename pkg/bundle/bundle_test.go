package bundle

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/shakify/pkg/errors"
)

// writeTree writes files (relative path => content) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func demoWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"node_modules/demo/package.json": `{
  "name": "demo",
  "version": "1.0.0",
  "type": "module",
  "sideEffects": false,
  "exports": {
    ".": "./index.js",
    "./a": "./a.js",
    "./b": "./b.js",
    "./cjs": "./uses-cjs.js",
    "./builtin": "./builtin.js",
    "./needs-missing": "./needs-missing.js",
    "./features/*": "./features/*.js"
  }
}`,
		"node_modules/demo/index.js":         "export { a } from './a.js';\nexport { b } from './b.js';\n",
		"node_modules/demo/a.js":             "export const a = 'ONLY_IN_A';\n",
		"node_modules/demo/b.js":             "export const b = 'ONLY_IN_B';\n",
		"node_modules/demo/uses-cjs.js":      "import dep from 'dep';\nexport const v = dep.value;\n",
		"node_modules/demo/builtin.js":       "import { join } from 'node:path';\nimport fs from 'fs';\nexport const j = join('a', 'b') + typeof fs;\n",
		"node_modules/demo/needs-missing.js": "import x from 'missing-dep';\nexport default x;\n",
		"node_modules/dep/package.json":      `{"name":"dep","main":"index.js"}`,
		"node_modules/dep/index.js":          "module.exports = { value: 'CJS_VALUE' };\n",
	})
	return dir
}

func TestBundleRootExport(t *testing.T) {
	dir := demoWorkspace(t)
	out, err := New(Options{}).Bundle(context.Background(), Request{Package: "demo", Export: ".", Dir: dir})
	if err != nil {
		t.Fatalf("Bundle() error: %v", err)
	}
	code := string(out.Code)
	for _, want := range []string{"ONLY_IN_A", "ONLY_IN_B"} {
		if !strings.Contains(code, want) {
			t.Errorf("root bundle missing %s:\n%s", want, code)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "bundle.js")); !os.IsNotExist(err) {
		t.Error("bundle was written to disk")
	}
}

func TestBundleExcludesSiblingExport(t *testing.T) {
	dir := demoWorkspace(t)
	out, err := New(Options{}).Bundle(context.Background(), Request{Package: "demo", Export: "./a", Dir: dir})
	if err != nil {
		t.Fatalf("Bundle() error: %v", err)
	}
	if !strings.Contains(string(out.Code), "ONLY_IN_A") {
		t.Error("bundle of ./a lacks its own code")
	}
	if strings.Contains(string(out.Code), "ONLY_IN_B") {
		t.Error("bundle of ./a contains code unique to ./b")
	}
}

func TestBundleCommonJSDependency(t *testing.T) {
	dir := demoWorkspace(t)
	out, err := New(Options{}).Bundle(context.Background(), Request{Package: "demo", Export: "./cjs", Dir: dir})
	if err != nil {
		t.Fatalf("Bundle() error: %v", err)
	}
	if !strings.Contains(string(out.Code), "CJS_VALUE") {
		t.Errorf("bundle missing CommonJS dependency:\n%s", out.Code)
	}
	if out.Metafile.CommonJSInputs() < 1 {
		t.Errorf("CommonJSInputs() = %d, want >= 1", out.Metafile.CommonJSInputs())
	}
}

func TestBundleBuiltinsExternal(t *testing.T) {
	dir := demoWorkspace(t)
	out, err := New(Options{}).Bundle(context.Background(), Request{Package: "demo", Export: "./builtin", Dir: dir})
	if err != nil {
		t.Fatalf("Bundle() error: %v", err)
	}
	ext := out.Metafile.Externals()
	for _, want := range []string{"fs", "node:path"} {
		if !slices.Contains(ext, want) {
			t.Errorf("Externals() = %v, missing %s", ext, want)
		}
	}
}

func TestBundleErrors(t *testing.T) {
	dir := demoWorkspace(t)
	tests := []struct {
		name   string
		pkg    string
		export string
		want   string
	}{
		{"missing subpath", "demo", "./nope", "demo/nope"},
		{"missing dependency", "demo", "./needs-missing", "missing-dep"},
		{"missing package", "absent", ".", "absent"},
		{"pattern subpath", "demo", "./features/*", "pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{}).Bundle(context.Background(), Request{Package: tt.pkg, Export: tt.export, Dir: dir})
			if !errors.Is(err, errors.ErrCodeBundle) {
				t.Fatalf("Bundle() error = %v, want BUNDLE_FAILED", err)
			}
			if !strings.Contains(errors.UserMessage(err), tt.want) {
				t.Errorf("message %q does not mention %q", errors.UserMessage(err), tt.want)
			}
		})
	}
}

func TestBundleExternalOption(t *testing.T) {
	dir := demoWorkspace(t)
	b := New(Options{External: []string{"missing-dep"}})
	out, err := b.Bundle(context.Background(), Request{Package: "demo", Export: "./needs-missing", Dir: dir})
	if err != nil {
		t.Fatalf("Bundle() error: %v", err)
	}
	if !slices.Contains(out.Metafile.Externals(), "missing-dep") {
		t.Errorf("Externals() = %v", out.Metafile.Externals())
	}
}

func TestBundleNodePaths(t *testing.T) {
	dir := demoWorkspace(t)
	deps := t.TempDir()
	writeTree(t, deps, map[string]string{
		"missing-dep/package.json": `{"name":"missing-dep","module":"index.js"}`,
		"missing-dep/index.js":     "export default 'FROM_NODE_PATH';\n",
	})

	b := New(Options{NodePaths: []string{deps}})
	out, err := b.Bundle(context.Background(), Request{Package: "demo", Export: "./needs-missing", Dir: dir})
	if err != nil {
		t.Fatalf("Bundle() error: %v", err)
	}
	if !strings.Contains(string(out.Code), "FROM_NODE_PATH") {
		t.Errorf("dependency from node path not bundled:\n%s", out.Code)
	}
}

func TestBundleMinify(t *testing.T) {
	dir := demoWorkspace(t)
	req := Request{Package: "demo", Export: ".", Dir: dir}
	plain, err := New(Options{}).Bundle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	min, err := New(Options{Minify: true}).Bundle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(min.Code) >= len(plain.Code) {
		t.Errorf("minified %d bytes >= plain %d bytes", len(min.Code), len(plain.Code))
	}
}

func TestBundleDeterministic(t *testing.T) {
	dir := demoWorkspace(t)
	req := Request{Package: "demo", Export: "./cjs", Dir: dir}
	first, err := New(Options{}).Bundle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(Options{}).Bundle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if string(first.Code) != string(second.Code) {
		t.Error("bundling the same export twice produced different code")
	}
}

func TestBundleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Bundle(ctx, Request{Package: "demo", Export: ".", Dir: demoWorkspace(t)})
	if err != context.Canceled {
		t.Errorf("Bundle() error = %v, want context.Canceled", err)
	}
}

func TestEntrySource(t *testing.T) {
	tests := []struct {
		importPath string
		want       string
	}{
		{"demo/utils", `import * as pkg from "demo/utils"; export default pkg;`},
		{"demo/it's", `import * as pkg from "demo/it's"; export default pkg;`},
		{`demo/"x"; import "evil`, `import * as pkg from "demo/\"x\"; import \"evil"; export default pkg;`},
	}
	for _, tt := range tests {
		if got := EntrySource(tt.importPath); got != tt.want {
			t.Errorf("EntrySource(%q) = %q, want %q", tt.importPath, got, tt.want)
		}
	}
}

func TestBundleQuoteInExportName(t *testing.T) {
	_, err := New(Options{}).Bundle(context.Background(),
		Request{Package: "demo", Export: "./it's'; import 'node:fs", Dir: demoWorkspace(t)})
	if !errors.Is(err, errors.ErrCodeBundle) {
		t.Fatalf("Bundle() error = %v, want BUNDLE_FAILED", err)
	}
	if !strings.Contains(errors.UserMessage(err), "Could not resolve") {
		t.Errorf("error = %q, want a resolve failure for the whole specifier", errors.UserMessage(err))
	}
}

func TestDisplayPath(t *testing.T) {
	tests := map[string]string{
		"shakify:entry":                   "<entry>",
		"node_modules/demo/index.js":      "demo/index.js",
		"x/node_modules/a/node_modules/b": "b",
		"src/local.js":                    "src/local.js",
	}
	for in, want := range tests {
		if got := DisplayPath(in); got != want {
			t.Errorf("DisplayPath(%q) = %q, want %q", in, got, want)
		}
	}
}
