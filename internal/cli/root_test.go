package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/shakify/pkg/cache"
	"github.com/matzehuels/shakify/pkg/config"
	shakerr "github.com/matzehuels/shakify/pkg/errors"
	"github.com/matzehuels/shakify/pkg/manifest"
	"github.com/matzehuels/shakify/pkg/result"
)

type fakeService struct {
	res     *result.Result
	err     error
	gotPkg  string
	closed  bool
	cleared bool
}

func (f *fakeService) Analyze(ctx context.Context, pkg string) (*result.Result, error) {
	f.gotPkg = pkg
	return f.res, f.err
}

func (f *fakeService) Clear(ctx context.Context) (bool, error) {
	f.cleared = true
	return true, nil
}

func (f *fakeService) Close() error {
	f.closed = true
	return nil
}

type testCLI struct {
	*CLI
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	settings settings
}

// newTestCLI isolates config and cache locations and routes analyses to svc.
func newTestCLI(t *testing.T, svc *fakeService) *testCLI {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	for _, k := range []string{config.EnvRegistry, config.EnvCacheURL, config.EnvConcurrency} {
		t.Setenv(k, "")
	}

	tc := &testCLI{CLI: New(io.Discard, LogInfo)}
	tc.SetOutput(&tc.stdout, &tc.stderr)
	tc.spinner = false
	tc.newService = func(ctx context.Context, s settings) (service, error) {
		tc.settings = s
		return svc, nil
	}
	return tc
}

func (tc *testCLI) run(args ...string) error {
	root := tc.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func sampleResult() *result.Result {
	return &result.Result{
		Analysis: manifest.Fields{
			SideEffects:     json.RawMessage(`[ "*.css",  "./polyfill.js" ]`),
			TreeShakeable:   true,
			ESMSupport:      true,
			CommonJSSupport: true,
		},
		ExportSizes: []result.ExportMeasurement{
			{ExportName: ".", Size: 1234, GzippedSize: 567, BrotliSize: 500},
			{ExportName: "./utils", Size: 42, GzippedSize: 40, BrotliSize: 38},
			{ExportName: "./broken", Error: `Could not resolve "missing-dep"`},
		},
		Version: "1.2.3",
	}
}

func TestAnalyzeReport(t *testing.T) {
	svc := &fakeService{res: sampleResult()}
	tc := newTestCLI(t, svc)

	if err := tc.run("demo"); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := `
=== Package Analysis: demo@1.2.3 ===
ESM Support:        true
CommonJS Support:   true
Side Effects Flag:  ["*.css","./polyfill.js"]
Tree-shakeable:     true
Cached Result:      false
========================================

Export sizes:
.               | Size:    1234 bytes | Gzipped:    567 bytes
./utils         | Size:      42 bytes | Gzipped:     40 bytes
`
	if got := tc.stdout.String(); got != want {
		t.Errorf("stdout =\n%s\nwant\n%s", got, want)
	}
	wantErr := "./broken        | Error: Could not resolve \"missing-dep\"\n"
	if got := tc.stderr.String(); got != wantErr {
		t.Errorf("stderr = %q, want %q", got, wantErr)
	}
	if svc.gotPkg != "demo" || !svc.closed {
		t.Errorf("gotPkg = %q, closed = %v", svc.gotPkg, svc.closed)
	}
}

func TestAnalyzeSubcommand(t *testing.T) {
	svc := &fakeService{res: sampleResult()}
	tc := newTestCLI(t, svc)

	if err := tc.run("analyze", "@scope/pkg"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if svc.gotPkg != "@scope/pkg" {
		t.Errorf("gotPkg = %q", svc.gotPkg)
	}
	if !strings.Contains(tc.stdout.String(), "=== Package Analysis: @scope/pkg@1.2.3 ===") {
		t.Errorf("stdout = %s", tc.stdout.String())
	}
}

func TestAnalyzeJSON(t *testing.T) {
	svc := &fakeService{res: sampleResult()}
	tc := newTestCLI(t, svc)

	if err := tc.run("demo", "--json"); err != nil {
		t.Fatalf("run: %v", err)
	}
	var got struct {
		Version     string           `json:"version"`
		ExportSizes []map[string]any `json:"exportSizes"`
	}
	if err := json.Unmarshal(tc.stdout.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, tc.stdout.String())
	}
	if got.Version != "1.2.3" || len(got.ExportSizes) != 3 {
		t.Errorf("got %+v", got)
	}
	if _, ok := got.ExportSizes[2]["size"]; ok {
		t.Error("failed export should not carry sizes")
	}
}

func TestMissingPackageName(t *testing.T) {
	tc := newTestCLI(t, &fakeService{})
	err := tc.run()
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("err = %v, want ErrUsage", err)
	}
	if !strings.HasPrefix(tc.stderr.String(), "Usage: shakify <package-name>") {
		t.Errorf("stderr = %q", tc.stderr.String())
	}
}

func TestAnalyzeFatal(t *testing.T) {
	svc := &fakeService{err: shakerr.New(shakerr.ErrCodePackageNotFound, `Package "nope" not found`)}
	tc := newTestCLI(t, svc)

	err := tc.run("nope")
	if !shakerr.Is(err, shakerr.ErrCodePackageNotFound) {
		t.Fatalf("err = %v", err)
	}
	if tc.stdout.Len() != 0 {
		t.Errorf("stdout should be empty, got %q", tc.stdout.String())
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	svc := &fakeService{res: sampleResult()}
	tc := newTestCLI(t, svc)

	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "shakify")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := `
registry = "https://config.example.com"
concurrency = 2
external = ["react"]
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	err := tc.run("demo",
		"--concurrency", "6",
		"--minify",
		"--node-path", "/a", "--node-path", "/b",
		"--external", "vue",
		"--cache-url", "none",
		"--refresh", "--no-cache")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	s := tc.settings
	if s.Registry != "https://config.example.com" {
		t.Errorf("Registry = %q", s.Registry)
	}
	if s.Concurrency != 6 || !s.Minify || !s.Refresh || !s.NoCache {
		t.Errorf("settings = %+v", s)
	}
	if s.CacheURL != "none" {
		t.Errorf("CacheURL = %q", s.CacheURL)
	}
	if !slices.Equal(s.NodePaths, []string{"/a", "/b"}) {
		t.Errorf("NodePaths = %v", s.NodePaths)
	}
	if !slices.Equal(s.External, []string{"react", "vue"}) {
		t.Errorf("External = %v", s.External)
	}
}

func TestInvalidConcurrency(t *testing.T) {
	tc := newTestCLI(t, &fakeService{res: sampleResult()})
	if err := tc.run("demo", "--concurrency", "0"); err == nil {
		t.Error("expected error for --concurrency 0")
	}
}

func TestClearCache(t *testing.T) {
	tc := newTestCLI(t, &fakeService{})
	path := filepath.Join(t.TempDir(), "results.json")

	store := cache.NewFileStore(path)
	if err := cache.Put(context.Background(), store, "demo@1.0.0", sampleResult()); err != nil {
		t.Fatal(err)
	}

	if err := tc.run("--clear-cache", "--cache-url", path); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := tc.stdout.String(); got != "Cache cleared!\n" {
		t.Errorf("first clear = %q", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("cache file still exists: %v", err)
	}

	tc.stdout.Reset()
	if err := tc.run("--clear-cache", "--cache-url", path); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := tc.stdout.String(); got != "No cache found.\n" {
		t.Errorf("second clear = %q", got)
	}
}

func TestCachePath(t *testing.T) {
	tc := newTestCLI(t, &fakeService{})
	path := filepath.Join(t.TempDir(), "results.json")

	if err := tc.run("cache", "path", "--cache-url", path); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := tc.stdout.String()
	if !strings.Contains(out, "results:  "+path) {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, filepath.Join(appName, "registry")) {
		t.Errorf("output = %q", out)
	}
}

func TestGraphFormat(t *testing.T) {
	tests := []struct {
		output, flag string
		want         string
		wantErr      bool
	}{
		{"", "", formatDOT, false},
		{"out.svg", "", formatSVG, false},
		{"out.PNG", "", formatPNG, false},
		{"out.gv", "", formatDOT, false},
		{"", "svg", formatSVG, false},
		{"out.svg", "png", formatSVG, false},
		{"out.pdf", "", "", true},
	}
	for _, tt := range tests {
		got, err := graphFormat(tt.output, tt.flag)
		if (err != nil) != tt.wantErr {
			t.Errorf("graphFormat(%q, %q) err = %v", tt.output, tt.flag, err)
			continue
		}
		if got != tt.want {
			t.Errorf("graphFormat(%q, %q) = %q, want %q", tt.output, tt.flag, got, tt.want)
		}
	}
}
