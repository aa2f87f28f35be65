package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	bi := &debug.BuildInfo{
		GoVersion: "go1.24.0",
		Main:      debug.Module{Path: "github.com/matzehuels/shakify", Version: "v0.3.0"},
		Deps: []*debug.Module{
			{Path: "github.com/spf13/cobra", Version: "v1.10.1"},
			{Path: esbuildModule, Version: "v0.27.2"},
		},
	}

	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"ldflags win", "v1.2.3", "v1.2.3"},
		{"module version fallback", "dev", "v0.3.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = tt.version
			info := fromBuildInfo(bi)
			if info.Version != tt.want {
				t.Errorf("Version = %q, want %q", info.Version, tt.want)
			}
			if info.Esbuild != "v0.27.2" || info.GoVersion != "go1.24.0" {
				t.Errorf("info = %+v", info)
			}
		})
	}
}

func TestFromBuildInfoDevel(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "dev"

	info := fromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if info.Version != "dev" || info.Esbuild != "unknown" {
		t.Errorf("info = %+v", info)
	}
	if info := fromBuildInfo(nil); info.GoVersion != "unknown" {
		t.Errorf("nil build info: %+v", info)
	}
}

func TestStringAndTemplate(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "v1.2.3"

	if got := String(); !strings.HasPrefix(got, "version: v1.2.3\n") || !strings.Contains(got, "esbuild: ") {
		t.Errorf("String() = %q", got)
	}
	if got := Template(); !strings.HasPrefix(got, "{{.Name}} version: v1.2.3\n") {
		t.Errorf("Template() = %q", got)
	}
	if got := UserAgent(); got != "shakify/v1.2.3" {
		t.Errorf("UserAgent() = %q", got)
	}
}
