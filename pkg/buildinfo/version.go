// Package buildinfo reports which shakify build produced a result.
//
// Release builds set the variables through ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/shakify/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/shakify/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/shakify/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Binaries built with `go install` fall back to the module version recorded
// by the Go toolchain. Bundle sizes depend on the esbuild release linked in,
// so its version is reported alongside.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

const esbuildModule = "github.com/evanw/esbuild"

var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Esbuild   string // linked esbuild module version, "unknown" outside module builds
}

// Read returns the build information, filling gaps from the Go toolchain's
// embedded module data.
func Read() Info {
	bi, _ := debug.ReadBuildInfo()
	return fromBuildInfo(bi)
}

func fromBuildInfo(bi *debug.BuildInfo) Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: "unknown",
		Esbuild:   "unknown",
	}
	if bi == nil {
		return info
	}
	info.GoVersion = bi.GoVersion
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, dep := range bi.Deps {
		if dep.Path != esbuildModule {
			continue
		}
		if dep.Replace != nil {
			dep = dep.Replace
		}
		info.Esbuild = dep.Version
	}
	return info
}

// String returns the formatted build information.
func (i Info) String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s\ngo: %s\nesbuild: %s",
		i.Version, i.Commit, i.Date, i.GoVersion, i.Esbuild)
}

// String returns the formatted build information of the running binary.
func String() string {
	return Read().String()
}

// Template returns the version template string for cobra.
func Template() string {
	return "{{.Name}} " + Read().String() + "\n"
}

// UserAgent is sent with registry and tarball requests.
func UserAgent() string {
	return "shakify/" + Read().Version
}
