// Package version holds build-time version information for the faceslots
// binaries. Release builds inject the variables via -ldflags:
//
// -X github.com/ferro-labs/faceslots/internal/version.Version=v0.1.0
// -X github.com/ferro-labs/faceslots/internal/version.Commit=abc1234
// -X github.com/ferro-labs/faceslots/internal/version.Date=2026-10-19T00:00:00Z
//
// Binaries built with `go install module@version` carry no ldflags; for
// those the module version and VCS stamp recorded by the toolchain are used.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Variables set at link time. Default to dev values.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var fillOnce sync.Once

// fill replaces dev defaults with what the toolchain embedded, if anything.
func fill() {
	fillOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		fromBuildInfo(info)
	})
}

func fromBuildInfo(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && Commit == "none":
			Commit = s.Value
			if len(Commit) > 7 {
				Commit = Commit[:7]
			}
		case s.Key == "vcs.time" && Date == "unknown":
			Date = s.Value
		}
	}
}

// String returns a single-line human-readable version string, e.g.:
//
// v0.1.0 (commit abc1234, built 2026-10-19T12:00:00Z)
func String() string {
	fill()
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}

// Short returns just the version tag, e.g. "v0.1.0" or "dev".
func Short() string {
	fill()
	return Version
}
