package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestString_IncludesAllParts(t *testing.T) {
	s := String()
	for _, part := range []string{Version, Commit, Date} {
		if !strings.Contains(s, part) {
			t.Errorf("%q missing %q", s, part)
		}
	}
	if Short() != Version {
		t.Errorf("Short() = %q", Short())
	}
}

func TestFromBuildInfo(t *testing.T) {
	restore := func(v, c, d string) func() {
		return func() { Version, Commit, Date = v, c, d }
	}(Version, Commit, Date)
	defer restore()

	info := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/ferro-labs/faceslots", Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-10-19T08:00:00Z"},
		},
	}

	t.Run("dev defaults are replaced", func(t *testing.T) {
		Version, Commit, Date = "dev", "none", "unknown"
		fromBuildInfo(info)
		if Version != "v1.2.3" || Commit != "0123456" || Date != "2026-10-19T08:00:00Z" {
			t.Errorf("got %s %s %s", Version, Commit, Date)
		}
	})

	t.Run("ldflags win", func(t *testing.T) {
		Version, Commit, Date = "v9.9.9", "feedbee", "yesterday"
		fromBuildInfo(info)
		if Version != "v9.9.9" || Commit != "feedbee" || Date != "yesterday" {
			t.Errorf("got %s %s %s", Version, Commit, Date)
		}
	})

	t.Run("devel builds stay dev", func(t *testing.T) {
		Version, Commit, Date = "dev", "none", "unknown"
		fromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
		if Version != "dev" {
			t.Errorf("version = %s", Version)
		}
	})
}
