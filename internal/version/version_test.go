package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringIncludesBuildMetadata(t *testing.T) {
	originalVersion := Version
	originalCommit := Commit
	originalDate := Date
	t.Cleanup(func() {
		Version = originalVersion
		Commit = originalCommit
		Date = originalDate
	})

	Version = "1.2.3"
	Commit = "abc123"
	Date = "2026-10-15"

	got := String()
	require.Contains(t, got, "segnala 1.2.3")
	require.Contains(t, got, "commit=abc123")
	require.Contains(t, got, "date=2026-10-15")
	require.Contains(t, got, "go=")
}

func TestFromBuildInfoUsesModuleVersionAndVCS(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T08:00:00Z"},
		},
	}

	version, commit, date := fromBuildInfo(info, "dev", "none", "unknown")
	require.Equal(t, "v0.4.0", version)
	require.Equal(t, "0123456789ab", commit)
	require.Equal(t, "2026-10-01T08:00:00Z", date)
}

func TestFromBuildInfoKeepsLinkerValues(t *testing.T) {
	info := &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	}

	version, commit, date := fromBuildInfo(info, "dev", "abc123", "2026-10-15")
	require.Equal(t, "dev", version)
	require.Equal(t, "abc123", commit)
	require.Equal(t, "2026-10-15", date)
}
