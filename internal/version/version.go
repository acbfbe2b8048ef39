// Package version reports build metadata injected with -ldflags.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the version line printed by `segnala version`.
func String() string {
	version, commit, date := Version, Commit, Date
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			version, commit, date = fromBuildInfo(info, version, commit, date)
		}
	}
	return "segnala " + version + " (commit=" + commit + ", date=" + date + ", go=" + runtime.Version() + ")"
}

// fromBuildInfo fills in metadata recorded by `go install` or VCS stamping.
func fromBuildInfo(info *debug.BuildInfo, version, commit, date string) (string, string, string) {
	if v := info.Main.Version; v != "" && v != "(devel)" {
		version = v
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "none" && setting.Value != "" {
				commit = setting.Value
				if len(commit) > 12 {
					commit = commit[:12]
				}
			}
		case "vcs.time":
			if date == "unknown" && setting.Value != "" {
				date = setting.Value
			}
		}
	}
	return version, commit, date
}
