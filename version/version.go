// Package version reports the build of the newfs binary.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Set with -ldflags "-X"; otherwise taken from the module build info.
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func setting(key string) (string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value, true
		}
	}
	return "", false
}

// GetVersion prefers the linked-in version over the module version.
func GetVersion() string {
	if Version != "dev" && Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "development"
}

func GetInfo() Info {
	info := Info{Version: GetVersion(), Commit: Commit, Date: Date}
	if info.Commit == "unknown" || info.Commit == "" {
		if v, ok := setting("vcs.revision"); ok {
			info.Commit = v
		}
	}
	if info.Date == "unknown" || info.Date == "" {
		if v, ok := setting("vcs.time"); ok {
			info.Date = v
		}
	}
	return info
}

// GetFullVersion formats the version with a short commit and build date
// when they are known.
func GetFullVersion() string {
	info := GetInfo()
	if info.Commit == "unknown" || len(info.Commit) <= 7 {
		return info.Version
	}
	short := info.Commit[:7]
	if info.Date != "unknown" {
		return fmt.Sprintf("%s (%s, built %s)", info.Version, short, info.Date)
	}
	return fmt.Sprintf("%s (%s)", info.Version, short)
}
