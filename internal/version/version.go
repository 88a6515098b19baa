// Package version carries build identification for the clock binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/lbogdanov/nixieclock/internal/version.Version=v1.0.0 \
//	                   -X github.com/lbogdanov/nixieclock/internal/version.Commit=abc123"
var (
	// Version is the firmware version
	Version = ""
	// Commit is the git commit hash
	Commit = ""
)

// Product is the name reported to external services and in mDNS records.
const Product = "NixieClock"

func init() {
	if Version == "" || Commit == "" {
		fromBuildInfo()
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills Commit from the VCS stamp of the running binary.
func fromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	var revision string
	dirty := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	if Commit == "" && revision != "" {
		if len(revision) > 7 {
			revision = revision[:7]
		}
		Commit = revision
		if dirty {
			Commit += "-dirty"
		}
	}
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent is sent with every outbound HTTP request.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", Product, strings.TrimPrefix(Version, "v"))
}
