// Package consts houses some constants needed across typedmem
package consts

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version contains the current semantic version of typedmem.
const Version = "0.4.0"

// commit returns the VCS revision the binary was built from, if known.
func commit() (revision string, dirty bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(revision) > 10 {
		revision = revision[:10]
	}
	return revision, dirty
}

// FullVersion returns the version with the commit and platform details.
func FullVersion() string {
	goVersionArch := fmt.Sprintf("%s, %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	revision, dirty := commit()
	if revision == "" {
		return fmt.Sprintf("%s (%s)", Version, goVersionArch)
	}
	if dirty {
		revision += "-dirty"
	}
	return fmt.Sprintf("%s (commit/%s, %s)", Version, revision, goVersionArch)
}

// VersionDetails returns the version details as a map, for JSON output.
func VersionDetails() map[string]string {
	details := map[string]string{
		"version":    "v" + Version,
		"go_version": runtime.Version(),
		"go_os":      runtime.GOOS,
		"go_arch":    runtime.GOARCH,
	}
	if revision, dirty := commit(); revision != "" {
		if dirty {
			revision += "-dirty"
		}
		details["commit"] = revision
	}
	return details
}
