package app

import (
	"fmt"
	"strings"
	"time"
)

var (
	// Version is filled by ldflags in release builds.
	Version = "dev"
	// BuildDate is filled by ldflags in release builds.
	BuildDate = ""
)

// BuildInfo is reported by the status endpoint and the startup log line.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date,omitempty"`
}

func CurrentBuild() BuildInfo {
	return newBuildInfo(Version, BuildDate)
}

func newBuildInfo(version, buildDate string) BuildInfo {
	version = strings.TrimSpace(version)
	if version == "" {
		version = "dev"
	}

	return BuildInfo{Version: version, BuildDate: normalizeBuildDate(buildDate)}
}

func (b BuildInfo) String() string {
	if b.BuildDate != "" {
		return fmt.Sprintf("%s (%s)", b.Version, b.BuildDate)
	}

	return b.Version
}

// normalizeBuildDate reduces RFC 3339 timestamps to YYYY-MM-DD and keeps
// anything unparseable as is.
func normalizeBuildDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.Format(time.DateOnly)
	}
	if len(raw) >= len(time.DateOnly) {
		date := raw[:len(time.DateOnly)]
		if _, err := time.Parse(time.DateOnly, date); err == nil {
			return date
		}
	}

	return raw
}
