package app

import "testing"

func TestNewBuildInfo(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		buildDate string
		want      string
	}{
		{name: "defaults", want: "dev"},
		{name: "version only", version: " 1.2.0 ", want: "1.2.0"},
		{name: "rfc3339 date", version: "1.2.0", buildDate: "2025-04-03T10:11:12Z", want: "1.2.0 (2025-04-03)"},
		{name: "date prefix", version: "1.2.0", buildDate: "2025-04-03_build7", want: "1.2.0 (2025-04-03)"},
		{name: "opaque date", version: "1.2.0", buildDate: "yesterday", want: "1.2.0 (yesterday)"},
	}

	for _, tc := range tests {
		if got := newBuildInfo(tc.version, tc.buildDate).String(); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}
