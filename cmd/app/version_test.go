package main

import (
	"bytes"
	"runtime/debug"
	"strings"
	"testing"
)

func TestCurrentBuildInfo(t *testing.T) {
	stamped := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v1.4.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc123"},
				{Key: "vcs.time", Value: "2025-01-15T14:32:05Z"},
				{Key: "vcs.modified", Value: "true"},
			},
		}, true
	}

	tests := []struct {
		name string
		read func() (*debug.BuildInfo, bool)
		want buildInfo
	}{
		{
			name: "no build info",
			read: func() (*debug.BuildInfo, bool) { return nil, false },
			want: buildInfo{Version: "dev", Commit: "unknown", Date: "unknown"},
		},
		{
			name: "devel module",
			read: func() (*debug.BuildInfo, bool) {
				return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
			},
			want: buildInfo{Version: "dev", Commit: "unknown", Date: "unknown"},
		},
		{
			name: "vcs stamp",
			read: stamped,
			want: buildInfo{Version: "v1.4.0", Commit: "abc123", Date: "2025-01-15T14:32:05Z", Modified: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := currentBuildInfo(tt.read); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCurrentBuildInfo_LdflagsWin(t *testing.T) {
	oldVersion, oldCommit := version, commit
	t.Cleanup(func() { version, commit = oldVersion, oldCommit })
	version, commit = "v2.0.0", "feedface"

	got := currentBuildInfo(func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main:     debug.Module{Version: "v1.4.0"},
			Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
		}, true
	})
	if got.Version != "v2.0.0" || got.Commit != "feedface" {
		t.Fatalf("ldflags values should not be overridden: %+v", got)
	}
}

func TestBuildInfoWrite(t *testing.T) {
	var buf bytes.Buffer
	buildInfo{Version: "v1.4.0", Commit: "abc123", Date: "today", Modified: true}.write(&buf)

	out := buf.String()
	for _, want := range []string{"snappy v1.4.0\n", "commit: abc123 (modified)\n", "built:  today\n", "go:     go"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
