package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type buildInfo struct {
	Version, Commit, Date string
	Modified              bool
}

// currentBuildInfo prefers ldflags values and fills the gaps from the VCS
// stamp that go build embeds, so plain "go install" binaries still report
// their commit.
func currentBuildInfo(read func() (*debug.BuildInfo, bool)) buildInfo {
	info := buildInfo{Version: version, Commit: commit, Date: date}
	bi, ok := read()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func (b buildInfo) write(w io.Writer) {
	rev := b.Commit
	if b.Modified {
		rev += " (modified)"
	}
	_, _ = fmt.Fprintf(w, "snappy %s\ncommit: %s\nbuilt:  %s\ngo:     %s\nos:     %s/%s\n",
		b.Version, rev, b.Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			currentBuildInfo(debug.ReadBuildInfo).write(cmd.OutOrStdout())
		},
	}
}
