package main

import (
	"fmt"
	"io"
	"runtime/debug"
)

// buildInfo is what the binary knows about how it was built.
type buildInfo struct {
	Version  string
	Go       string
	Revision string
	Modified bool
}

func readBuildInfo() buildInfo {
	b := buildInfo{Version: "dev", Go: "unknown", Revision: "unknown"}
	if info, ok := debug.ReadBuildInfo(); ok {
		b = newBuildInfo(info)
	}
	return b
}

func newBuildInfo(info *debug.BuildInfo) buildInfo {
	b := buildInfo{Version: info.Main.Version, Go: info.GoVersion, Revision: "unknown"}
	if b.Version == "" || b.Version == "(devel)" {
		b.Version = "dev"
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Revision = s.Value
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

// short is the version logged at startup.
func (b buildInfo) short() string {
	rev := b.Revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if b.Modified {
		rev += "-dirty"
	}
	return b.Version + "+" + rev
}

func (b buildInfo) print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "jsonstore %s\n  go:       %s\n  revision: %s\n", b.Version, b.Go, b.Revision)
	if b.Modified {
		_, _ = fmt.Fprintln(w, "  modified: true")
	}
}
