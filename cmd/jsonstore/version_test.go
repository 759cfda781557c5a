package main

import (
	"bytes"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildInfo(t *testing.T) {
	tests := []struct {
		name  string
		info  debug.BuildInfo
		want  buildInfo
		short string
	}{
		{
			"devel",
			debug.BuildInfo{GoVersion: "go1.25.0", Main: debug.Module{Version: "(devel)"}},
			buildInfo{Version: "dev", Go: "go1.25.0", Revision: "unknown"},
			"dev+unknown",
		},
		{
			"release",
			debug.BuildInfo{
				GoVersion: "go1.25.0",
				Main:      debug.Module{Version: "v1.2.0"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef0123"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			buildInfo{Version: "v1.2.0", Go: "go1.25.0", Revision: "0123456789abcdef0123", Modified: true},
			"v1.2.0+0123456789ab-dirty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newBuildInfo(&tt.info)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.short, got.short())
		})
	}

	var buf bytes.Buffer
	buildInfo{Version: "v1", Go: "go1.25.0", Revision: "abc", Modified: true}.print(&buf)
	assert.Equal(t, "jsonstore v1\n  go:       go1.25.0\n  revision: abc\n  modified: true\n", buf.String())
}
