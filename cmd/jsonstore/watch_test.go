package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchFile(t *testing.T) {
	for _, name := range []string{"rewrite", "replace"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			bin := filepath.Join(dir, "jsonstore")
			require.NoError(t, os.WriteFile(bin, []byte("v1"), 0o700))

			ctx, stop := context.WithCancel(t.Context())
			defer stop()
			require.NoError(t, watchFile(ctx, bin, stop))

			if name == "rewrite" {
				require.NoError(t, os.WriteFile(bin, []byte("v2"), 0o700))
			} else {
				next := filepath.Join(dir, "jsonstore.new")
				require.NoError(t, os.WriteFile(next, []byte("v2"), 0o700))
				require.NoError(t, os.Rename(next, bin))
			}
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
				t.Fatal("stop was not called")
			}
		})
	}
}

func TestWatchFileMissing(t *testing.T) {
	ctx, stop := context.WithCancel(t.Context())
	defer stop()
	require.Error(t, watchFile(ctx, filepath.Join(t.TempDir(), "absent"), stop))
}
