package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchExecutable calls stop when the jsonstore binary on disk is rewritten
// or replaced.
//
// The server is meant to run under a supervisor that restarts it. After
// `go install` or a package upgrade the old process drains in-flight writes
// and exits, and the new binary runs Recover on the data directory before
// serving.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return err
	}
	return watchFile(ctx, exe, stop)
}

func watchFile(ctx context.Context, path string, stop context.CancelFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					slog.InfoContext(ctx, "Executable replaced, draining", "path", event.Name, "op", event.Op.String())
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
