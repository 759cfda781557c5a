// Package main is the entry point for the jsonstore server.
//
// jsonstore stores JSON documents as individual files, gzip compressing the
// large ones, and exposes them over an HTTP API. Configuration is read from
// CLI flags and jsonstore.yaml in the data directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"

	"github.com/maruel/jsonstore/internal/config"
	"github.com/maruel/jsonstore/internal/documents"
	"github.com/maruel/jsonstore/internal/server"
	"github.com/maruel/jsonstore/internal/server/ratelimit"
	"github.com/maruel/jsonstore/internal/storage"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "jsonstore: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "", "Address to listen on (e.g., localhost:8080, :8080). Overrides the config file.")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	configPath := flag.String("config", "", "Configuration file (default: <data-dir>/"+config.FileName+")")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error). Overrides the config file.")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		readBuildInfo().print(os.Stdout)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(newLogger(ll))

	if err := os.MkdirAll(*dataDir, 0o750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	cfg, err := config.Load(*dataDir, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Flags explicitly set win over the config file.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["http"] || *httpAddr == "" {
		*httpAddr = cfg.HTTP
	}
	if !set["log-level"] {
		*logLevel = cfg.LogLevel
	}
	level, err := config.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	ll.Set(level)

	// Normalize addr: ":8080" becomes "localhost:8080"
	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	storageDir := cfg.ResolveStorageDir(*dataDir)
	store, err := storage.NewFileStore(storageDir, storage.NewFileSystem(afero.NewOsFs()),
		storage.WithCompressionThreshold(cfg.CompressionThresholdBytes),
		storage.WithScanWorkers(cfg.ScanWorkers),
		storage.WithLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	// Leftovers from a crash: temp files and plain copies shadowed by a
	// compressed one.
	if _, err := store.Recover(ctx); err != nil {
		slog.WarnContext(ctx, "Storage recovery incomplete", "err", err)
	}

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	limits := ratelimit.NewConfig(cfg.RateLimits)
	defer limits.Close()

	build := readBuildInfo()
	srvCfg := &server.Config{
		Version:             build.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		RateLimits:          limits,
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(documents.NewService(store), srvCfg),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "storage", storageDir, "version", build.short())
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// newLogger returns a tint logger on stderr. Timestamps are dropped under
// systemd, which adds its own, and so are empty attributes.
func newLogger(level slog.Leveler) *slog.Logger {
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			if isEmpty(a.Value) {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func isEmpty(v slog.Value) bool {
	switch v.Kind() {
	case slog.KindString:
		return v.String() == ""
	case slog.KindBool:
		return !v.Bool()
	case slog.KindInt64:
		return v.Int64() == 0
	case slog.KindUint64:
		return v.Uint64() == 0
	case slog.KindFloat64:
		return v.Float64() == 0
	case slog.KindDuration:
		return v.Duration() == 0
	case slog.KindTime:
		return v.Time().IsZero()
	case slog.KindAny:
		return v.Any() == nil
	default:
		return false
	}
}
