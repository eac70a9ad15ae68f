package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lcalzada-xor/wlanctl/internal/app"
	"github.com/lcalzada-xor/wlanctl/internal/config"
	"github.com/lcalzada-xor/wlanctl/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "wlanctl: %v\n", err)
		os.Exit(2)
	}

	// Setup Structured Logging
	if err := setupLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "wlanctl: setup logging: %v\n", err)
		os.Exit(1)
	}

	// Initialize Tracing
	if cfg.Trace.Enabled {
		shutdownTracer, closeTrace, err := setupTracing(cfg.Trace)
		if err != nil {
			slog.Error("Failed to init tracer", "error", err)
		} else {
			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					slog.Error("Failed to shutdown tracer", "error", err)
				}
				closeTrace()
			}()
		}
	}

	// Initialize Application
	application, err := app.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Root Context with cancellation on Interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("wlanctl starting", "version", telemetry.ServiceVersion, "config", cfg.RawFile)

	if err := application.Run(ctx); err != nil {
		slog.Error("Application error", "error", err)
		cancel()
	}
}

// setupLogging installs a JSON slog handler on stdout, mirrored to a
// rotating file when one is configured.
func setupLogging(cfg *config.Config) error {
	var out io.Writer = os.Stdout
	if cfg.Logs.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logs.File), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Logs.File,
			MaxSize:    cfg.Logs.MaxSizeMB,
			MaxAge:     cfg.Logs.MaxAgeDays,
			MaxBackups: cfg.Logs.MaxBackups,
			Compress:   cfg.Logs.Compress,
		})
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})))
	return nil
}

func setupTracing(tc config.TraceConfig) (func(context.Context) error, func(), error) {
	w := io.Writer(os.Stderr)
	closeFn := func() {}
	if tc.File != "" {
		f, err := os.Create(tc.File)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	shutdown, err := telemetry.InitTracer(w)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return shutdown, closeFn, nil
}
