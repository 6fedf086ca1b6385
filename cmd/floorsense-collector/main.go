// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

// floorsense-collector is the fleet telemetry collector daemon. It
// listens on a Unix socket for device snapshots, classifies and
// compresses them into a bounded event store, and answers digest
// queries from downstream consumers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/floorsense/floorsense/collector"
	"github.com/floorsense/floorsense/ingest"
	"github.com/floorsense/floorsense/lib/clock"
	"github.com/floorsense/floorsense/lib/config"
	"github.com/floorsense/floorsense/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		socketPath  string
		zonesPath   string
		logLevel    string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("floorsense-collector", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to floorsense.yaml (default: $FLOORSENSE_CONFIG)")
	flagSet.StringVar(&socketPath, "socket", "", "ingest socket path (overrides config)")
	flagSet.StringVar(&zonesPath, "zones", "", "path to JSONC zone registry (overrides config)")
	flagSet.StringVar(&logLevel, "log-level", "", "minimum log level: debug, info, warn, error (overrides config)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		version.Print("floorsense-collector")
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else if os.Getenv("FLOORSENSE_CONFIG") != "" {
		cfg, err = config.Load()
	} else {
		cfg = config.Default()
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if socketPath != "" {
		cfg.Ingest.SocketPath = socketPath
	}
	if zonesPath != "" {
		cfg.ZoneRegistry = zonesPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))

	var zones []string
	if cfg.ZoneRegistry != "" {
		registry, err := config.ReadZoneFile(cfg.ZoneRegistry)
		if err != nil {
			return fmt.Errorf("zone registry: %w", err)
		}
		zones = registry.IDs()
		logger.Info("zone registry loaded", "path", cfg.ZoneRegistry, "zones", len(zones))
	}

	engine, err := collector.New(collector.Config{
		Clock:  clock.Real(),
		Logger: logger.With("component", "collector"),
		Policy: cfg.CollectorPolicy(),
		Zones:  zones,
	})
	if err != nil {
		return err
	}

	server, err := ingest.NewServer(ingest.ServerConfig{
		Collector: engine,
		Logger:    logger.With("component", "ingest"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := ingest.ListenSocket(cfg.Ingest.SocketPath)
	if err != nil {
		return err
	}
	defer listener.Close()
	logger.Info("collector listening", "socket", cfg.Ingest.SocketPath, "version", version.Info())

	go server.Serve(ctx, listener)

	<-ctx.Done()
	stats := engine.GetStats()
	logger.Info("shutting down",
		"ingested", stats.Ingested,
		"malformed", stats.Malformed,
		"suppressed", stats.Suppressed,
		"stored", stats.Stored,
	)
	return nil
}
