package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ugboard/yt-pull/app/api"
	"github.com/ugboard/yt-pull/app/cfg"
	"github.com/ugboard/yt-pull/app/channel"
	"github.com/ugboard/yt-pull/app/database"
	"github.com/ugboard/yt-pull/app/engine"
	"github.com/ugboard/yt-pull/app/feed"
	"github.com/ugboard/yt-pull/app/pipeline"
	"github.com/ugboard/yt-pull/app/scheduler"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	initLogger(appCfg.Debug)
	slog.Info("Starting yt-pull", "version", appCfg.Version)

	// Channel registry, loaded once and immutable afterwards
	registry, err := channel.Load(appCfg.ChannelsFile)
	if err != nil {
		slog.Error("Failed to load channel list", "file", appCfg.ChannelsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Channel list loaded", "file", appCfg.ChannelsFile, "channels", registry.Count())

	// Durable dedupe cache
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open dedupe database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	seenRepo := database.NewSeenItemRepository(db)

	// Core pipeline components
	httpClient := &http.Client{Timeout: 30 * time.Second}

	fetcher := feed.NewFetcher(httpClient, appCfg.FeedBaseURL, appCfg.UserAgent,
		time.Duration(appCfg.FetchTimeout)*time.Second)
	parser := feed.NewParser()
	normalizer := feed.NewNormalizer(appCfg.MaxAgeDays)
	pusher := engine.NewClient(httpClient, appCfg.EngineURL, engineAuth(appCfg), appCfg.UserAgent)

	runner := pipeline.NewRunner(registry, fetcher, parser, normalizer, pusher, seenRepo,
		appCfg.MaxPerChannel, appCfg.DedupeTTLDays, appCfg.WorkerCount)

	// Scheduler
	sched, err := scheduler.New(runner, appCfg.Schedule)
	if err != nil {
		slog.Error("Failed to create scheduler", "schedule", appCfg.Schedule, "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()
	slog.Info("Scheduler started", "schedule", appCfg.Schedule)

	// HTTP server
	handler := api.NewHandler(runner, seenRepo, registry,
		appCfg.EngineURL != "", appCfg.EngineToken != "", appCfg.Version)
	server := api.NewServer(handler, appCfg.ManualTriggerToken)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // manual trigger runs the pipeline synchronously
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error, shutting down", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// engineAuth picks the single configured auth strategy for engine pushes.
func engineAuth(appCfg *cfg.Cfg) engine.Auth {
	if appCfg.AuthHeader != "" {
		return engine.CustomHeader{Name: appCfg.AuthHeader, Value: appCfg.EngineToken}
	}
	return engine.BearerToken{Token: appCfg.EngineToken}
}
