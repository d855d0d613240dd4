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

	"feedreader/app/api"
	"feedreader/app/cfg"
	"feedreader/app/crawler"
	"feedreader/app/database"
	"feedreader/app/feed"
	"feedreader/app/fetch"
	"feedreader/app/seeds"
	"feedreader/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting feedreader", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort,
		appCfg.DBUser, appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrationVersion, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", migrationVersion, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	entryRepo := database.NewEntryRepository(db)

	client := fetch.NewClient(appCfg.UserAgent, time.Duration(appCfg.FetchTimeout)*time.Second)
	feedCrawler := crawler.New(client)
	processor := feed.NewProcessor(client, feedCrawler, feedRepo, entryRepo,
		time.Duration(appCfg.RefreshInterval)*time.Second)
	extractor := feed.NewContentExtractor()

	scheduler := tasks.NewScheduler(processor, feedRepo, entryRepo, client, extractor)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount,
		"interval_seconds", appCfg.SchedulerInterval)

	seedURLs, err := seeds.Load(appCfg.SeedsFile)
	if err != nil {
		slog.Warn("Failed to load seeds file", "path", appCfg.SeedsFile, "error", err)
	}
	for _, seedURL := range seedURLs {
		task := tasks.NewDiscoverFeedTask(seedURL, processor)
		if err := scheduler.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue seed discovery", "seed", seedURL, "error", err)
		}
	}
	if len(seedURLs) > 0 {
		slog.Info("Seed discovery scheduled", "count", len(seedURLs))
	}

	handler := api.NewHandler(feedRepo, entryRepo, processor, scheduler)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
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
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
