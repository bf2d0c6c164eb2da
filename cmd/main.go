/*
Package main is the entry point for the battle server.

It is responsible for loading configuration, initializing the global logging system,
wiring the optional result recorders (Postgres, S3), starting the arena Hub and the HTTP
server, and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"dojo/internal/app/arena"
	"dojo/internal/app/battle"
	"dojo/internal/app/db"
	"dojo/internal/app/presence"
	"dojo/internal/app/storage"
	"dojo/internal/configs"
	"dojo/internal/handler"
	"dojo/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Strs("allowed_origin_suffixes", cfg.AllowedOriginSuffixes).
		Int("countdown_seconds", cfg.CountdownSeconds).
		Bool("archive", cfg.ArchiveEnabled()).
		Bool("database", cfg.DatabaseEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []arena.Option{arena.WithCountdown(cfg.CountdownSeconds, arena.DefaultTickInterval)}

	if cfg.DatabaseEnabled() {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to connect to database")
		}
		defer pool.Close()

		opts = append(opts, arena.WithRecorder(db.NewResultStore(pool)))
	}

	var archive storage.ArchiveService
	if cfg.ArchiveEnabled() {
		archive, err = storage.NewArchiveService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize battle archive")
		}

		opts = append(opts, arena.WithRecorder(archive))
	}

	// Initialize the arena Hub
	hub := arena.NewHub(battle.NewStore(), presence.NewRegistry(), opts...)
	go hub.Run()

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Hub:     hub,
		Config:  cfg,
		Archive: archive,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logx.Info("Battle server starting.", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	g.Go(func() error {
		<-gctx.Done()
		logx.Info("Received shutdown signal. Starting graceful shutdown...")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logx.Error(err, "Server stopped with error")
	}

	hub.Stop()

	logx.Info("Server gracefully stopped.")
}
