package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/pdfsift/internal/api"
	"github.com/dgallion1/pdfsift/internal/artifacts"
	"github.com/dgallion1/pdfsift/internal/config"
	"github.com/dgallion1/pdfsift/internal/pipeline"
	"github.com/dgallion1/pdfsift/internal/summarize"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients and stores.
	gemini := summarize.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.SummarizeMaxChars)
	store, err := artifacts.New(cfg.ArtifactDir, cfg.ArtifactTTL, log)
	if err != nil {
		log.Error("artifact store init failed", "error", err)
		os.Exit(1)
	}
	store.Start(ctx)

	// Initialize the work supervisor.
	sup := pipeline.NewSupervisor(cfg, gemini, store, log)

	// Initialize HTTP server.
	srv := api.NewServer(sup, store, gemini, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		store.Stop()
		gemini.Close()
	}()

	log.Info("starting pdfsift", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
