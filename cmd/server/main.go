package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/slidenotes/internal/api"
	"github.com/dgallion1/slidenotes/internal/app"
	"github.com/dgallion1/slidenotes/internal/config"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.OfflineLLM() {
		log.Warn("OPENAI_API_KEY not set, notes will use the offline fallback")
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("initialize pipeline", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(a.Pipeline, a.Cache, a.Stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Minute, // enrichment of a large deck is slow
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
	}()

	log.Info("starting slidenotes", "port", cfg.Port, "locale", cfg.Locale, "model", cfg.ModelName)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Close()
}
