package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomcrane/mets-parser/internal/api"
	"github.com/tomcrane/mets-parser/internal/config"
	"github.com/tomcrane/mets-parser/internal/inventory"
	"github.com/tomcrane/mets-parser/internal/mets"
	"github.com/tomcrane/mets-parser/internal/pathstore"
	"github.com/tomcrane/mets-parser/internal/pipeline"
)

func main() {
	cfg := config.Load()
	log := cfg.NewLogger(os.Stdout)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	parser := &mets.Parser{Log: log, InferContentType: cfg.InferContentType}

	// Optional sinks. The pipeline treats nil interfaces as disabled, so
	// they are only assigned when configured.
	var (
		store *inventory.Store
		ps    *pathstore.Client
		inv   pipeline.Inventory
		pub   pipeline.Publisher
	)
	if cfg.InventoryDB != "" {
		var err error
		store, err = inventory.Open(cfg.InventoryDB)
		if err != nil {
			log.Error("open inventory", "path", cfg.InventoryDB, "error", err)
			os.Exit(1)
		}
		inv = store
		log.Info("inventory enabled", "path", cfg.InventoryDB)
	}
	if cfg.PathstoreURL != "" {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		pub = ps
		log.Info("publishing enabled", "pathstore", cfg.PathstoreURL)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, parser, inv, pub, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, parser, store, ps, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		if ps != nil {
			ps.Close()
		}
		if store != nil {
			store.Close()
		}
	}()

	log.Info("starting mets-parser", "port", cfg.Port, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}
