// Command boardroom runs the review panel service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"boardroom/pkg/config"
	"boardroom/pkg/council"
	"boardroom/pkg/httpapi"
	"boardroom/pkg/knowledge"
	"boardroom/pkg/logx"
	"boardroom/pkg/provider"
	"boardroom/pkg/store"
)

const maintenanceTTL = time.Hour

func main() {
	configPath := flag.String("config", "boardroom.yaml", "path to config file")
	flag.Parse()

	logger := logx.NewLogger("boardroom")

	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config: %v", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close store: %v", err)
		}
	}()

	var generator provider.Generator
	switch cfg.Mode {
	case config.ModeLive:
		generator = provider.NewOpenAIGenerator(cfg)
	default:
		generator = provider.NewStubGenerator(cfg.FixturesDir)
	}

	driver := council.NewDriver(
		db,
		council.NewRolePanel(generator),
		knowledge.NewIngestor(db),
		knowledge.NewStoreRetriever(db),
		knowledge.NewMaintenanceCache(maintenanceTTL),
		cfg.AttachmentDir,
	)

	mux := http.NewServeMux()
	httpapi.NewServer(db, driver).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening on %s (mode: %s)", cfg.ListenAddr, cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed: %v", err)
	}
}
