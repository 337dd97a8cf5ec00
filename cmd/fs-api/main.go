package main

import (
	"FlowSpectra/internal/api"
	"FlowSpectra/internal/config"
	"FlowSpectra/internal/engine/manager"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/logger"
	"FlowSpectra/internal/metrics"
	_ "FlowSpectra/internal/sink" // Registers the writers
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	input := flag.String("i", "", "Flow CSV file to analyse.")
	listenAddr := flag.String("addr", "", "Address the API listens on.")
	flag.Parse()

	boot, _ := logger.NewLogrusLogger(os.Stderr, "info", "text")

	cfg, err := config.LoadConfig(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.New()
	}
	if err != nil {
		boot.Error(fmt.Errorf("failed to load configuration: %w", err))
		os.Exit(1)
	}
	if *input != "" {
		cfg.Input.Path = *input
	}
	if *listenAddr != "" {
		cfg.API.ListenAddr = *listenAddr
	}
	if err := cfg.Validate(); err != nil {
		boot.Error(fmt.Errorf("invalid configuration: %w", err))
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		boot.Error(fmt.Errorf("failed to initialize logger: %w", err))
		os.Exit(1)
	}

	mgr, err := manager.New(cfg, factory.CreateWriters(cfg.Writers, log), metrics.New(prometheus.DefaultRegisterer), log)
	if err != nil {
		log.Error(fmt.Errorf("failed to create manager: %w", err))
		os.Exit(1)
	}
	defer mgr.Close()

	handler := api.NewHandler(mgr, cfg.Input.Path, log)
	if _, err := handler.Refresh(context.Background()); err != nil {
		// Keep serving: POST /api/v1/runs retries once the input is fixed.
		log.Error(fmt.Errorf("initial analysis failed: %w", err))
	}

	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: handler.Router(prometheus.DefaultGatherer),
	}

	go func() {
		log.Info(fmt.Sprintf("API server starting on %s", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(fmt.Errorf("could not listen on %s: %w", server.Addr, err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error(fmt.Errorf("server forced to shutdown: %w", err))
	}
	log.Info("API server exited.")
}
