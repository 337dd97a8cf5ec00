package main

import (
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
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	input := flag.String("i", "", "Flow CSV file to analyse (required unless set in the config).")
	output := flag.String("o", "", "Directory the file writer stores results in.")
	maxRecords := flag.Int("n", 0, "Maximum number of records to read, 0 for all.")
	lowerBound := flag.Uint64("l", 200, "Received connections a destination must exceed to be analysed.")
	address := flag.String("a", "", "Analyse this single address only (integer or dotted form).")
	features := flag.Bool("features", false, "Also compute the whole-dataset feature overview.")
	diagnostics := flag.Bool("d", false, "Log per-destination record count diagnostics.")
	flag.Parse()

	boot, _ := logger.NewLogrusLogger(os.Stderr, "info", "text")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		boot.Error(fmt.Errorf("failed to load configuration: %w", err))
		os.Exit(1)
	}

	// Flags given on the command line override the configuration.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.Input.Path = *input
		case "o":
			cfg.SetOutputRoot(*output)
		case "n":
			cfg.Input.MaxRecords = *maxRecords
		case "l":
			cfg.Analysis.LowerBound = *lowerBound
		case "a":
			cfg.Analysis.Address = *address
		case "features":
			cfg.Analysis.FeatureOverview = *features
		case "d":
			cfg.Analysis.Diagnostics = *diagnostics
		}
	})
	if err := cfg.Validate(); err != nil {
		boot.Error(fmt.Errorf("invalid configuration: %w", err))
		flag.Usage()
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		boot.Error(fmt.Errorf("failed to initialize logger: %w", err))
		os.Exit(1)
	}

	writers := factory.CreateWriters(cfg.Writers, log)
	if len(writers) == 0 {
		log.Warn("no writers enabled, results will only be logged")
	}

	mgr, err := manager.New(cfg, writers, metrics.New(nil), log)
	if err != nil {
		log.Error(fmt.Errorf("failed to create manager: %w", err))
		os.Exit(1)
	}
	defer closeManager(mgr, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := mgr.Run(ctx, cfg.Input.Path)
	if err != nil {
		log.Error(fmt.Errorf("analysis failed: %w", err))
		stop()
		closeManager(mgr, log)
		os.Exit(1)
	}
	if res.Insufficient != nil {
		return
	}

	log.WithFields(map[string]any{
		"run_id":    res.RunID,
		"records":   res.Read.Records,
		"addresses": len(res.Summary.Rows),
		"qualified": len(res.Bundles),
	}).Info("analysis complete")
}

// loadConfig reads the configuration file. A missing file is not an error:
// defaults and the environment are used instead.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.New()
	}
	return cfg, err
}

// closeManager closes the writers, logging rather than returning the error
// since it runs on every exit path.
func closeManager(c io.Closer, log logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error(err)
	}
}
