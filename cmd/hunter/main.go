// Package main provides the hunt worker entry point for the flat hunter.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flat-hunter/internal/circuitbreaker"
	"github.com/flat-hunter/internal/config"
	"github.com/flat-hunter/internal/dedup"
	"github.com/flat-hunter/internal/enrich"
	"github.com/flat-hunter/internal/export"
	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/pipeline"
	"github.com/flat-hunter/internal/resolver"
	"github.com/flat-hunter/internal/scraper"
	"github.com/flat-hunter/internal/scraper/immowelt"
	"github.com/flat-hunter/internal/scraper/kleinanzeigen"
	"github.com/flat-hunter/internal/storage"
	"github.com/flat-hunter/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logging.Default().WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	log := logging.New(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	logging.SetDefault(log)
	log.Info("flat hunter starting")

	db := storage.NewDatabase(cfg.Database.Dir, log)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workers := make([]*worker.HuntWorker, 0, len(cfg.Hunter.Sources))
	for _, name := range cfg.Hunter.Sources {
		source := buildSource(name, cfg, log)
		if source == nil {
			log.WithField("source", name).Warn("unknown or unconfigured source, skipping")
			continue
		}

		handle, err := db.Handle(ctx, name)
		if err != nil {
			log.WithError(err).WithField("source", name).Error("failed to open store")
			os.Exit(1)
		}

		w := buildWorker(cfg, source, handle, log)
		w.Start(ctx)
		workers = append(workers, w)
		log.WithField("source", name).Info("hunt worker started")
	}

	if len(workers) == 0 {
		log.Error("no hunt workers configured")
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received, stopping workers")

	cancel()
	for _, w := range workers {
		w.Stop()
	}
	log.Info("all workers stopped")
}

// buildSource creates the scraper for a configured source name, or nil
// when the name is unknown or lacks a search URL.
func buildSource(name string, cfg *config.Config, log *logging.Logger) scraper.Source {
	searchURL := cfg.Hunter.SearchURLs[name]
	if searchURL == "" {
		return nil
	}
	switch name {
	case immowelt.SourceName:
		return immowelt.New(searchURL, log)
	case kleinanzeigen.SourceName:
		return kleinanzeigen.New(searchURL, log)
	default:
		return nil
	}
}

// buildWorker wires one source's full processing chain over its own store
// handle.
func buildWorker(cfg *config.Config, source scraper.Source, handle *storage.Handle, log *logging.Logger) *worker.HuntWorker {
	processed := storage.NewProcessedRepository(handle)
	exposes := storage.NewExposeRepository(handle)
	executions := storage.NewExecutionRepository(handle)

	gate := dedup.NewGate(processed, log)

	breaker := circuitbreaker.New(circuitbreaker.Config{
		MaxFailures: cfg.Resolver.MaxFailures,
		Cooldown:    cfg.Resolver.Cooldown,
	})
	res := resolver.WithBreaker(
		resolver.WithTimeout(
			resolver.NewImmowelt(resolver.ImmoweltConfig{
				BrowserPath: cfg.Resolver.BrowserPath,
				StepWait:    cfg.Resolver.StepWait,
			}, log),
			cfg.Resolver.Timeout,
		),
		breaker,
	)

	manager := enrich.NewManager(gate, exposes, res, log)

	var exporter *export.Adapter
	if cfg.Export.Enabled {
		sink := export.NewSheetsSink(export.SheetsConfig{
			SpreadsheetID:    cfg.Export.SpreadsheetID,
			Worksheet:        cfg.Export.Worksheet,
			SheetID:          cfg.Export.SheetID,
			Token:            cfg.Export.Token,
			AppendsPerMinute: cfg.Export.AppendsPerMinute,
		}, log)
		exporter = export.NewAdapter(sink, export.DefaultBackoffPolicy(), log)
	}

	p := pipeline.New(gate, manager, exposes, exporter, log)

	interval := cfg.Hunter.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return worker.NewHuntWorker(worker.Config{
		Source:     source,
		Pipeline:   p,
		Executions: executions,
		Interval:   interval,
		Logger:     log,
	})
}
