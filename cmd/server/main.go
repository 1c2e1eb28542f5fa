// Package main provides the HTTP API entry point for the flat hunter.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flat-hunter/internal/api"
	"github.com/flat-hunter/internal/config"
	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/storage"
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

	db := storage.NewDatabase(cfg.Database.Dir, log)
	defer db.Close()

	handle, err := db.Handle(context.Background(), "api")
	if err != nil {
		log.WithError(err).Error("failed to open store")
		os.Exit(1)
	}

	server := api.NewServer(
		&api.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		storage.NewExposeRepository(handle),
		storage.NewUserRepository(handle),
		storage.NewExecutionRepository(handle),
		log,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.WithError(err).Error("API server failed")
		os.Exit(1)
	case <-sigCh:
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
