// Package worker runs the periodic hunts: one worker per source, each
// driving its own pipeline against the shared store.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/pipeline"
	"github.com/flat-hunter/internal/scraper"
	"github.com/flat-hunter/internal/storage"
)

// HuntWorker periodically fetches a source's listings and feeds them
// through the pipeline. Workers are independent; a slow resolver call or
// an export backoff blocks only the worker it happens on.
type HuntWorker struct {
	source     scraper.Source
	pipeline   *pipeline.Pipeline
	executions *storage.ExecutionRepository
	interval   time.Duration
	log        *logging.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds what a hunt worker needs.
type Config struct {
	Source     scraper.Source
	Pipeline   *pipeline.Pipeline
	Executions *storage.ExecutionRepository
	Interval   time.Duration
	Logger     *logging.Logger
}

// NewHuntWorker creates a worker; Start begins hunting.
func NewHuntWorker(cfg Config) *HuntWorker {
	return &HuntWorker{
		source:     cfg.Source,
		pipeline:   cfg.Pipeline,
		executions: cfg.Executions,
		interval:   cfg.Interval,
		log:        cfg.Logger.WithField("source", cfg.Source.Name()),
	}
}

// Start launches the hunt loop. The first hunt runs immediately, then
// every configured interval until Stop or context cancellation.
func (w *HuntWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx)
}

// Stop signals the loop and waits for the current hunt to finish.
func (w *HuntWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
}

func (w *HuntWorker) loop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.hunt(ctx)
	for {
		select {
		case <-ticker.C:
			w.hunt(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// hunt runs one full pass: fetch, process every listing, record the run.
// Per-listing errors are logged and never end the pass.
func (w *HuntWorker) hunt(ctx context.Context) {
	runID := uuid.NewString()
	log := w.log.WithField("run_id", runID)
	log.Info("hunt started")

	listings, err := w.source.FetchListings(ctx)
	if err != nil {
		log.WithError(err).Error("fetching listings failed")
		return
	}

	var admitted, skipped, failed int
	for _, raw := range listings {
		res, err := w.pipeline.Process(ctx, raw)
		if err != nil {
			failed++
			log.WithError(err).WithField("url", raw.URL).Error("listing processing failed")
			continue
		}
		if res.Admitted {
			admitted++
		} else {
			skipped++
		}
	}

	if err := w.executions.Record(ctx, runID, time.Now().UTC()); err != nil {
		log.WithError(err).Error("recording hunt execution failed")
	}

	log.WithFields(map[string]interface{}{
		"listings": len(listings),
		"admitted": admitted,
		"skipped":  skipped,
		"failed":   failed,
	}).Info("hunt finished")
}
