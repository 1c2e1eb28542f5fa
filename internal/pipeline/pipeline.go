// Package pipeline orchestrates one raw listing's path through the core:
// normalize, dedup check, enrichment, persistence, export.
package pipeline

import (
	"context"

	"github.com/flat-hunter/internal/dedup"
	"github.com/flat-hunter/internal/enrich"
	"github.com/flat-hunter/internal/export"
	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/models"
	"github.com/flat-hunter/internal/storage"
)

// State names the stage a listing reached.
type State string

const (
	StateReceived     State = "received"
	StateNormalized   State = "normalized"
	StateDedupChecked State = "dedup_checked"
	StateSkipped      State = "skipped"
	StateEnriched     State = "enriched"
	StatePersisted    State = "persisted"
	StateExported     State = "exported"
	// StateExportSkippedDuplicate is the terminal state for listings the
	// gate did not admit: persisted with refreshed listing fields, never
	// re-exported.
	StateExportSkippedDuplicate State = "export_skipped_duplicate"
)

// Result reports where a listing ended up.
type Result struct {
	Expose   *models.Expose
	State    State
	Admitted bool
}

// Pipeline runs listings through the core components. One pipeline serves
// one worker; all durable state lives behind the repositories.
type Pipeline struct {
	gate     *dedup.Gate
	enricher *enrich.Manager
	exposes  *storage.ExposeRepository
	exporter *export.Adapter
	log      *logging.Logger
}

// New creates a pipeline. The exporter may be nil when export is disabled.
func New(gate *dedup.Gate, enricher *enrich.Manager, exposes *storage.ExposeRepository, exporter *export.Adapter, log *logging.Logger) *Pipeline {
	return &Pipeline{
		gate:     gate,
		enricher: enricher,
		exposes:  exposes,
		exporter: exporter,
		log:      log,
	}
}

// Process takes one raw listing to its terminal state.
//
// Enrichment runs whether or not the listing is admitted: duplicates take
// the read-only cache path so every emitted record carries reference
// fields. Every error returned is scoped to this listing; no outcome here
// may abort processing of any other listing. An export failure is reported
// after the expose row is already persisted and is never rolled back.
func (p *Pipeline) Process(ctx context.Context, raw models.RawListing) (Result, error) {
	res := Result{State: StateReceived}

	e, parseErr := models.Normalize(raw)
	if parseErr != nil {
		// Sentinel fields already set; the listing still flows.
		p.log.WithError(parseErr).WithFields(map[string]interface{}{
			"source": raw.Source, "url": raw.URL,
		}).Warn("listing has malformed numeric fields")
	}
	res.Expose = e
	res.State = StateNormalized

	admitted, err := p.gate.Admit(ctx, e.ID, e.Source)
	if err != nil {
		return res, err
	}
	res.Admitted = admitted
	res.State = StateDedupChecked
	if !admitted {
		res.State = StateSkipped
	}

	ref, err := p.enricher.Resolve(ctx, e.ID, e.Source, e.Address, e.SqmPrice)
	if err != nil {
		return res, err
	}
	e.RefSqmPrice = ref.SqmPrice
	e.RefAddress = ref.Address
	e.SqmPriceRatio = ref.Ratio
	if admitted {
		res.State = StateEnriched
	}

	if err := p.exposes.Upsert(ctx, e); err != nil {
		return res, err
	}
	res.State = StatePersisted

	if !admitted {
		res.State = StateExportSkippedDuplicate
		return res, nil
	}

	if p.exporter != nil {
		if err := p.exporter.ExportNew(ctx, e); err != nil {
			// The expose row is already durable; only the export failed.
			return res, err
		}
	}
	res.State = StateExported
	return res, nil
}
