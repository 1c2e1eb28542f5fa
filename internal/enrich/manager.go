// Package enrich owns the cache-population policy for reference-price
// data: serve a previously stored result from the persistent store, or pay
// for one resolver invocation and let the caller persist the outcome.
package enrich

import (
	"context"

	"github.com/flat-hunter/internal/dedup"
	apperrors "github.com/flat-hunter/internal/errors"
	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/models"
	"github.com/flat-hunter/internal/resolver"
	"github.com/flat-hunter/internal/storage"
)

// Manager decides, per listing identifier, between the cached enrichment
// result and a fresh resolver invocation. It is stateless; the store is
// authoritative once a result is written.
type Manager struct {
	gate     *dedup.Gate
	exposes  *storage.ExposeRepository
	resolver resolver.Resolver
	log      *logging.Logger
}

// NewManager creates a cache manager.
func NewManager(gate *dedup.Gate, exposes *storage.ExposeRepository, res resolver.Resolver, log *logging.Logger) *Manager {
	return &Manager{gate: gate, exposes: exposes, resolver: res, log: log}
}

// Resolve returns the reference triple for one listing. sqmPrice is the
// listing's own price per square meter, used for the ratio.
//
// Policy, in order:
//  1. An empty address returns the failure sentinel without touching the
//     resolver.
//  2. An identifier already in the processed set returns the stored
//     reference fields verbatim, even a stored failure sentinel. Resolution
//     is assumed stable per address; once written the store wins, and the
//     expensive resolver is never re-invoked for an identifier on record.
//  3. Otherwise the resolver runs. The computed triple is returned for the
//     caller to persist; resolver failure degrades to the sentinel.
//
// The one exception to rule 2: a processed identifier with no stored row
// was never actually enriched (the admission raced ahead of the first
// save), so the resolver runs rather than inventing stale data.
func (m *Manager) Resolve(ctx context.Context, id int64, source, address string, sqmPrice int) (models.Reference, error) {
	if address == "" {
		return models.FailedReference(), nil
	}

	processed, err := m.gate.IsProcessed(ctx, id, source)
	if err != nil {
		return models.FailedReference(), err
	}

	if processed {
		ref, err := m.exposes.ReferenceFields(ctx, id, source)
		if err == nil {
			m.log.WithFields(map[string]interface{}{"id": id, "source": source}).
				Info("reference data on record, skipping resolution")
			return ref, nil
		}
		if !apperrors.IsNotFound(err) {
			return models.FailedReference(), err
		}
		m.log.WithFields(map[string]interface{}{"id": id, "source": source}).
			Warn("identifier processed but never enriched, resolving")
	}

	res, err := m.resolver.Resolve(ctx, address)
	if err != nil {
		m.log.WithError(err).WithFields(map[string]interface{}{"id": id, "address": address}).
			Warn("reference price resolution failed")
		return models.FailedReference(), nil
	}

	return models.Reference{
		SqmPrice: res.SqmPrice,
		Address:  res.Address,
		Ratio:    models.PriceRatio(sqmPrice, res.SqmPrice),
	}, nil
}
