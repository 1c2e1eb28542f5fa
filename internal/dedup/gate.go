// Package dedup decides listing novelty against the persistent
// processed-identifier set.
package dedup

import (
	"context"

	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/storage"
)

// Gate admits each (id, source) pair at most once. The check-then-write is
// not atomic across workers; when two workers race on the same identifier
// the processed table's primary key decides the winner, and the loser sees
// a normal "already admitted" outcome.
type Gate struct {
	processed *storage.ProcessedRepository
	log       *logging.Logger
}

// NewGate creates a gate over the processed-identifier repository.
func NewGate(processed *storage.ProcessedRepository, log *logging.Logger) *Gate {
	return &Gate{processed: processed, log: log}
}

// Admit returns true when the listing is new, marking it processed in the
// same call. Once an identifier has been admitted, every later Admit for
// it returns false.
func (g *Gate) Admit(ctx context.Context, id int64, source string) (bool, error) {
	seen, err := g.processed.IsProcessed(ctx, id, source)
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}

	inserted, err := g.processed.Mark(ctx, id, source)
	if err != nil {
		return false, err
	}
	if !inserted {
		// A racing worker marked the identifier between our check and
		// write. It is theirs.
		g.log.WithFields(map[string]interface{}{"id": id, "source": source}).
			Debug("lost admission race, listing already admitted by a peer")
	}
	return inserted, nil
}

// IsProcessed reports whether the identifier was admitted by any pass,
// current or historical, without changing the set.
func (g *Gate) IsProcessed(ctx context.Context, id int64, source string) (bool, error) {
	return g.processed.IsProcessed(ctx, id, source)
}
