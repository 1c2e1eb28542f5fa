// Package export pushes newly admitted listings to an external tabular
// sink, with bounded retry on rate-limit rejection.
package export

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/flat-hunter/internal/errors"
	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/models"
)

// Sink appends one summary row per call to an external tabular store.
type Sink interface {
	Name() string
	Append(ctx context.Context, row []interface{}) error
}

// BackoffPolicy controls the adapter's reaction to a rate-limited sink.
type BackoffPolicy struct {
	// Delay is the fixed wait before each retry.
	Delay time.Duration
	// Retries is the number of additional attempts after the first.
	Retries int
}

// DefaultBackoffPolicy retries exactly once after a sixty second wait.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{Delay: 60 * time.Second, Retries: 1}
}

// Adapter drives a sink with the configured backoff policy. Sleeping only
// blocks the calling worker's pipeline, never its peers.
type Adapter struct {
	sink   Sink
	policy BackoffPolicy
	log    *logging.Logger
	sleep  func(time.Duration)
}

// NewAdapter creates an adapter over the sink.
func NewAdapter(sink Sink, policy BackoffPolicy, log *logging.Logger) *Adapter {
	return &Adapter{sink: sink, policy: policy, log: log, sleep: time.Sleep}
}

// ExportNew appends the expose's summary row. Only newly admitted listings
// reach this call; updates to already-processed listings never do. A
// rate-limit rejection is retried after the fixed backoff; exhausting the
// retries, or any other sink error, is fatal for this listing's export
// only. The expose row stays persisted regardless.
func (a *Adapter) ExportNew(ctx context.Context, e *models.Expose) error {
	row := e.SummaryRow()

	err := a.sink.Append(ctx, row)
	if err == nil {
		return nil
	}

	for attempt := 0; attempt < a.policy.Retries && apperrors.IsRateLimited(err); attempt++ {
		a.log.WithError(err).WithFields(map[string]interface{}{
			"sink":  a.sink.Name(),
			"delay": a.policy.Delay.String(),
			"id":    e.ID,
		}).Warn("sink rate limited, backing off before retry")

		a.sleep(a.policy.Delay)
		err = a.sink.Append(ctx, row)
		if err == nil {
			return nil
		}
	}

	return fmt.Errorf("export listing %d/%s to %s: %w", e.ID, e.Source, a.sink.Name(), err)
}
