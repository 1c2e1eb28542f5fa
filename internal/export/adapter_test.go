package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/flat-hunter/internal/errors"
	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/models"
)

// fakeSink scripts one error per attempt, nil meaning success.
type fakeSink struct {
	errs  []error
	calls int
	rows  [][]interface{}
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Append(ctx context.Context, row []interface{}) error {
	defer func() { f.calls++ }()
	f.rows = append(f.rows, row)
	if f.calls < len(f.errs) {
		return f.errs[f.calls]
	}
	return nil
}

func newTestAdapter(sink Sink) (*Adapter, *[]time.Duration) {
	a := NewAdapter(sink, BackoffPolicy{Delay: 60 * time.Second, Retries: 1},
		logging.New(logging.LevelError, logging.FormatText))

	var slept []time.Duration
	a.sleep = func(d time.Duration) { slept = append(slept, d) }
	return a, &slept
}

func testExpose() *models.Expose {
	return &models.Expose{ID: 7, Source: "immowelt", Title: "Wohnung"}
}

func TestExportNewSuccess(t *testing.T) {
	sink := &fakeSink{}
	a, slept := newTestAdapter(sink)

	require.NoError(t, a.ExportNew(context.Background(), testExpose()))
	assert.Equal(t, 1, sink.calls)
	assert.Empty(t, *slept)
}

func TestExportNewRetriesOnceOnRateLimit(t *testing.T) {
	sink := &fakeSink{errs: []error{apperrors.NewSinkRateLimitedError("fake", nil)}}
	a, slept := newTestAdapter(sink)

	require.NoError(t, a.ExportNew(context.Background(), testExpose()))
	assert.Equal(t, 2, sink.calls)
	require.Len(t, *slept, 1)
	assert.Equal(t, 60*time.Second, (*slept)[0])
	// Both attempts carry the identical row.
	assert.Equal(t, sink.rows[0], sink.rows[1])
}

func TestExportNewSecondRateLimitIsFatal(t *testing.T) {
	sink := &fakeSink{errs: []error{
		apperrors.NewSinkRateLimitedError("fake", nil),
		apperrors.NewSinkRateLimitedError("fake", nil),
	}}
	a, slept := newTestAdapter(sink)

	err := a.ExportNew(context.Background(), testExpose())
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))
	assert.Equal(t, 2, sink.calls)
	assert.Len(t, *slept, 1)
}

func TestExportNewNoRetryOnOtherErrors(t *testing.T) {
	sink := &fakeSink{errs: []error{errors.New("boom")}}
	a, slept := newTestAdapter(sink)

	err := a.ExportNew(context.Background(), testExpose())
	require.Error(t, err)
	assert.Equal(t, 1, sink.calls)
	assert.Empty(t, *slept)
}
