package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flat-hunter/internal/dedup"
	"github.com/flat-hunter/internal/enrich"
	"github.com/flat-hunter/internal/export"
	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/models"
	"github.com/flat-hunter/internal/resolver"
	"github.com/flat-hunter/internal/storage"
)

type scriptedResolver struct {
	calls int
	err   error
}

func (s *scriptedResolver) Resolve(ctx context.Context, address string) (resolver.Result, error) {
	s.calls++
	if s.err != nil {
		return resolver.Result{}, s.err
	}
	return resolver.Result{SqmPrice: 16, Address: "Berlin (Mitte)"}, nil
}

type recordingSink struct {
	rows [][]interface{}
	err  error
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Append(ctx context.Context, row []interface{}) error {
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, row)
	return nil
}

type fixture struct {
	pipeline *Pipeline
	exposes  *storage.ExposeRepository
	res      *scriptedResolver
	sink     *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logging.New(logging.LevelError, logging.FormatText)
	db := storage.NewDatabase(t.TempDir(), log)
	t.Cleanup(func() { _ = db.Close() })

	h, err := db.Handle(context.Background(), "pipeline-test")
	require.NoError(t, err)

	gate := dedup.NewGate(storage.NewProcessedRepository(h), log)
	exposes := storage.NewExposeRepository(h)
	res := &scriptedResolver{}
	sink := &recordingSink{}
	manager := enrich.NewManager(gate, exposes, res, log)
	exporter := export.NewAdapter(sink, export.BackoffPolicy{Retries: 0}, log)

	return &fixture{
		pipeline: New(gate, manager, exposes, exporter, log),
		exposes:  exposes,
		res:      res,
		sink:     sink,
	}
}

func testListing() models.RawListing {
	return models.RawListing{
		SourceID: "2xs4n5z",
		Source:   "immowelt",
		URL:      "https://www.immowelt.de/expose/2xs4n5z",
		Title:    "Helle Wohnung",
		Address:  "Musterstraße 5, Berlin",
		Price:    "1.000 €",
		Size:     "50 m²",
	}
}

func TestProcessNewListing(t *testing.T) {
	f := newFixture(t)

	res, err := f.pipeline.Process(context.Background(), testListing())
	require.NoError(t, err)
	assert.True(t, res.Admitted)
	assert.Equal(t, StateExported, res.State)
	assert.Equal(t, 16, res.Expose.RefSqmPrice)
	assert.Equal(t, 1.25, res.Expose.SqmPriceRatio)
	require.Len(t, f.sink.rows, 1)

	stored, err := f.exposes.Get(context.Background(), res.Expose.ID, "immowelt")
	require.NoError(t, err)
	assert.Equal(t, "Helle Wohnung", stored.Title)
	assert.Equal(t, 16, stored.RefSqmPrice)
}

func TestProcessDuplicateNotReExported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.pipeline.Process(ctx, testListing())
	require.NoError(t, err)
	require.True(t, first.Admitted)

	// Same listing again, with an updated price.
	updated := testListing()
	updated.Price = "950 €"
	second, err := f.pipeline.Process(ctx, updated)
	require.NoError(t, err)

	assert.False(t, second.Admitted)
	assert.Equal(t, StateExportSkippedDuplicate, second.State)
	assert.Len(t, f.sink.rows, 1, "duplicates never reach the sink")
	assert.Equal(t, 1, f.res.calls, "duplicates ride the cached reference data")

	// The refreshed listing fields are persisted; reference fields survive.
	stored, err := f.exposes.Get(ctx, second.Expose.ID, "immowelt")
	require.NoError(t, err)
	assert.Equal(t, float64(950), stored.PriceValue)
	assert.Equal(t, 16, stored.RefSqmPrice)
}

func TestProcessPersistsDespiteExportFailure(t *testing.T) {
	f := newFixture(t)
	f.sink.err = errors.New("sink down")

	res, err := f.pipeline.Process(context.Background(), testListing())
	require.Error(t, err)
	assert.Equal(t, StatePersisted, res.State)

	stored, getErr := f.exposes.Get(context.Background(), res.Expose.ID, "immowelt")
	require.NoError(t, getErr)
	assert.Equal(t, "Helle Wohnung", stored.Title)
}

func TestProcessResolverFailureStillExports(t *testing.T) {
	f := newFixture(t)
	f.res.err = errors.New("browser crashed")

	res, err := f.pipeline.Process(context.Background(), testListing())
	require.NoError(t, err)
	assert.Equal(t, StateExported, res.State)
	assert.Equal(t, models.PriceUnavailable, res.Expose.RefSqmPrice)
	assert.Equal(t, models.RatioUnavailable, res.Expose.SqmPriceRatio)
	assert.Len(t, f.sink.rows, 1)
}

func TestProcessMalformedFieldsStillFlow(t *testing.T) {
	f := newFixture(t)

	raw := testListing()
	raw.Price = "VB"
	res, err := f.pipeline.Process(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, StateExported, res.State)
	assert.Equal(t, models.ValueUnavailable, res.Expose.PriceValue)
	assert.Equal(t, models.PriceUnavailable, res.Expose.SqmPrice)
}
