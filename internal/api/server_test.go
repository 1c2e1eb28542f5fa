package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/models"
	"github.com/flat-hunter/internal/storage"
)

type testEnv struct {
	server     *Server
	exposes    *storage.ExposeRepository
	users      *storage.UserRepository
	executions *storage.ExecutionRepository
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	log := logging.New(logging.LevelError, logging.FormatText)
	db := storage.NewDatabase(t.TempDir(), log)
	t.Cleanup(func() { _ = db.Close() })

	h, err := db.Handle(context.Background(), "api-test")
	require.NoError(t, err)

	exposes := storage.NewExposeRepository(h)
	users := storage.NewUserRepository(h)
	executions := storage.NewExecutionRepository(h)

	server := NewServer(
		&ServerConfig{Host: "127.0.0.1", Port: "0"},
		exposes, users, executions, log,
	)
	return &testEnv{server: server, exposes: exposes, users: users, executions: executions}
}

func (e *testEnv) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedExposes(t *testing.T, n int) {
	t.Helper()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, e.exposes.Upsert(context.Background(), &models.Expose{
			ID:            int64(i + 1),
			Source:        "immowelt",
			Title:         "Wohnung",
			PriceValue:    float64(1000 + i*100),
			SqmPriceRatio: 1.0 + float64(i)/10,
			CreatedAt:     base.Add(time.Duration(i) * time.Hour),
		}))
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t)

	rec := env.do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestRecentExposes(t *testing.T) {
	env := newTestServer(t)
	env.seedExposes(t, 5)

	rec := env.do("GET", "/api/exposes/recent?count=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int              `json:"count"`
		Exposes []*models.Expose `json:"exposes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, int64(5), body.Exposes[0].ID)
	assert.Equal(t, int64(4), body.Exposes[1].ID)
}

func TestRecentExposesWithFilters(t *testing.T) {
	env := newTestServer(t)
	env.seedExposes(t, 5)

	rec := env.do("GET", "/api/exposes/recent?count=10&max_price=1200", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int              `json:"count"`
		Exposes []*models.Expose `json:"exposes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	for _, e := range body.Exposes {
		assert.LessOrEqual(t, e.PriceValue, 1200.0)
	}
}

func TestRecentExposesBadCount(t *testing.T) {
	env := newTestServer(t)

	rec := env.do("GET", "/api/exposes/recent?count=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_PARAMETER")
}

func TestExposesSince(t *testing.T) {
	env := newTestServer(t)
	env.seedExposes(t, 4)

	rec := env.do("GET", "/api/exposes?since=2026-08-01T01:00:00Z", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)

	rec = env.do("GET", "/api/exposes", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetExpose(t *testing.T) {
	env := newTestServer(t)
	env.seedExposes(t, 1)

	rec := env.do("GET", "/api/exposes/immowelt/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var e models.Expose
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, int64(1), e.ID)

	rec = env.do("GET", "/api/exposes/immowelt/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserSettingsRoundTrip(t *testing.T) {
	env := newTestServer(t)

	rec := env.do("GET", "/api/users/7/settings", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do("PUT", "/api/users/7/settings", []byte(`{"max_price":1500}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do("GET", "/api/users/7/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"max_price":1500}`, rec.Body.String())
}

func TestPutSettingsRejectsInvalidJSON(t *testing.T) {
	env := newTestServer(t)

	rec := env.do("PUT", "/api/users/7/settings", []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestServer(t)

	rec := env.do("GET", "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "null")

	finished := time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC)
	require.NoError(t, env.executions.Record(context.Background(), "run-1", finished))

	rec = env.do("GET", "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2026-08-29T06:00:00Z")
}
