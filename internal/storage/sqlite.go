// Package storage provides the durable SQLite store backing the hunting
// pipeline: the processed-identifier set, the expose cache, user settings
// and the execution log.
//
// Every concurrent worker owns one physical connection, obtained from the
// Database factory keyed by owner identity. All connections target the same
// database file; SQLite's own locking serializes cross-connection writes,
// and the primary-key constraints reject true duplicate inserts.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"

	apperrors "github.com/flat-hunter/internal/errors"
	"github.com/flat-hunter/internal/logging"
)

// databaseFile is the name of the SQLite file inside the configured
// database directory.
const databaseFile = "exposes.db"

// busyTimeoutMs is how long SQLite waits on a locked database before an
// operation returns SQLITE_BUSY.
const busyTimeoutMs = 10000

// Database hands out per-worker connection handles to a single SQLite file.
type Database struct {
	dir string
	log *logging.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewDatabase creates a factory for the database stored under dir. No file
// is touched until the first handle is requested.
func NewDatabase(dir string, log *logging.Logger) *Database {
	return &Database{
		dir:     dir,
		log:     log,
		handles: make(map[string]*Handle),
	}
}

// Handle returns the connection handle owned by the given worker, lazily
// opening it on first use. The schema is applied idempotently on every
// open, creating the database file and tables when absent.
func (d *Database) Handle(ctx context.Context, owner string) (*Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if h, ok := d.handles[owner]; ok {
		return h, nil
	}

	h, err := d.open(ctx, owner)
	if err != nil {
		return nil, err
	}
	d.handles[owner] = h

	d.log.WithFields(map[string]interface{}{"owner": owner, "dir": d.dir}).
		Debug("opened store connection")
	return h, nil
}

func (d *Database) open(ctx context.Context, owner string) (*Handle, error) {
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return nil, apperrors.NewStoreIOError("create database directory", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL",
		filepath.Join(d.dir, databaseFile), busyTimeoutMs)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperrors.NewStoreIOError("open database", err)
	}

	// One physical connection per handle. Concurrency comes from multiple
	// handles, not from pooling inside one.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, apperrors.NewStoreIOError("ping database", err)
	}

	if err := applySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Handle{owner: owner, db: db}, nil
}

// Close closes all handles opened through this factory.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for owner, h := range d.handles {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.handles, owner)
	}
	return firstErr
}

// Handle is one worker's connection to the shared database file.
type Handle struct {
	owner string
	db    *sql.DB
}

// Owner returns the worker identity the handle was opened for.
func (h *Handle) Owner() string { return h.owner }

// DB exposes the underlying connection for repositories.
func (h *Handle) DB() *sql.DB { return h.db }

// Close releases the physical connection.
func (h *Handle) Close() error {
	return h.db.Close()
}

// applySchema creates the four logical tables. Safe to run on every open.
func applySchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS processed (
			id INTEGER NOT NULL,
			source TEXT NOT NULL,
			PRIMARY KEY (id, source)
		)`,
		`CREATE TABLE IF NOT EXISTS exposes (
			id INTEGER NOT NULL,
			source TEXT NOT NULL,
			created INTEGER NOT NULL,
			title TEXT,
			url TEXT,
			image TEXT,
			price REAL,
			size REAL,
			address TEXT,
			sqm_price INTEGER,
			ref_sqm_price INTEGER,
			ref_address TEXT,
			sqm_price_ratio REAL,
			details BLOB NOT NULL,
			PRIMARY KEY (id, source)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exposes_created ON exposes(created)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			settings BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS executions (
			run_id TEXT NOT NULL,
			finished_at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewStoreIOError("apply schema", err)
		}
	}
	return nil
}

// translateErr maps driver errors to the categorized taxonomy.
func translateErr(operation, table string, err error) error {
	if err == nil {
		return nil
	}

	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return apperrors.NewStoreConflictError(table, err)
	}
	return apperrors.NewStoreIOError(operation, err)
}
