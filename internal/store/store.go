// Package store implements the embedded relational store described in
// spec.md §4.2: a single SQLite file holding the latest-value row per
// sensor plus the full reading history, opened once per process and
// serialized through one connection the way the teacher's
// internal/repository package does for sqlite3.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/cespare/xxhash/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	sqlite3drv "github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/myiotd/myiot-core/internal/metrics"
)

//go:embed migrations/sqlite3/*.sql
var migrationFiles embed.FS

var driverRegisterOnce sync.Once

// Store wraps a *sqlx.DB with a write lock: writes serialize through a
// single lock. stmtCache is a squirrel statement cache built over the
// connection, but the queries in this package run directly against db (or
// the write transaction) and do not go through it, so statements are not
// cached.
type Store struct {
	db        *sqlx.DB
	stmtCache *sq.StmtCache
	writeMu   sync.Mutex
}

// Open creates (if needed) and migrates the SQLite database at path, then
// returns a ready Store. path may be ":memory:" for the in-memory
// configuration the seed scenarios in spec.md §8 run against.
func Open(path string) (*Store, error) {
	driverRegisterOnce.Do(func() {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3drv.SQLiteDriver{}, &queryLogHooks{}))
	})

	dsn := fmt.Sprintf("%s?_foreign_keys=on", path)
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_foreign_keys=on"
	}

	db, err := sqlx.Open("sqlite3WithHooks", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// SQLite serializes writers internally; holding more than one
	// connection open just means waiting on its own locks.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate %s: %w", path, err)
	}

	s := &Store{db: db, stmtCache: sq.NewStmtCache(db.DB)}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrateUp(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationFiles, "migrations/sqlite3")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// hashSensorID derives the sensors.pk value from a sensor id. Using a
// stable hash instead of AUTOINCREMENT lets upsert_message compute the key
// without a prior round trip to the database, mirroring the original
// source's use of SeaHash for the same purpose; xxhash is its idiomatic Go
// equivalent (grounded in the rest of the retrieved pack, which reaches for
// cespare/xxhash wherever a fast non-cryptographic digest is needed).
func hashSensorID(sensorID string) int64 {
	return int64(xxhash.Sum64String(sensorID))
}

// DatabaseSize returns the on-disk size in bytes via page_count*page_size,
// per spec.md §4.2's database_size() operation, and mirrors the result into
// the store_size_bytes gauge.
func (s *Store) DatabaseSize() (int64, error) {
	var pageCount, pageSize int64
	if err := s.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("store: page_count: %w", err)
	}
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("store: page_size: %w", err)
	}
	size := pageCount * pageSize
	metrics.StoreSizeBytes.Set(float64(size))
	return size, nil
}

