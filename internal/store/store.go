// Package store persists categories, activities, tags and facts in SQLite.
package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Supported database/sql driver names.
const (
	// DriverSQLite is the pure Go modernc.org/sqlite driver.
	DriverSQLite = "sqlite"
	// DriverSQLite3 is the cgo github.com/mattn/go-sqlite3 driver.
	DriverSQLite3 = "sqlite3"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	ErrNotFound      = errors.New("not found")
	ErrExists        = errors.New("already exists")
	ErrOverlap       = errors.New("overlaps an existing fact")
	ErrOngoingExists = errors.New("another fact is already ongoing")
	ErrTooShort      = errors.New("fact is shorter than the minimum duration")
)

// Options configures a Store
type Options struct {
	Driver string
	Path   string
	// MinDelta rejects finished facts shorter than this. Zero disables the check.
	MinDelta time.Duration
	Logger   *zap.Logger
}

// Store handles database operations
type Store struct {
	db       *sql.DB
	minDelta time.Duration
	logger   *zap.Logger
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// New opens the database and initializes the schema
func New(opts Options) (*Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverSQLite3 {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("opened database", zap.String("driver", driver), zap.String("path", opts.Path))

	return &Store{db: db, minDelta: opts.MinDelta, logger: logger}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w: %w", what, ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
