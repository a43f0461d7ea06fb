// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), schema migrations, and the Store handle that
// the rest of the subsystem degrades against when no backing store is
// configured.
package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-ident-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates an insert hit an existing unique constraint
// (e.g. a product already favorited by the same user).
var ErrDuplicate = errors.New("duplicate")

// ErrNoUniqueConstraint indicates an upsert could not run because the
// target table is missing the unique (or exclusion) constraint named as
// the conflict target. Seen on deployments that are missing a migration;
// callers fall back to read-then-write.
var ErrNoUniqueConstraint = errors.New("no unique constraint on conflict target")

// Store wraps the database handle consumed by every repository and
// service in this subsystem. It is constructed once at process start and
// read-only afterwards; a nil or unopened Store means caching is
// disabled and every operation degrades to its neutral value instead of
// failing the caller.
type Store struct {
	DB *gorm.DB
}

// NewStore wraps an already opened GORM handle. Pass nil to construct a
// disabled store.
func NewStore(db *gorm.DB) *Store { return &Store{DB: db} }

// Enabled reports whether a backing store is available. Safe on a nil
// receiver.
func (s *Store) Enabled() bool { return s != nil && s.DB != nil }

// Open opens (or creates) the SQLite database at path, applies PRAGMAs
// and pool settings, and optionally attaches the OTel tracing plugin.
func Open(path string, trace bool) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if trace {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// AutoMigrate creates or updates the subsystem's tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.AnalysisCache{},
		&domain.SourceURLCache{},
		&domain.UserSearch{},
		&domain.Favorite{},
		&domain.SavedSearch{},
		&domain.Idempotency{},
	)
}

// classifyConstraintErr maps driver errors onto the package sentinels so
// call sites can switch on error kind instead of matching substrings.
// GORM translates some unique violations to gorm.ErrDuplicatedKey, but
// glebarez/sqlite often returns plain-text errors, and Postgres reports
// a missing conflict target as SQLSTATE 42P10.
func classifyConstraintErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	low := strings.ToLower(err.Error())
	switch {
	case strings.Contains(low, "42p10"),
		strings.Contains(low, "no unique or exclusion constraint"),
		strings.Contains(low, "on conflict clause does not match"):
		return ErrNoUniqueConstraint
	case strings.Contains(low, "unique constraint failed"),
		strings.Contains(low, "constraint failed: unique"),
		strings.Contains(low, "duplicate key"):
		return ErrDuplicate
	}
	return err
}
