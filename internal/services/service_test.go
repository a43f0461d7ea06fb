package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tbourn/go-ident-backend/internal/repo"
)

// newTestStore opens a migrated throwaway SQLite store.
func newTestStore(t *testing.T) *repo.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repo.NewStore(db)
}

// fixedClock returns a Now func pinned to a settable instant.
func fixedClock(at time.Time) (func() time.Time, *time.Time) {
	cur := at
	return func() time.Time { return cur }, &cur
}
