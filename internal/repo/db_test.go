package repo

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a throwaway SQLite database and migrates the given
// models. Shared by all repo tests in this package.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ident.db")
	db, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
}

func TestOpen_MissingParentDir(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope", "ident.db"), false); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}

func TestStore_Enabled(t *testing.T) {
	var nilStore *Store
	if nilStore.Enabled() {
		t.Fatalf("nil store must report disabled")
	}
	if NewStore(nil).Enabled() {
		t.Fatalf("store without DB must report disabled")
	}

	db := newTestDB(t)
	if !NewStore(db).Enabled() {
		t.Fatalf("store with DB must report enabled")
	}
}

func TestClassifyConstraintErr(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{nil, nil},
		{gorm.ErrDuplicatedKey, ErrDuplicate},
		{errors.New("UNIQUE constraint failed: user_favorites.user_id"), ErrDuplicate},
		{errors.New("constraint failed: UNIQUE constraint failed (2067)"), ErrDuplicate},
		{errors.New(`duplicate key value violates unique constraint "ux_fav_user_product"`), ErrDuplicate},
		{errors.New("ERROR: there is no unique or exclusion constraint matching the ON CONFLICT specification (SQLSTATE 42P10)"), ErrNoUniqueConstraint},
		{errors.New("ON CONFLICT clause does not match any PRIMARY KEY or unique index"), ErrNoUniqueConstraint},
		{errors.New("database is locked"), nil}, // passes through unchanged
	}
	for _, tc := range cases {
		got := classifyConstraintErr(tc.in)
		if tc.want == nil {
			if got != tc.in {
				t.Fatalf("classify(%v) = %v, want passthrough", tc.in, got)
			}
			continue
		}
		if !errors.Is(got, tc.want) {
			t.Fatalf("classify(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
