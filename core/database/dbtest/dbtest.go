// Package dbtest provides state databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"ocsync/core/database"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// New opens a fresh sqlite state database in a temporary directory and
// migrates the given models.
func New(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	db, err := database.Connect(database.Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "state.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open state db: %v", err)
	}
	if len(models) > 0 {
		if err := database.Migrate(db, models...); err != nil {
			t.Fatalf("Failed to migrate state db: %v", err)
		}
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Mock creates a GORM DB backed by sqlmock, for exercising database error paths.
func Mock(t testing.TB) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}
