package tester

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Setup opens a migrated sqlite database private to the test.
func Setup(t testing.TB) *gorm.DB {
	t.Helper()

	_ = os.Setenv("ENV", "test")

	path := filepath.Join(t.TempDir(), "doctree.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err = model.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// Store opens a migrated sqlite database and wraps it in a GormStore.
func Store(t testing.TB) *store.GormStore {
	t.Helper()

	return store.NewGormStore(Setup(t))
}

// RedisAddr returns the redis address integration tests run against, empty
// when none is configured.
func RedisAddr() string {
	return os.Getenv("DOCTREE_TEST_REDIS")
}

// Integration reports whether docker backed tests are enabled.
func Integration() bool {
	return os.Getenv("DOCTREE_INTEGRATION") == "1"
}
