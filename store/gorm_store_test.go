package store

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "civic.db") + "?_busy_timeout=5000"
	s, err := NewGormStore(sqlite.Open(dsn), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStore(t *testing.T) {
	runStoreTests(t, newSQLiteStore)
}
