// Package dbtest opens throwaway migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/glitzfusion/fusionx/common/db"
)

// Open returns a migrated SQLite database that is closed when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	sqlDB, err := db.Open(context.Background(), db.Config{
		Driver: string(db.SQLite),
		DSN:    filepath.Join(t.TempDir(), "fusionx_test.db"),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}
