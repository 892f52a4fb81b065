// Package storagetest provides a migrated SQLite store for tests that need
// the real statement protocol without a database server.
package storagetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"tranquility/internal/storage"
)

// NewSQLite opens a file-backed SQLite database under t.TempDir and applies
// the embedded schema.
func NewSQLite(t testing.TB) *storage.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "tranquility.db") + "?_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := storage.Migrate(context.Background(), db, storage.DialectSQLite); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return storage.New(db)
}

// Count returns the number of rows in table matching the optional where clause.
func Count(t testing.TB, s *storage.Store, table, where string, args ...any) int64 {
	t.Helper()

	query := "SELECT COUNT(*) AS n FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	row, err := s.SelectOne(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	n, _ := row["n"].(int64)
	return n
}
