// Package dbtest opens throwaway in-memory SQLite databases with the booking
// schema applied, for use in tests across packages.
package dbtest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/flight-booking/internal/database"
)

// Open returns a fresh in-memory database that is closed when the test ends.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}
