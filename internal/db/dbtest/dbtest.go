// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"bomblog/internal/db"
)

// Open returns a migrated in-memory database closed at test cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}
