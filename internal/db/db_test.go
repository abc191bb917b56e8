package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, Migrate(database))
	return database
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	database := openMemory(t)

	tables := []string{
		"schema_version",
		"sessions",
		"rounds",
		"pattern_aggregates",
	}

	for _, table := range tables {
		row := database.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, table)
		var count int
		require.NoError(t, row.Scan(&count), "checking table %s", table)
		assert.Equal(t, 1, count, "table %s not found", table)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	database := openMemory(t)

	// Second run must not error.
	require.NoError(t, Migrate(database))

	var versions int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&versions))
	assert.Equal(t, 1, versions)
}

func TestMigrate_RoundConstraints(t *testing.T) {
	database := openMemory(t)

	insert := `
		INSERT INTO rounds (session_id, sequence_number, bet_amount, strategy, outcome,
		                    safe_pick_count, multiplier, winnings, profit, ending_balance, created_at)
		VALUES (?, ?, ?, 'moderate', ?, ?, 1.9, 0.19, 0.09, 1.09, 1)`

	_, err := database.Exec(insert, "s1", 1, 0.1, "win", 2)
	require.NoError(t, err)

	// Duplicate sequence number within a session.
	_, err = database.Exec(insert, "s1", 1, 0.1, "win", 2)
	assert.Error(t, err)

	// Same sequence number in another session is fine.
	_, err = database.Exec(insert, "s2", 1, 0.1, "win", 2)
	assert.NoError(t, err)

	_, err = database.Exec(insert, "s1", 2, 0.0, "win", 2)
	assert.Error(t, err, "non-positive bet must be rejected")

	_, err = database.Exec(insert, "s1", 2, 0.1, "push", 2)
	assert.Error(t, err, "unknown outcome must be rejected")

	_, err = database.Exec(insert, "s1", 2, 0.1, "loss", -1)
	assert.Error(t, err, "negative pick count must be rejected")
}

func TestBackup(t *testing.T) {
	database := openMemory(t)
	_, err := database.Exec(`INSERT INTO sessions (session_id, opening_balance, started_at) VALUES ('s1', 1.34, 1)`)
	require.NoError(t, err)

	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

	path, err := Backup(context.Background(), database, dir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "game_backup_20240309_140506.db"), path)

	copyDB, err := Open(path)
	require.NoError(t, err)
	defer copyDB.Close()

	var balance float64
	require.NoError(t, copyDB.QueryRow(`SELECT opening_balance FROM sessions WHERE session_id = 's1'`).Scan(&balance))
	assert.Equal(t, 1.34, balance)

	_, err = Backup(context.Background(), database, dir, now)
	assert.Error(t, err, "existing backup must not be overwritten")
}
