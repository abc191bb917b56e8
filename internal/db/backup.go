package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Backup writes a consistent copy of the database into dir and returns its path.
// VACUUM INTO runs inside SQLite, so a round being committed concurrently is
// either fully in the copy or not at all.
func Backup(ctx context.Context, db *sql.DB, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("game_backup_%s.db", now.Format("20060102_150405")))
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("backup %s already exists", path)
	}

	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	return path, nil
}
