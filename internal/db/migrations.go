package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    opening_balance REAL NOT NULL,
    started_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rounds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    sequence_number INTEGER NOT NULL CHECK (sequence_number >= 1),
    bet_amount REAL NOT NULL CHECK (bet_amount > 0),
    strategy TEXT NOT NULL,
    outcome TEXT NOT NULL CHECK (outcome IN ('win', 'loss')),
    safe_pick_count INTEGER NOT NULL CHECK (safe_pick_count >= 0),
    multiplier REAL NOT NULL,
    winnings REAL NOT NULL,
    profit REAL NOT NULL,
    ending_balance REAL NOT NULL,
    bomb_positions TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    play_duration INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    UNIQUE (session_id, sequence_number)
);
CREATE INDEX IF NOT EXISTS idx_rounds_session_time ON rounds(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_rounds_time ON rounds(created_at);

CREATE TABLE IF NOT EXISTS pattern_aggregates (
    safe_pick_count INTEGER PRIMARY KEY,
    occurrence_count INTEGER NOT NULL,
    win_count INTEGER NOT NULL,
    total_profit REAL NOT NULL,
    avg_profit REAL NOT NULL,
    last_updated INTEGER NOT NULL
);
`
