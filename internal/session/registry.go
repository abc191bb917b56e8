// Package session tracks sessions and threads the current balance between
// round submissions, so no caller has to keep a live balance of its own.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"

	"bomblog/internal/game"
)

const (
	table = "sessions"

	colSessionID      = "session_id"
	colOpeningBalance = "opening_balance"
	colStartedAt      = "started_at"
)

// Session is a group of rounds sharing an identifier and a running balance.
type Session struct {
	ID             string
	OpeningBalance float64
	StartedAt      time.Time
}

// NewID derives a session identifier from its start instant.
func NewID(start time.Time) string {
	return start.Format("session_20060102_150405")
}

// Registry stores sessions.
type Registry struct {
	db     *sql.DB
	getter *trmsql.CtxGetter
}

func NewRegistry(db *sql.DB, getter *trmsql.CtxGetter) *Registry {
	return &Registry{db: db, getter: getter}
}

// Start registers a session with its opening balance. Starting an existing
// session is a no-op and keeps the original opening balance.
func (r *Registry) Start(ctx context.Context, id string, openingBalance float64, startedAt time.Time) (Session, error) {
	if id == "" {
		return Session{}, &game.ValidationError{Field: "session_id", Reason: "must not be empty"}
	}

	query := sq.Insert(table).
		Options("OR IGNORE").
		Columns(colSessionID, colOpeningBalance, colStartedAt).
		Values(id, openingBalance, startedAt.UnixNano())

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return Session{}, err
	}
	if _, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, sqlStr, args...); err != nil {
		return Session{}, fmt.Errorf("starting session %s: %w", id, err)
	}
	return r.Get(ctx, id)
}

// Get returns a session or game.ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (Session, error) {
	sessions, err := r.list(ctx, r.selectSessions().Where(sq.Eq{colSessionID: id}))
	if err != nil {
		return Session{}, err
	}
	if len(sessions) == 0 {
		return Session{}, fmt.Errorf("session %s: %w", id, game.ErrNotFound)
	}
	return sessions[0], nil
}

// Latest returns the most recently started session or game.ErrNotFound.
func (r *Registry) Latest(ctx context.Context) (Session, error) {
	sessions, err := r.list(ctx, r.selectSessions().OrderBy(colStartedAt+" DESC").Limit(1))
	if err != nil {
		return Session{}, err
	}
	if len(sessions) == 0 {
		return Session{}, fmt.Errorf("latest session: %w", game.ErrNotFound)
	}
	return sessions[0], nil
}

// List returns every session, oldest first.
func (r *Registry) List(ctx context.Context) ([]Session, error) {
	return r.list(ctx, r.selectSessions().OrderBy(colStartedAt+" ASC"))
}

func (r *Registry) selectSessions() sq.SelectBuilder {
	return sq.Select(colSessionID, colOpeningBalance, colStartedAt).From(table)
}

func (r *Registry) list(ctx context.Context, query sq.SelectBuilder) ([]Session, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.getter.DefaultTrOrDB(ctx, r.db).QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			s       Session
			started int64
		)
		if err := rows.Scan(&s.ID, &s.OpeningBalance, &started); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(0, started).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
