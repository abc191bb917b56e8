// Package store persists rounds. Rounds are append-only: the only write is
// Append, which assigns the per-session sequence number and settles the round
// against the balance supplied by the caller.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"time"

	sq "github.com/Masterminds/squirrel"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/rs/zerolog"

	"bomblog/internal/game"
)

const (
	table = "rounds"

	colID             = "id"
	colSessionID      = "session_id"
	colSequenceNumber = "sequence_number"
	colBetAmount      = "bet_amount"
	colStrategy       = "strategy"
	colOutcome        = "outcome"
	colSafePickCount  = "safe_pick_count"
	colMultiplier     = "multiplier"
	colWinnings       = "winnings"
	colProfit         = "profit"
	colEndingBalance  = "ending_balance"
	colBombPositions  = "bomb_positions"
	colNotes          = "notes"
	colPlayDuration   = "play_duration"
	colCreatedAt      = "created_at"
)

var roundColumns = []string{
	colID, colSessionID, colSequenceNumber, colBetAmount, colStrategy, colOutcome,
	colSafePickCount, colMultiplier, colWinnings, colProfit, colEndingBalance,
	colBombPositions, colNotes, colPlayDuration, colCreatedAt,
}

// Store is the round table.
type Store struct {
	db     *sql.DB
	getter *trmsql.CtxGetter
	now    func() time.Time
	log    zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to timestamp new rounds.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store. Queries run inside the transaction carried by the
// context when there is one.
func New(db *sql.DB, getter *trmsql.CtxGetter, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		db:     db,
		getter: getter,
		now:    time.Now,
		log:    log.With().Str("component", "round_store").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append validates and settles the candidate against balance, assigns the next
// sequence number of its session and persists it. The returned round has every
// derived field populated.
//
// Append does not open a transaction of its own; callers that need the round
// and its aggregate update to commit together wrap it (see ledger.Recorder).
func (s *Store) Append(ctx context.Context, c game.Candidate, balance float64) (game.Round, error) {
	if err := game.Validate(c); err != nil {
		return game.Round{}, err
	}

	seq, err := s.nextSequence(ctx, c.SessionID)
	if err != nil {
		return game.Round{}, fmt.Errorf("next sequence number: %w", err)
	}

	settled := game.Settle(c, balance)
	createdAt := s.now().UnixNano()

	query := sq.Insert(table).
		Columns(
			colSessionID, colSequenceNumber, colBetAmount, colStrategy, colOutcome,
			colSafePickCount, colMultiplier, colWinnings, colProfit, colEndingBalance,
			colBombPositions, colNotes, colPlayDuration, colCreatedAt,
		).
		Values(
			c.SessionID, seq, c.BetAmount, c.Strategy, string(c.Outcome),
			c.SafePickCount, c.Multiplier, settled.Winnings, settled.Profit, settled.EndingBalance,
			c.BombPositions, c.Notes, c.PlayDuration, createdAt,
		)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return game.Round{}, err
	}

	res, err := s.getter.DefaultTrOrDB(ctx, s.db).ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return game.Round{}, fmt.Errorf("inserting round: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return game.Round{}, fmt.Errorf("reading round id: %w", err)
	}

	r := game.Round{
		ID:             id,
		SessionID:      c.SessionID,
		SequenceNumber: seq,
		BetAmount:      c.BetAmount,
		Strategy:       c.Strategy,
		Outcome:        c.Outcome,
		SafePickCount:  c.SafePickCount,
		Multiplier:     c.Multiplier,
		Winnings:       settled.Winnings,
		Profit:         settled.Profit,
		EndingBalance:  settled.EndingBalance,
		BombPositions:  c.BombPositions,
		Notes:          c.Notes,
		PlayDuration:   c.PlayDuration,
		Timestamp:      time.Unix(0, createdAt).UTC(),
	}

	s.log.Debug().
		Str("session", r.SessionID).
		Int("sequence", r.SequenceNumber).
		Float64("profit", r.Profit).
		Float64("ending_balance", r.EndingBalance).
		Msg("round appended")

	return r, nil
}

func (s *Store) nextSequence(ctx context.Context, sessionID string) (int, error) {
	query := sq.Select("COALESCE(MAX(" + colSequenceNumber + "), 0) + 1").
		From(table).
		Where(sq.Eq{colSessionID: sessionID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var seq int
	if err := s.getter.DefaultTrOrDB(ctx, s.db).QueryRowContext(ctx, sqlStr, args...).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// ForSession yields the rounds of one session by timestamp ascending. The
// query runs when the sequence is ranged over, so ranging again re-reads the
// table. An unknown session yields nothing.
func (s *Store) ForSession(ctx context.Context, sessionID string) iter.Seq2[game.Round, error] {
	return s.query(ctx, s.selectRounds().Where(sq.Eq{colSessionID: sessionID}))
}

// All yields every stored round by timestamp ascending.
func (s *Store) All(ctx context.Context) iter.Seq2[game.Round, error] {
	return s.query(ctx, s.selectRounds())
}

// Recent returns the latest rounds of a session by sequence number, latest
// first. Timestamps are not used: the clock may step backwards between rounds.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]game.Round, error) {
	if limit <= 0 {
		return nil, &game.ValidationError{Field: "limit", Reason: "must be positive"}
	}
	query := sq.Select(roundColumns...).
		From(table).
		Where(sq.Eq{colSessionID: sessionID}).
		OrderBy(colSequenceNumber+" DESC").
		Limit(uint64(limit))
	return Collect(s.query(ctx, query))
}

// Last returns the round with the highest sequence number of a session; ok
// is false when the session has none.
func (s *Store) Last(ctx context.Context, sessionID string) (r game.Round, ok bool, err error) {
	rounds, err := s.Recent(ctx, sessionID, 1)
	if err != nil || len(rounds) == 0 {
		return game.Round{}, false, err
	}
	return rounds[0], true, nil
}

// CountByPickCount counts stored rounds per safe-pick count.
func (s *Store) CountByPickCount(ctx context.Context) (map[int]int, error) {
	query := sq.Select(colSafePickCount, "COUNT(*)").
		From(table).
		GroupBy(colSafePickCount)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.getter.DefaultTrOrDB(ctx, s.db).QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var picks, n int
		if err := rows.Scan(&picks, &n); err != nil {
			return nil, err
		}
		counts[picks] = n
	}
	return counts, rows.Err()
}

func (s *Store) selectRounds() sq.SelectBuilder {
	return sq.Select(roundColumns...).
		From(table).
		OrderBy(colCreatedAt+" ASC", colID+" ASC")
}

func (s *Store) query(ctx context.Context, query sq.SelectBuilder) iter.Seq2[game.Round, error] {
	return func(yield func(game.Round, error) bool) {
		sqlStr, args, err := query.ToSql()
		if err != nil {
			yield(game.Round{}, err)
			return
		}

		rows, err := s.getter.DefaultTrOrDB(ctx, s.db).QueryContext(ctx, sqlStr, args...)
		if err != nil {
			yield(game.Round{}, fmt.Errorf("querying rounds: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			r, err := scanRound(rows)
			if err != nil {
				yield(game.Round{}, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(game.Round{}, err)
		}
	}
}

func scanRound(rows *sql.Rows) (game.Round, error) {
	var (
		r         game.Round
		outcome   string
		createdAt int64
	)
	if err := rows.Scan(
		&r.ID, &r.SessionID, &r.SequenceNumber, &r.BetAmount, &r.Strategy, &outcome,
		&r.SafePickCount, &r.Multiplier, &r.Winnings, &r.Profit, &r.EndingBalance,
		&r.BombPositions, &r.Notes, &r.PlayDuration, &createdAt,
	); err != nil {
		return game.Round{}, fmt.Errorf("scanning round: %w", err)
	}
	r.Outcome = game.Outcome(outcome)
	r.Timestamp = time.Unix(0, createdAt).UTC()
	return r, nil
}

// Collect drains a round sequence into a slice, stopping at the first error.
func Collect(seq iter.Seq2[game.Round, error]) ([]game.Round, error) {
	var rounds []game.Round
	for r, err := range seq {
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	return rounds, nil
}
