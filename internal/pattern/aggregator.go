// Package pattern keeps one running aggregate per safe-pick count across all
// sessions. The aggregates are an incremental cache of the round table: they
// are only written by Observe, once per stored round, inside the round's
// transaction.
package pattern

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/rs/zerolog"

	"bomblog/internal/game"
)

const (
	table = "pattern_aggregates"

	colSafePickCount   = "safe_pick_count"
	colOccurrenceCount = "occurrence_count"
	colWinCount        = "win_count"
	colTotalProfit     = "total_profit"
	colAvgProfit       = "avg_profit"
	colLastUpdated     = "last_updated"
)

// Upsert arithmetic: on the right-hand side of DO UPDATE, bare column names are
// the stored values and excluded.* is the new observation.
const upsertSuffix = `ON CONFLICT (safe_pick_count) DO UPDATE SET
	occurrence_count = occurrence_count + 1,
	win_count = win_count + excluded.win_count,
	total_profit = total_profit + excluded.total_profit,
	avg_profit = (total_profit + excluded.total_profit) / (occurrence_count + 1),
	last_updated = excluded.last_updated`

// Aggregate is the running statistics of one safe-pick count.
type Aggregate struct {
	SafePickCount   int
	OccurrenceCount int
	WinCount        int
	TotalProfit     float64
	AvgProfit       float64
	LastUpdated     time.Time
}

// WinRate is WinCount/OccurrenceCount, 0 for an empty aggregate.
func (a Aggregate) WinRate() float64 {
	if a.OccurrenceCount == 0 {
		return 0
	}
	return float64(a.WinCount) / float64(a.OccurrenceCount)
}

// Aggregator reads and writes pattern aggregates.
type Aggregator struct {
	db     *sql.DB
	getter *trmsql.CtxGetter
	now    func() time.Time
	log    zerolog.Logger
}

func NewAggregator(db *sql.DB, getter *trmsql.CtxGetter, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		db:     db,
		getter: getter,
		now:    time.Now,
		log:    log.With().Str("component", "pattern_aggregator").Logger(),
	}
}

// Observe folds one round into the aggregate of its safe-pick count, creating
// the aggregate on first sight. It must be called exactly once per stored
// round, in the same transaction as the insert.
func (a *Aggregator) Observe(ctx context.Context, safePickCount int, outcome game.Outcome, profit float64) error {
	wins := 0
	if outcome == game.Win {
		wins = 1
	}

	query := sq.Insert(table).
		Columns(colSafePickCount, colOccurrenceCount, colWinCount, colTotalProfit, colAvgProfit, colLastUpdated).
		Values(safePickCount, 1, wins, profit, profit, a.now().UnixNano()).
		Suffix(upsertSuffix)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := a.getter.DefaultTrOrDB(ctx, a.db).ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("updating pattern aggregate %d: %w", safePickCount, err)
	}
	return nil
}

// Aggregates returns every aggregate, most profitable first. Equal averages
// are ordered by safe-pick count.
func (a *Aggregator) Aggregates(ctx context.Context) ([]Aggregate, error) {
	query := a.selectAggregates().
		OrderBy(colAvgProfit+" DESC", colSafePickCount+" ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := a.getter.DefaultTrOrDB(ctx, a.db).QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pattern aggregates: %w", err)
	}
	defer rows.Close()

	var out []Aggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

// Get returns the aggregate for one safe-pick count; ok is false if no round
// with that count was ever observed.
func (a *Aggregator) Get(ctx context.Context, safePickCount int) (agg Aggregate, ok bool, err error) {
	query := a.selectAggregates().Where(sq.Eq{colSafePickCount: safePickCount})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return Aggregate{}, false, err
	}

	row := a.getter.DefaultTrOrDB(ctx, a.db).QueryRowContext(ctx, sqlStr, args...)
	agg, err = scanAggregate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Aggregate{}, false, nil
	}
	if err != nil {
		return Aggregate{}, false, err
	}
	return agg, true, nil
}

func (a *Aggregator) selectAggregates() sq.SelectBuilder {
	return sq.Select(colSafePickCount, colOccurrenceCount, colWinCount, colTotalProfit, colAvgProfit, colLastUpdated).
		From(table)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAggregate(row scanner) (Aggregate, error) {
	var (
		agg     Aggregate
		updated int64
	)
	if err := row.Scan(&agg.SafePickCount, &agg.OccurrenceCount, &agg.WinCount, &agg.TotalProfit, &agg.AvgProfit, &updated); err != nil {
		return Aggregate{}, err
	}
	agg.LastUpdated = time.Unix(0, updated).UTC()
	return agg, nil
}

// RoundCounter counts stored rounds per safe-pick count.
type RoundCounter interface {
	CountByPickCount(ctx context.Context) (map[int]int, error)
}

// Drift is a safe-pick count whose aggregate disagrees with the round table.
type Drift struct {
	SafePickCount int
	Aggregated    int
	Stored        int
}

// Verify compares every aggregate's occurrence count with the stored rounds
// and returns the buckets that disagree, ordered by safe-pick count.
func (a *Aggregator) Verify(ctx context.Context, rounds RoundCounter) ([]Drift, error) {
	aggs, err := a.Aggregates(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := rounds.CountByPickCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting rounds: %w", err)
	}

	aggregated := make(map[int]int, len(aggs))
	for _, agg := range aggs {
		aggregated[agg.SafePickCount] = agg.OccurrenceCount
	}

	var drift []Drift
	for picks, n := range aggregated {
		if stored[picks] != n {
			drift = append(drift, Drift{SafePickCount: picks, Aggregated: n, Stored: stored[picks]})
		}
	}
	for picks, n := range stored {
		if _, ok := aggregated[picks]; !ok {
			drift = append(drift, Drift{SafePickCount: picks, Stored: n})
		}
	}
	sort.Slice(drift, func(i, j int) bool { return drift[i].SafePickCount < drift[j].SafePickCount })

	if len(drift) > 0 {
		a.log.Warn().Int("buckets", len(drift)).Msg("pattern aggregates drifted from rounds")
	}
	return drift, nil
}
