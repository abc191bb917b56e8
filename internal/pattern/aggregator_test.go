package pattern

import (
	"context"
	"testing"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomblog/internal/db/dbtest"
	"bomblog/internal/game"
)

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	return NewAggregator(dbtest.Open(t), trmsql.DefaultCtxGetter, zerolog.Nop())
}

func TestObserve_CreatesThenUpdates(t *testing.T) {
	a := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, a.Observe(ctx, 3, game.Win, 0.1))

	agg, ok, err := a.Get(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, agg.OccurrenceCount)
	assert.Equal(t, 1, agg.WinCount)
	assert.Equal(t, 0.1, agg.TotalProfit)
	assert.Equal(t, 0.1, agg.AvgProfit)

	require.NoError(t, a.Observe(ctx, 3, game.Loss, -0.1))

	agg, ok, err = a.Get(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, agg.OccurrenceCount)
	assert.Equal(t, 1, agg.WinCount)
	assert.InDelta(t, 0.0, agg.TotalProfit, 1e-12)
	assert.InDelta(t, 0.0, agg.AvgProfit, 1e-12)
	assert.Equal(t, 0.5, agg.WinRate())
}

func TestGet_Unknown(t *testing.T) {
	a := newTestAggregator(t)
	agg, ok, err := a.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, agg.WinRate())
}

func TestAggregates_OrderedByAvgProfit(t *testing.T) {
	a := newTestAggregator(t)
	ctx := context.Background()

	observations := []struct {
		picks   int
		outcome game.Outcome
		profit  float64
	}{
		{1, game.Win, 0.05},
		{1, game.Win, 0.05},
		{5, game.Loss, -0.2},
		{5, game.Win, 0.66},
		{8, game.Loss, -0.5},
		{2, game.Win, 0.05},
	}
	for _, o := range observations {
		require.NoError(t, a.Observe(ctx, o.picks, o.outcome, o.profit))
	}

	aggs, err := a.Aggregates(ctx)
	require.NoError(t, err)
	require.Len(t, aggs, 4)

	var order []int
	for _, agg := range aggs {
		order = append(order, agg.SafePickCount)
	}
	// 5 averages 0.23; 1 and 2 tie at 0.05 and fall back to pick count.
	assert.Equal(t, []int{5, 1, 2, 8}, order)
	assert.InDelta(t, 0.23, aggs[0].AvgProfit, 1e-12)
	assert.Equal(t, 2, aggs[1].OccurrenceCount)
}

func TestAggregates_Empty(t *testing.T) {
	a := newTestAggregator(t)
	aggs, err := a.Aggregates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, aggs)
}

type fakeCounter map[int]int

func (f fakeCounter) CountByPickCount(context.Context) (map[int]int, error) { return f, nil }

func TestVerify(t *testing.T) {
	a := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, a.Observe(ctx, 1, game.Win, 0.1))
	require.NoError(t, a.Observe(ctx, 1, game.Loss, -0.1))
	require.NoError(t, a.Observe(ctx, 4, game.Loss, -0.1))

	drift, err := a.Verify(ctx, fakeCounter{1: 2, 4: 1})
	require.NoError(t, err)
	assert.Empty(t, drift)

	drift, err = a.Verify(ctx, fakeCounter{1: 3, 7: 2})
	require.NoError(t, err)
	assert.Equal(t, []Drift{
		{SafePickCount: 1, Aggregated: 2, Stored: 3},
		{SafePickCount: 4, Aggregated: 1, Stored: 0},
		{SafePickCount: 7, Aggregated: 0, Stored: 2},
	}, drift)
}
