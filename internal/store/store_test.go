package store

import (
	"context"
	"testing"
	"time"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomblog/internal/db/dbtest"
	"bomblog/internal/game"
)

// tickingClock advances one second per call so round order is deterministic.
func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(dbtest.Open(t), trmsql.DefaultCtxGetter, zerolog.Nop(), WithClock(tickingClock()))
}

func win(session string, bet, mult float64, picks int) game.Candidate {
	return game.Candidate{SessionID: session, BetAmount: bet, Strategy: "moderate", Outcome: game.Win, SafePickCount: picks, Multiplier: mult}
}

func loss(session string, bet float64, picks int) game.Candidate {
	return game.Candidate{SessionID: session, BetAmount: bet, Strategy: "moderate", Outcome: game.Loss, SafePickCount: picks}
}

func TestAppend_FirstAndSecondRound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Append(ctx, win("s1", 0.1, 1.9, 2), 1.0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.SequenceNumber)
	assert.Equal(t, 0.19, first.Winnings)
	assert.Equal(t, 0.09, first.Profit)
	assert.Equal(t, 1.09, first.EndingBalance)

	second, err := s.Append(ctx, loss("s1", 0.2, 2), first.EndingBalance)
	require.NoError(t, err)
	assert.Equal(t, 2, second.SequenceNumber)
	assert.Equal(t, 0.0, second.Winnings)
	assert.Equal(t, -0.2, second.Profit)
	assert.Equal(t, 0.89, second.EndingBalance)
}

func TestAppend_RejectsInvalidCandidate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, win("s1", 0, 1.9, 2), 1.0)
	assert.ErrorIs(t, err, game.ErrValidation)

	_, err = s.Append(ctx, loss("s1", 0.1, -3), 1.0)
	assert.ErrorIs(t, err, game.ErrValidation)

	rounds, err := Collect(s.All(ctx))
	require.NoError(t, err)
	assert.Empty(t, rounds)
}

func TestAppend_SequencePerSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sessions := []string{"a", "b", "a", "c", "b", "a", "c", "a"}
	for _, id := range sessions {
		_, err := s.Append(ctx, loss(id, 0.1, 1), 10)
		require.NoError(t, err)
	}

	want := map[string]int{"a": 4, "b": 2, "c": 2}
	for id, n := range want {
		rounds, err := Collect(s.ForSession(ctx, id))
		require.NoError(t, err)
		require.Len(t, rounds, n)
		for i, r := range rounds {
			assert.Equal(t, i+1, r.SequenceNumber, "session %s", id)
		}
	}
}

func TestForSession_OrderedAndRestartable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	balance := 1.0
	for i := 0; i < 5; i++ {
		r, err := s.Append(ctx, win("s1", 0.1, 1.49, 1), balance)
		require.NoError(t, err)
		balance = r.EndingBalance
	}
	_, err := s.Append(ctx, win("other", 0.1, 1.49, 1), 5)
	require.NoError(t, err)

	seq := s.ForSession(ctx, "s1")

	first, err := Collect(seq)
	require.NoError(t, err)
	second, err := Collect(seq)
	require.NoError(t, err)

	require.Len(t, first, 5)
	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i].Timestamp.After(first[i-1].Timestamp))
	}
}

func TestForSession_EarlyBreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, loss("s1", 0.1, 1), 10)
		require.NoError(t, err)
	}

	seen := 0
	for _, err := range s.ForSession(ctx, "s1") {
		require.NoError(t, err)
		seen++
		break
	}
	assert.Equal(t, 1, seen)

	// The connection must have been released by the early break.
	_, err := s.Append(ctx, loss("s1", 0.1, 1), 10)
	require.NoError(t, err)
}

func TestForSession_Unknown(t *testing.T) {
	s := newTestStore(t)
	rounds, err := Collect(s.ForSession(context.Background(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, rounds)
}

func TestAll_RoundTripsFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := win("s1", 0.5, 7.89, 7)
	c.Strategy = "aggressive"
	c.BombPositions = "3,8,14"
	c.Notes = "cashed out early"
	c.PlayDuration = 42

	appended, err := s.Append(ctx, c, 2)
	require.NoError(t, err)

	rounds, err := Collect(s.All(ctx))
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, appended, rounds[0])
	assert.Equal(t, "3,8,14", rounds[0].BombPositions)
	assert.Equal(t, 42, rounds[0].PlayDuration)
}

func TestRecentAndLast(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Last(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	for i := 0; i < 4; i++ {
		_, err := s.Append(ctx, loss("s1", 0.1, i), 10)
		require.NoError(t, err)
	}

	recent, err := s.Recent(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 4, recent[0].SequenceNumber)
	assert.Equal(t, 3, recent[1].SequenceNumber)

	last, ok, err := s.Last(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, last.SequenceNumber)
}

// steppingClock returns the given instants in turn.
func steppingClock(instants ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := instants[i]
		i++
		return t
	}
}

func TestRecentAndLast_FollowSequenceWhenClockStepsBack(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New(dbtest.Open(t), trmsql.DefaultCtxGetter, zerolog.Nop(), WithClock(steppingClock(
		base.Add(1000*time.Second),
		base.Add(500*time.Second),
		base.Add(600*time.Second),
	)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, loss("s1", 0.1, i), 10)
		require.NoError(t, err)
	}

	last, ok, err := s.Last(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, last.SequenceNumber)

	recent, err := s.Recent(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{recent[0].SequenceNumber, recent[1].SequenceNumber, recent[2].SequenceNumber})
}

func TestRecent_RejectsNonPositiveLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, limit := range []int{0, -1} {
		_, err := s.Recent(ctx, "s1", limit)
		assert.ErrorIs(t, err, game.ErrValidation, "limit %d", limit)
	}
}

func TestCountByPickCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, picks := range []int{3, 3, 5, 0, 3} {
		_, err := s.Append(ctx, loss("s1", 0.1, picks), 10)
		require.NoError(t, err)
	}

	counts, err := s.CountByPickCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 1, 3: 3, 5: 1}, counts)
}
