package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"iter"
	"path/filepath"
	"testing"
	"time"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomblog/internal/db/dbtest"
	"bomblog/internal/game"
	"bomblog/internal/store"
)

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "session_20240101_120000.csv"), Path("out", "session_20240101_120000"))
	assert.Equal(t, filepath.Join("out", "all_game_results.csv"), Path("out", ""))
}

func TestRounds_FromStore(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rounds := store.New(dbtest.Open(t), trmsql.DefaultCtxGetter, zerolog.Nop(), store.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))

	first, err := rounds.Append(ctx, game.Candidate{
		SessionID: "s1", BetAmount: 0.1, Strategy: "moderate", Outcome: game.Win,
		SafePickCount: 2, Multiplier: 1.9, BombPositions: "3,7", Notes: "cashed out, early",
	}, 1)
	require.NoError(t, err)
	_, err = rounds.Append(ctx, game.Candidate{
		SessionID: "s1", BetAmount: 0.2, Strategy: "aggressive", Outcome: game.Loss, SafePickCount: 6, PlayDuration: 42,
	}, first.EndingBalance)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := Rounds(&buf, rounds.ForSession(ctx, "s1"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{
		"s1", "1", "2024-03-01T09:01:00Z", "0.1", "moderate", "win", "2", "1.9",
		"0.19", "0.09", "1.09", "3,7", "cashed out, early", "0",
	}, rows[1])
	assert.Equal(t, []string{
		"s1", "2", "2024-03-01T09:02:00Z", "0.2", "aggressive", "loss", "6", "0",
		"0", "-0.2", "0.89", "", "", "42",
	}, rows[2])
}

func TestRounds_EmptyWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	n, err := Rounds(&buf, func(func(game.Round, error) bool) {})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{Header}, rows)
}

func TestRounds_SourceError(t *testing.T) {
	var seq iter.Seq2[game.Round, error] = func(yield func(game.Round, error) bool) {
		if !yield(game.Round{SessionID: "s1", SequenceNumber: 1, Outcome: game.Loss}, nil) {
			return
		}
		yield(game.Round{}, errors.New("db gone"))
	}

	var buf bytes.Buffer
	n, err := Rounds(&buf, seq)
	assert.ErrorContains(t, err, "db gone")
	assert.Equal(t, 1, n)
}
