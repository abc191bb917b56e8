package strategy

import (
	"context"
	"math"
	"testing"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomblog/internal/db/dbtest"
	"bomblog/internal/game"
	"bomblog/internal/store"
)

func round(label string, outcome game.Outcome, picks int, profit float64) game.Round {
	return game.Round{Strategy: label, Outcome: outcome, SafePickCount: picks, Profit: profit, BetAmount: 0.1}
}

func TestCompare_BestAndRecommendation(t *testing.T) {
	rounds := []game.Round{
		round("aggressive", game.Loss, 7, -0.1),
		round("moderate", game.Win, 3, 0.5),
		round("moderate", game.Win, 3, 0.1),
		round("aggressive", game.Loss, 8, -0.1),
	}

	c := Compare(rounds)

	require.Len(t, c.Groups, 2)
	require.NotNil(t, c.Best)
	assert.Equal(t, "moderate", c.Best.Label)

	moderate, aggressive := c.Groups[0], c.Groups[1]
	assert.Equal(t, "moderate", moderate.Label)
	assert.InDelta(t, 0.3, moderate.AvgProfit, 1e-12)
	assert.InDelta(t, 0.6, moderate.TotalProfit, 1e-12)
	assert.Equal(t, 2, moderate.Rounds)
	assert.Equal(t, 1.0, moderate.WinRate)
	assert.Equal(t, 3.0, moderate.AvgSafePicks)
	assert.Equal(t, Recommended, moderate.Recommendation)
	assert.True(t, math.IsInf(moderate.ProfitFactor, 1))

	assert.Equal(t, "aggressive", aggressive.Label)
	assert.InDelta(t, -0.1, aggressive.AvgProfit, 1e-12)
	assert.Equal(t, 0.0, aggressive.WinRate)
	assert.Equal(t, 7.5, aggressive.AvgSafePicks)
	assert.Equal(t, NotRecommended, aggressive.Recommendation)
	assert.Equal(t, 1.0, aggressive.RiskOfRuinProxy)
	assert.Equal(t, 0.0, aggressive.ProfitFactor)
}

func TestCompare_TieKeepsFirstAppearance(t *testing.T) {
	rounds := []game.Round{
		round("conservative", game.Win, 1, 0.2),
		round("moderate", game.Win, 2, 0.2),
		round("yolo", game.Loss, 12, -1),
	}

	c := Compare(rounds)

	require.NotNil(t, c.Best)
	assert.Equal(t, "conservative", c.Best.Label)
	assert.Equal(t, []string{"conservative", "moderate", "yolo"}, labels(c))
}

func TestCompare_ZeroProfitNotRecommended(t *testing.T) {
	c := Compare([]game.Round{round("flat", game.Win, 1, 0)})
	require.Len(t, c.Groups, 1)
	assert.Equal(t, NotRecommended, c.Groups[0].Recommendation)
}

func TestCompare_Empty(t *testing.T) {
	c := Compare(nil)
	assert.Empty(t, c.Groups)
	assert.Nil(t, c.Best)
}

func TestAnalyzer_SessionAndOverall(t *testing.T) {
	rounds := store.New(dbtest.Open(t), trmsql.DefaultCtxGetter, zerolog.Nop())
	ctx := context.Background()

	for _, c := range []game.Candidate{
		{SessionID: "a", BetAmount: 0.1, Strategy: "moderate", Outcome: game.Win, SafePickCount: 3, Multiplier: 2.47},
		{SessionID: "a", BetAmount: 0.1, Strategy: "aggressive", Outcome: game.Loss, SafePickCount: 9},
		{SessionID: "b", BetAmount: 0.1, Strategy: "aggressive", Outcome: game.Win, SafePickCount: 9, Multiplier: 19.6},
	} {
		_, err := rounds.Append(ctx, c, 10)
		require.NoError(t, err)
	}

	a := NewAnalyzer(rounds)

	session, err := a.Session(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"moderate", "aggressive"}, labels(session))

	overall, err := a.Overall(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"aggressive", "moderate"}, labels(overall))
	assert.Equal(t, 2, overall.Best.Rounds)

	empty, err := a.Session(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, empty.Best)
}

func labels(c Comparison) []string {
	out := make([]string, len(c.Groups))
	for i, g := range c.Groups {
		out[i] = g.Label
	}
	return out
}
