// Package strategy compares the declared strategies of a set of rounds.
package strategy

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"gonum.org/v1/gonum/stat"

	"bomblog/internal/game"
	"bomblog/internal/risk"
	"bomblog/internal/store"
)

// Recommendation is a pure threshold on a group's average profit.
type Recommendation string

const (
	Recommended    Recommendation = "recommended"
	NotRecommended Recommendation = "not recommended"
)

func recommend(avgProfit float64) Recommendation {
	if avgProfit > 0 {
		return Recommended
	}
	return NotRecommended
}

// Group holds the statistics of the rounds played under one label.
type Group struct {
	Label        string
	Rounds       int
	Wins         int
	WinRate      float64
	AvgProfit    float64
	TotalProfit  float64
	AvgSafePicks float64

	SharpeLike      float64
	ProfitFactor    float64
	RiskOfRuinProxy float64

	Recommendation Recommendation
}

// Comparison lists groups ranked by average profit, best first. Best is nil
// when there were no rounds.
type Comparison struct {
	Groups []Group
	Best   *Group
}

// Compare groups rounds by strategy label. Groups with equal average profit
// keep the order in which their label first appeared.
func Compare(rounds []game.Round) Comparison {
	var labels []string
	byLabel := make(map[string][]game.Round)
	for _, r := range rounds {
		if _, ok := byLabel[r.Strategy]; !ok {
			labels = append(labels, r.Strategy)
		}
		byLabel[r.Strategy] = append(byLabel[r.Strategy], r)
	}

	groups := make([]Group, 0, len(labels))
	for _, label := range labels {
		groups = append(groups, summarize(label, byLabel[label]))
	}
	slices.SortStableFunc(groups, func(a, b Group) int {
		switch {
		case a.AvgProfit > b.AvgProfit:
			return -1
		case a.AvgProfit < b.AvgProfit:
			return 1
		}
		return 0
	})

	c := Comparison{Groups: groups}
	if len(groups) > 0 {
		c.Best = &c.Groups[0]
	}
	return c
}

func summarize(label string, rounds []game.Round) Group {
	g := Group{Label: label, Rounds: len(rounds)}
	profits := make([]float64, 0, len(rounds))
	var picks int
	for _, r := range rounds {
		if r.Won() {
			g.Wins++
		}
		g.TotalProfit += r.Profit
		picks += r.SafePickCount
		profits = append(profits, r.Profit)
	}

	n := float64(g.Rounds)
	g.WinRate = float64(g.Wins) / n
	g.AvgSafePicks = float64(picks) / n
	avg, std := stat.PopMeanStdDev(profits, nil)
	g.AvgProfit = avg

	g.SharpeLike = risk.SharpeLike(avg, std)
	g.ProfitFactor = risk.ProfitFactor(profits)
	g.RiskOfRuinProxy = risk.RiskOfRuinProxy(g.Rounds-g.Wins, g.Rounds)
	g.Recommendation = recommend(avg)
	return g
}

// RoundSource yields stored rounds by timestamp ascending.
type RoundSource interface {
	ForSession(ctx context.Context, sessionID string) iter.Seq2[game.Round, error]
	All(ctx context.Context) iter.Seq2[game.Round, error]
}

// Analyzer compares strategies over the round store.
type Analyzer struct {
	rounds RoundSource
}

func NewAnalyzer(rounds RoundSource) *Analyzer {
	return &Analyzer{rounds: rounds}
}

func (a *Analyzer) Session(ctx context.Context, sessionID string) (Comparison, error) {
	rounds, err := store.Collect(a.rounds.ForSession(ctx, sessionID))
	if err != nil {
		return Comparison{}, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	return Compare(rounds), nil
}

func (a *Analyzer) Overall(ctx context.Context) (Comparison, error) {
	rounds, err := store.Collect(a.rounds.All(ctx))
	if err != nil {
		return Comparison{}, fmt.Errorf("loading rounds: %w", err)
	}
	return Compare(rounds), nil
}
