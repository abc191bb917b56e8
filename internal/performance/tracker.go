package performance

import (
	"context"
	"fmt"
	"iter"

	"gonum.org/v1/gonum/stat"

	"bomblog/internal/game"
	"bomblog/internal/risk"
	"bomblog/internal/store"
)

// RoundSource yields stored rounds by timestamp ascending.
type RoundSource interface {
	ForSession(ctx context.Context, sessionID string) iter.Seq2[game.Round, error]
	All(ctx context.Context) iter.Seq2[game.Round, error]
}

// Tracker computes summaries from the round store. It holds no state of its
// own, so two calls with no write in between return identical summaries.
type Tracker struct {
	rounds RoundSource
}

func NewTracker(rounds RoundSource) *Tracker {
	return &Tracker{rounds: rounds}
}

// Streak is the run of identical outcomes ending at the most recent round.
type Streak struct {
	Length  int
	Outcome game.Outcome
}

// Summary contains the statistics of a set of rounds.
type Summary struct {
	SessionID string

	Total   int
	Wins    int
	Losses  int
	WinRate float64

	NetProfit float64
	AvgProfit float64
	MinProfit float64
	MaxProfit float64
	// StdProfit is the population standard deviation of profit.
	StdProfit float64

	OpeningBalance float64
	FinalBalance   float64
	MinBalance     float64
	MaxBalance     float64

	AvgSafePicks float64
	TotalBet     float64
	AvgBet       float64
	ROI          float64

	Streak Streak
	Risk   risk.Metrics
}

// Session summarises one session. A session without rounds yields a zero
// summary, not an error.
func (t *Tracker) Session(ctx context.Context, sessionID string) (*Summary, error) {
	rounds, err := store.Collect(t.rounds.ForSession(ctx, sessionID))
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	s := Summarize(rounds)
	s.SessionID = sessionID
	return &s, nil
}

// Overall summarises every stored round. Balance fields and drawdown follow
// the interleaved balances of all sessions and are only indicative.
func (t *Tracker) Overall(ctx context.Context) (*Summary, error) {
	rounds, err := store.Collect(t.rounds.All(ctx))
	if err != nil {
		return nil, fmt.Errorf("loading rounds: %w", err)
	}
	s := Summarize(rounds)
	return &s, nil
}

// Summarize computes a summary of rounds given in timestamp order.
func Summarize(rounds []game.Round) Summary {
	s := Summary{Total: len(rounds)}
	if s.Total == 0 {
		s.Risk = risk.Metrics{
			ProfitFactor:   risk.ProfitFactor(nil),
			RecoveryFactor: risk.RecoveryFactor(0, 0),
		}
		return s
	}

	profits := make([]float64, 0, len(rounds))
	balances := make([]float64, 0, len(rounds))
	var picks int

	first := rounds[0]
	s.MinProfit, s.MaxProfit = first.Profit, first.Profit
	s.MinBalance, s.MaxBalance = first.EndingBalance, first.EndingBalance

	for _, r := range rounds {
		if r.Won() {
			s.Wins++
		}
		s.NetProfit += r.Profit
		s.TotalBet += r.BetAmount
		picks += r.SafePickCount

		s.MinProfit = min(s.MinProfit, r.Profit)
		s.MaxProfit = max(s.MaxProfit, r.Profit)
		s.MinBalance = min(s.MinBalance, r.EndingBalance)
		s.MaxBalance = max(s.MaxBalance, r.EndingBalance)

		profits = append(profits, r.Profit)
		balances = append(balances, r.EndingBalance)
	}

	n := float64(s.Total)
	s.Losses = s.Total - s.Wins
	s.WinRate = float64(s.Wins) / n
	s.AvgProfit, s.StdProfit = stat.PopMeanStdDev(profits, nil)
	s.AvgSafePicks = float64(picks) / n
	s.AvgBet = s.TotalBet / n
	if s.TotalBet > 0 {
		s.ROI = s.NetProfit / s.TotalBet
	}

	s.OpeningBalance = first.EndingBalance - first.Profit
	s.FinalBalance = rounds[len(rounds)-1].EndingBalance
	s.Streak = currentStreak(rounds)

	s.Risk = risk.Metrics{
		SharpeLike:      risk.SharpeLike(s.AvgProfit, s.StdProfit),
		ProfitFactor:    risk.ProfitFactor(profits),
		RiskOfRuinProxy: risk.RiskOfRuinProxy(s.Losses, s.Total),
		RecoveryFactor:  risk.RecoveryFactor(s.NetProfit, s.MinProfit),
		Expectancy:      risk.Expectancy(s.AvgProfit, s.AvgBet),
		MaxDrawdown:     risk.MaxDrawdown(s.OpeningBalance, balances),
	}
	return s
}

func currentStreak(rounds []game.Round) Streak {
	if len(rounds) == 0 {
		return Streak{}
	}
	last := rounds[len(rounds)-1].Outcome
	n := 0
	for i := len(rounds) - 1; i >= 0 && rounds[i].Outcome == last; i-- {
		n++
	}
	return Streak{Length: n, Outcome: last}
}
