// Package risk holds the heuristic risk measures reported next to session
// statistics. None of them is a statistically rigorous measure: the formulas
// are kept stable so numbers stay comparable between reports.
package risk

import "math"

// Epsilon keeps the sharpe-like ratio finite when every profit is identical.
const Epsilon = 0.001

// Metrics is the risk block of a summary. ProfitFactor and RecoveryFactor are
// +Inf when there is no losing round to divide by.
type Metrics struct {
	SharpeLike      float64
	ProfitFactor    float64
	RiskOfRuinProxy float64
	RecoveryFactor  float64
	Expectancy      float64
	MaxDrawdown     float64
}

// SharpeLike is avg/(std+Epsilon): a volatility-adjusted average profit per
// round, not the formal Sharpe ratio (no risk-free rate, no annualisation).
func SharpeLike(avgProfit, stdProfit float64) float64 {
	return avgProfit / (stdProfit + Epsilon)
}

// ProfitFactor is gross gains over gross losses.
func ProfitFactor(profits []float64) float64 {
	var gains, losses float64
	for _, p := range profits {
		switch {
		case p > 0:
			gains += p
		case p < 0:
			losses += p
		}
	}
	if losses == 0 {
		return math.Inf(1)
	}
	return gains / math.Abs(losses)
}

// RiskOfRuinProxy is the share of losing rounds. It is not a ruin
// probability; it ignores bet sizing and bankroll entirely.
func RiskOfRuinProxy(losses, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(losses) / float64(total)
}

// RecoveryFactor is -netProfit/minProfit when the worst round lost money.
func RecoveryFactor(netProfit, minProfit float64) float64 {
	if minProfit >= 0 {
		return math.Inf(1)
	}
	return -netProfit / minProfit
}

// Expectancy is average profit per unit bet.
func Expectancy(avgProfit, avgBet float64) float64 {
	if avgBet <= 0 {
		return 0
	}
	return avgProfit / avgBet
}

// MaxDrawdown is the largest fractional fall from a running peak of the
// balance curve. opening is the balance before the first point.
func MaxDrawdown(opening float64, balances []float64) float64 {
	peak := opening
	var maxDD float64
	for _, v := range balances {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			maxDD = math.Max(maxDD, (peak-v)/peak)
		}
	}
	return maxDD
}
