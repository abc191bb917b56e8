package game

import (
	"math"

	"github.com/shopspring/decimal"
)

// Settlement holds the money fields derived from a candidate and the balance
// it is played against.
type Settlement struct {
	Winnings      float64
	Profit        float64
	EndingBalance float64
}

// Validate checks a candidate before any write happens.
func Validate(c Candidate) error {
	if c.SessionID == "" {
		return &ValidationError{Field: "session_id", Reason: "must not be empty"}
	}
	if math.IsNaN(c.BetAmount) || math.IsInf(c.BetAmount, 0) || c.BetAmount <= 0 {
		return &ValidationError{Field: "bet_amount", Reason: "must be positive"}
	}
	if c.SafePickCount < 0 {
		return &ValidationError{Field: "safe_pick_count", Reason: "must not be negative"}
	}
	if c.Outcome != Win && c.Outcome != Loss {
		return &ValidationError{Field: "outcome", Reason: "must be win or loss"}
	}
	if math.IsNaN(c.Multiplier) || math.IsInf(c.Multiplier, 0) || c.Multiplier < 0 {
		return &ValidationError{Field: "multiplier", Reason: "must not be negative"}
	}
	// A win below 1x would book a loss as a win.
	if c.Outcome == Win && c.Multiplier < 1 {
		return &ValidationError{Field: "multiplier", Reason: "a win pays at least 1x"}
	}
	return nil
}

// Settle derives winnings, profit and the new balance. Arithmetic runs in
// decimal so that e.g. 0.1 at 1.9x settles to exactly 0.19.
func Settle(c Candidate, balance float64) Settlement {
	bet := decimal.NewFromFloat(c.BetAmount)

	winnings := decimal.Zero
	profit := bet.Neg()
	if c.Outcome == Win {
		winnings = bet.Mul(decimal.NewFromFloat(c.Multiplier))
		profit = winnings.Sub(bet)
	}
	ending := decimal.NewFromFloat(balance).Add(profit)

	return Settlement{
		Winnings:      winnings.InexactFloat64(),
		Profit:        profit.InexactFloat64(),
		EndingBalance: ending.InexactFloat64(),
	}
}

// Preview is a settlement computed without logging anything.
type Preview struct {
	Settlement
	// ROI is profit per unit bet: -1 for a loss.
	ROI float64
}

// PreviewRound validates and settles a candidate without persisting it.
func PreviewRound(c Candidate, balance float64) (Preview, error) {
	if err := Validate(c); err != nil {
		return Preview{}, err
	}
	s := Settle(c, balance)
	return Preview{Settlement: s, ROI: s.Profit / c.BetAmount}, nil
}
