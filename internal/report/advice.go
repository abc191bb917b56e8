package report

import (
	"math"

	"bomblog/internal/performance"
)

// Advice is one qualitative recommendation line.
type Advice struct {
	OK   bool
	Text string
}

// Advise derives recommendations from a summary. An empty summary yields no
// advice.
func Advise(s *performance.Summary) []Advice {
	if s.Total == 0 {
		return nil
	}
	var out []Advice

	winRate := s.WinRate * 100
	switch {
	case winRate > 60:
		out = append(out, Advice{true, "Excellent win rate. Consider increasing bet sizes gradually."})
	case winRate > 45:
		out = append(out, Advice{true, "Good performance. Maintain current strategy."})
	default:
		out = append(out, Advice{false, "Consider adjusting strategy or reducing bet sizes."})
	}

	if winRate > 50 {
		out = append(out, Advice{true, "Good win rate"})
	} else {
		out = append(out, Advice{false, "Win rate below 50%"})
	}

	if s.AvgProfit > 0 {
		out = append(out, Advice{true, "Strategy is profitable (positive expected value)"})
	} else {
		out = append(out, Advice{false, "Strategy is not profitable (negative expected value)"})
	}

	avg := math.Abs(s.AvgProfit)
	switch {
	case s.StdProfit > 3*avg:
		out = append(out, Advice{false, "High volatility. Consider more conservative plays."})
	case s.StdProfit > 2*avg:
		out = append(out, Advice{false, "High volatility detected"})
	}
	return out
}
