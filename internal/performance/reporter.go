package performance

import (
	"github.com/rs/zerolog"
)

// LogReport logs the summary as structured fields.
func LogReport(log zerolog.Logger, s *Summary) {
	log.Info().
		Str("session", s.SessionID).
		Int("rounds", s.Total).
		Int("wins", s.Wins).
		Int("losses", s.Losses).
		Float64("win_rate", s.WinRate).
		Float64("net_profit", s.NetProfit).
		Float64("avg_profit", s.AvgProfit).
		Float64("std_profit", s.StdProfit).
		Float64("roi", s.ROI).
		Float64("min_balance", s.MinBalance).
		Float64("max_balance", s.MaxBalance).
		Int("streak", s.Streak.Length).
		Str("streak_outcome", s.Streak.Outcome.String()).
		Msg("=== SESSION REPORT ===")

	log.Info().
		Str("session", s.SessionID).
		Float64("sharpe_like", s.Risk.SharpeLike).
		Float64("profit_factor", s.Risk.ProfitFactor).
		Float64("risk_of_ruin_proxy", s.Risk.RiskOfRuinProxy).
		Float64("recovery_factor", s.Risk.RecoveryFactor).
		Float64("expectancy", s.Risk.Expectancy).
		Float64("max_drawdown", s.Risk.MaxDrawdown).
		Msg("session risk")
}
