package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pterm/pterm"

	"bomblog/internal/game"
	"bomblog/internal/pattern"
	"bomblog/internal/performance"
	"bomblog/internal/strategy"
)

func f4(v float64) string     { return fmt.Sprintf("%.4f", v) }
func signed(v float64) string { return fmt.Sprintf("%+.4f", v) }
func pct(v float64) string    { return fmt.Sprintf("%.1f%%", v*100) }

func ratio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.3f", v)
}

func renderSummary(s *performance.Summary) error {
	if s.Total == 0 {
		pterm.Info.Println("No rounds recorded yet")
		return nil
	}
	streak := fmt.Sprintf("%d %s", s.Streak.Length, s.Streak.Outcome)
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Metric", "Value"},
		{"Rounds", strconv.Itoa(s.Total)},
		{"Wins / Losses", fmt.Sprintf("%d / %d", s.Wins, s.Losses)},
		{"Win rate", pct(s.WinRate)},
		{"Net profit", signed(s.NetProfit)},
		{"Avg profit", f4(s.AvgProfit)},
		{"Std dev", f4(s.StdProfit)},
		{"Best / worst", signed(s.MaxProfit) + " / " + signed(s.MinProfit)},
		{"Total bet", f4(s.TotalBet)},
		{"ROI", pct(s.ROI)},
		{"Balance", f4(s.OpeningBalance) + " -> " + f4(s.FinalBalance)},
		{"Balance range", f4(s.MinBalance) + " .. " + f4(s.MaxBalance)},
		{"Avg safe picks", fmt.Sprintf("%.2f", s.AvgSafePicks)},
		{"Current streak", streak},
		{"Sharpe-like", ratio(s.Risk.SharpeLike)},
		{"Profit factor", ratio(s.Risk.ProfitFactor)},
		{"Risk of ruin (proxy)", pct(s.Risk.RiskOfRuinProxy)},
		{"Recovery factor", ratio(s.Risk.RecoveryFactor)},
		{"Expectancy", f4(s.Risk.Expectancy)},
		{"Max drawdown", pct(s.Risk.MaxDrawdown)},
	}).Render()
}

func renderRounds(rounds []game.Round) error {
	data := pterm.TableData{{"#", "Time", "Bet", "Result", "Picks", "Multiplier", "Profit", "Balance"}}
	for _, r := range rounds {
		data = append(data, []string{
			strconv.Itoa(r.SequenceNumber),
			r.Timestamp.Local().Format("15:04:05"),
			f4(r.BetAmount),
			r.Outcome.String(),
			strconv.Itoa(r.SafePickCount),
			fmt.Sprintf("%.2fx", r.Multiplier),
			signed(r.Profit),
			f4(r.EndingBalance),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func renderPatterns(aggs []pattern.Aggregate) error {
	data := pterm.TableData{{"Picks", "Games", "Wins", "Win rate", "Avg profit", "Total profit"}}
	for _, a := range aggs {
		data = append(data, []string{
			strconv.Itoa(a.SafePickCount),
			strconv.Itoa(a.OccurrenceCount),
			strconv.Itoa(a.WinCount),
			pct(a.WinRate()),
			f4(a.AvgProfit),
			signed(a.TotalProfit),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func renderStrategies(cmp strategy.Comparison) error {
	data := pterm.TableData{{"Strategy", "Games", "Win rate", "Avg profit", "Total", "Avg picks", "Sharpe-like", "Verdict"}}
	for _, g := range cmp.Groups {
		verdict := pterm.LightGreen(string(g.Recommendation))
		if g.Recommendation != strategy.Recommended {
			verdict = pterm.LightRed(string(g.Recommendation))
		}
		data = append(data, []string{
			g.Label,
			strconv.Itoa(g.Rounds),
			pct(g.WinRate),
			f4(g.AvgProfit),
			signed(g.TotalProfit),
			fmt.Sprintf("%.1f", g.AvgSafePicks),
			ratio(g.SharpeLike),
			verdict,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func renderDrift(drift []pattern.Drift) error {
	data := pterm.TableData{{"Picks", "Aggregated", "Stored"}}
	for _, d := range drift {
		data = append(data, []string{
			strconv.Itoa(d.SafePickCount),
			strconv.Itoa(d.Aggregated),
			strconv.Itoa(d.Stored),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
