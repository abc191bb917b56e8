// Package report renders the plain-text analysis report of a session.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"bomblog/internal/pattern"
	"bomblog/internal/performance"
	"bomblog/internal/strategy"
)

const unit = "Sigils"

// Input is everything a report shows. Strategies and Patterns may be empty.
type Input struct {
	SessionID  string
	Generated  time.Time
	Balance    float64
	Summary    *performance.Summary
	Strategies strategy.Comparison
	Patterns   []pattern.Aggregate
}

// Write renders the report to w.
func Write(w io.Writer, in Input) error {
	p := &printer{w: w}

	p.rule("=", 70)
	p.line("BOMB GAME ANALYTICS REPORT")
	p.rule("=", 70)
	p.line("")
	p.line("Session: %s", in.SessionID)
	p.line("Report Date: %s", in.Generated.Format("2006-01-02 15:04:05"))
	p.line("Current Balance: %.2f %s", in.Balance, unit)
	p.line("")

	s := in.Summary
	if s == nil || s.Total == 0 {
		p.line("No rounds recorded.")
		return p.err
	}

	p.section("PERFORMANCE SUMMARY")
	p.line("Total Games: %d", s.Total)
	p.line("Wins: %d (%.1f%%)", s.Wins, s.WinRate*100)
	p.line("Losses: %d", s.Losses)
	p.line("Net Profit: %+.2f %s", s.NetProfit, unit)
	p.line("Total Amount Bet: %.2f %s", s.TotalBet, unit)
	p.line("Return on Investment: %+.1f%%", s.ROI*100)
	p.line("Average Profit/Game: %.4f %s", s.AvgProfit, unit)
	p.line("Best Win: %+.2f %s", s.MaxProfit, unit)
	p.line("Worst Loss: %+.2f %s", s.MinProfit, unit)
	p.line("Volatility (Std Dev): %.4f %s", s.StdProfit, unit)
	p.line("Average Safe Picks: %.2f", s.AvgSafePicks)
	p.line("Balance Range: %.2f to %.2f %s", s.MinBalance, s.MaxBalance, unit)
	p.line("Current Streak: %d %s", s.Streak.Length, s.Streak.Outcome)
	p.line("")

	p.section("RISK METRICS")
	p.line("Sharpe-like Ratio: %.3f", s.Risk.SharpeLike)
	p.line("Profit Factor: %s", ratio(s.Risk.ProfitFactor))
	p.line("Risk of Ruin (proxy): %.1f%%", s.Risk.RiskOfRuinProxy*100)
	p.line("Recovery Factor: %s", ratio(s.Risk.RecoveryFactor))
	p.line("Expectancy per Unit Bet: %.4f", s.Risk.Expectancy)
	p.line("Maximum Drawdown: %.1f%%", s.Risk.MaxDrawdown*100)
	p.line("")

	p.section("PERFORMANCE BANDS")
	p.line("Excellent: Profit > %.2f", s.AvgProfit+s.StdProfit)
	p.line("Average: %.2f < Profit < %.2f", s.AvgProfit-s.StdProfit, s.AvgProfit+s.StdProfit)
	p.line("Poor: Profit < %.2f", s.AvgProfit-s.StdProfit)
	p.line("")

	p.section("RECOMMENDATIONS")
	for _, a := range Advise(s) {
		mark := "!"
		if a.OK {
			mark = "+"
		}
		p.line("[%s] %s", mark, a.Text)
	}
	p.line("")

	if len(in.Strategies.Groups) > 0 {
		p.section("STRATEGY ANALYSIS")
		for _, g := range in.Strategies.Groups {
			p.line("%s: %d games, win rate %.1f%%, avg profit %.4f, total %+.2f, avg picks %.1f (%s)",
				g.Label, g.Rounds, g.WinRate*100, g.AvgProfit, g.TotalProfit, g.AvgSafePicks, g.Recommendation)
		}
		if in.Strategies.Best != nil {
			p.line("Best Performing Strategy: %s", in.Strategies.Best.Label)
		}
		p.line("")
	}

	if len(in.Patterns) > 0 {
		p.section("SAFE PICK PATTERNS")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Picks\tGames\tWins\tWin Rate\tAvg Profit\tTotal Profit")
		for _, a := range in.Patterns {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%.1f%%\t%.4f\t%+.2f\n",
				a.SafePickCount, a.OccurrenceCount, a.WinCount, a.WinRate()*100, a.AvgProfit, a.TotalProfit)
		}
		if p.err == nil {
			p.err = tw.Flush()
		}
	}
	return p.err
}

func ratio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}

// printer remembers the first write error so Write can check it once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) rule(ch string, n int) {
	p.line("%s", strings.Repeat(ch, n))
}

func (p *printer) section(title string) {
	p.line("%s", title)
	p.rule("-", 50)
}
