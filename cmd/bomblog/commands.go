package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"

	"bomblog/internal/db"
	"bomblog/internal/export"
	"bomblog/internal/game"
	"bomblog/internal/performance"
	"bomblog/internal/replay"
	"bomblog/internal/report"
	"bomblog/internal/session"
	"bomblog/internal/strategy"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"start":      runStart,
	"log":        runLog,
	"preview":    runPreview,
	"stats":      runStats,
	"recent":     runRecent,
	"patterns":   runPatterns,
	"strategies": runStrategies,
	"report":     runReport,
	"export":     runExport,
	"import":     runImport,
	"backup":     runBackup,
	"verify":     runVerify,
	"sessions":   runSessions,
}

func runStart(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	balance := fs.Float64("balance", a.cfg.Session.OpeningBalance, "Opening balance")
	id := fs.String("id", "", "Session identifier (default derived from the start time)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	now := a.now()
	if *id == "" {
		*id = session.NewID(now)
	}
	s, err := a.registry.Start(ctx, *id, *balance, now)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Session %s started with %.2f", s.ID, s.OpeningBalance)
	return nil
}

// roundFlags are shared by log and preview.
type roundFlags struct {
	session    *string
	bet        *float64
	strategy   *string
	outcome    *string
	picks      *int
	multiplier *float64
}

func addRoundFlags(fs *flag.FlagSet, a *app) roundFlags {
	return roundFlags{
		session:    fs.String("session", "", "Session identifier (default latest)"),
		bet:        fs.Float64("bet", a.cfg.Session.DefaultBet, "Bet amount"),
		strategy:   fs.String("strategy", a.cfg.Session.DefaultStrategy, "Strategy label"),
		outcome:    fs.String("outcome", "", "win or loss"),
		picks:      fs.Int("picks", 0, "Number of safe picks"),
		multiplier: fs.Float64("multiplier", 0, "Cash-out multiplier (default from the multiplier table)"),
	}
}

func (f roundFlags) candidate(a *app) (game.Candidate, error) {
	outcome, err := game.ParseOutcome(*f.outcome)
	if err != nil {
		return game.Candidate{}, err
	}
	c := game.Candidate{
		BetAmount:     *f.bet,
		Strategy:      *f.strategy,
		Outcome:       outcome,
		SafePickCount: *f.picks,
		Multiplier:    *f.multiplier,
	}
	if c.Outcome == game.Win && c.Multiplier == 0 {
		m, ok := a.cfg.Game.Table().For(c.SafePickCount)
		if !ok {
			return game.Candidate{}, &game.ValidationError{
				Field:  "multiplier",
				Reason: fmt.Sprintf("no table entry for %d safe picks, pass -multiplier", c.SafePickCount),
			}
		}
		c.Multiplier = m
	}
	return c, nil
}

func runLog(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	rf := addRoundFlags(fs, a)
	bombs := fs.String("bombs", "", "Bomb positions, free text")
	notes := fs.String("notes", "", "Notes")
	duration := fs.Int("duration", 0, "Play duration in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.resolveSession(ctx, *rf.session)
	if err != nil {
		return err
	}
	c, err := rf.candidate(a)
	if err != nil {
		return err
	}
	c.BombPositions, c.Notes, c.PlayDuration = *bombs, *notes, *duration

	r, err := a.controller.Log(ctx, s.ID, c)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Round %d logged: %s, profit %+.4f, balance %.4f",
		r.SequenceNumber, r.Outcome, r.Profit, r.EndingBalance)
	return nil
}

func runPreview(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	rf := addRoundFlags(fs, a)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.resolveSession(ctx, *rf.session)
	if err != nil {
		return err
	}
	c, err := rf.candidate(a)
	if err != nil {
		return err
	}
	c.SessionID = s.ID

	balance, err := a.controller.Balance(ctx, s.ID)
	if err != nil {
		return err
	}
	p, err := game.PreviewRound(c, balance)
	if err != nil {
		return err
	}
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Winnings", "Profit", "New Balance", "ROI"},
		{f4(p.Winnings), signed(p.Profit), f4(p.EndingBalance), pct(p.ROI)},
	}).Render()
}

// scopeFlags selects one session or all rounds.
func scopeFlags(fs *flag.FlagSet) (id *string, all *bool) {
	return fs.String("session", "", "Session identifier (default latest)"),
		fs.Bool("all", false, "Use every stored round")
}

func runStats(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	id, all := scopeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		sum *performance.Summary
		err error
	)
	if *all {
		sum, err = a.tracker.Overall(ctx)
	} else {
		var s session.Session
		if s, err = a.resolveSession(ctx, *id); err != nil {
			return err
		}
		sum, err = a.tracker.Session(ctx, s.ID)
	}
	if err != nil {
		return err
	}

	performance.LogReport(a.log, sum)
	return renderSummary(sum)
}

func runRecent(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("recent", flag.ContinueOnError)
	id := fs.String("session", "", "Session identifier (default latest)")
	n := fs.Int("n", 10, "Number of rounds")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.resolveSession(ctx, *id)
	if err != nil {
		return err
	}
	rounds, err := a.rounds.Recent(ctx, s.ID, *n)
	if err != nil {
		return err
	}
	if len(rounds) == 0 {
		pterm.Info.Printfln("Session %s has no rounds yet", s.ID)
		return nil
	}
	return renderRounds(rounds)
}

func runPatterns(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("patterns", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	aggs, err := a.patterns.Aggregates(ctx)
	if err != nil {
		return err
	}
	if len(aggs) == 0 {
		pterm.Info.Println("No patterns recorded yet")
		return nil
	}
	return renderPatterns(aggs)
}

func runStrategies(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("strategies", flag.ContinueOnError)
	id, all := scopeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		cmp strategy.Comparison
		err error
	)
	if *all {
		cmp, err = a.analyzer.Overall(ctx)
	} else {
		var s session.Session
		if s, err = a.resolveSession(ctx, *id); err != nil {
			return err
		}
		cmp, err = a.analyzer.Session(ctx, s.ID)
	}
	if err != nil {
		return err
	}
	if cmp.Best == nil {
		pterm.Info.Println("No rounds recorded yet")
		return nil
	}

	if err := renderStrategies(cmp); err != nil {
		return err
	}
	pterm.Info.Printfln("Best performing strategy: %s", cmp.Best.Label)
	return nil
}

func runReport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	id := fs.String("session", "", "Session identifier (default latest)")
	out := fs.String("out", "", "Write the report to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.resolveSession(ctx, *id)
	if err != nil {
		return err
	}
	sum, err := a.tracker.Session(ctx, s.ID)
	if err != nil {
		return err
	}
	cmp, err := a.analyzer.Session(ctx, s.ID)
	if err != nil {
		return err
	}
	aggs, err := a.patterns.Aggregates(ctx)
	if err != nil {
		return err
	}
	balance, err := a.controller.Balance(ctx, s.ID)
	if err != nil {
		return err
	}

	in := report.Input{
		SessionID:  s.ID,
		Generated:  a.now(),
		Balance:    balance,
		Summary:    sum,
		Strategies: cmp,
		Patterns:   aggs,
	}
	if *out == "" {
		return report.Write(os.Stdout, in)
	}

	f, err := createFile(*out)
	if err != nil {
		return err
	}
	if err := report.Write(f, in); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	pterm.Success.Printfln("Report saved to %s", *out)
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	id, all := scopeFlags(fs)
	dir := fs.String("dir", a.cfg.Paths.ExportDir, "Output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sessionID := ""
	if !*all {
		s, err := a.resolveSession(ctx, *id)
		if err != nil {
			return err
		}
		sessionID = s.ID
	}

	path := export.Path(*dir, sessionID)
	f, err := createFile(path)
	if err != nil {
		return err
	}

	rounds := a.rounds.All(ctx)
	if sessionID != "" {
		rounds = a.rounds.ForSession(ctx, sessionID)
	}
	n, err := export.Rounds(f, rounds)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	pterm.Success.Printfln("Exported %d rounds to %s", n, path)
	return nil
}

var decoders = map[string]func(io.Reader) ([]replay.Entry, error){
	"json": replay.DecodeJSON,
	"csv":  replay.DecodeCSV,
}

func runImport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	format := fs.String("format", "", "json or csv (default from the file extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import takes exactly one file")
	}
	path := fs.Arg(0)

	if *format == "" {
		*format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	decode, ok := decoders[*format]
	if !ok {
		return fmt.Errorf("unsupported import format %q", *format)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := decode(f)
	if err != nil {
		return err
	}

	runner := replay.NewRunner(a.txManager, a.registry, a.controller,
		a.cfg.Session.OpeningBalance, a.cfg.Session.DefaultStrategy, a.log)
	res, err := runner.Run(ctx, entries)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Imported %d rounds into %d sessions (net profit %+.4f)",
		res.Rounds, len(res.Sessions), res.NetProfit)
	return nil
}

func runBackup(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	dir := fs.String("dir", a.cfg.Paths.BackupDir, "Backup directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := db.Backup(ctx, a.db, *dir, a.now())
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Database backed up to %s", path)
	return nil
}

func runVerify(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	drift, err := a.patterns.Verify(ctx, a.rounds)
	if err != nil {
		return err
	}
	if len(drift) == 0 {
		pterm.Success.Println("Pattern aggregates match stored rounds")
		return nil
	}
	if err := renderDrift(drift); err != nil {
		return err
	}
	return fmt.Errorf("%d pattern buckets disagree with stored rounds: %w", len(drift), game.ErrConsistency)
}

func runSessions(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	sessions, err := a.registry.List(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		pterm.Info.Println("No sessions yet")
		return nil
	}

	data := pterm.TableData{{"Session", "Started", "Opening", "Balance"}}
	for _, s := range sessions {
		balance, err := a.controller.Balance(ctx, s.ID)
		if err != nil {
			return err
		}
		data = append(data, []string{
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			f4(s.OpeningBalance),
			f4(balance),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	return os.Create(path)
}
