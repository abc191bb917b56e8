// Package replay imports rounds from files by replaying them through the
// session controller, so imported rounds are settled, sequenced and
// aggregated exactly like rounds logged by hand.
package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/rs/zerolog"

	"bomblog/internal/game"
	"bomblog/internal/session"
)

// SessionStarter registers sessions; starting a known session is a no-op.
type SessionStarter interface {
	Start(ctx context.Context, id string, openingBalance float64, startedAt time.Time) (session.Session, error)
}

// RoundLogger records a round against a session's current balance.
type RoundLogger interface {
	Log(ctx context.Context, sessionID string, c game.Candidate) (game.Round, error)
}

// Runner replays imported entries.
type Runner struct {
	txManager       trm.Manager
	sessions        SessionStarter
	rounds          RoundLogger
	openingBalance  float64
	defaultStrategy string
	now             func() time.Time
	log             zerolog.Logger
}

func NewRunner(txManager trm.Manager, sessions SessionStarter, rounds RoundLogger, openingBalance float64, defaultStrategy string, log zerolog.Logger) *Runner {
	return &Runner{
		txManager:       txManager,
		sessions:        sessions,
		rounds:          rounds,
		openingBalance:  openingBalance,
		defaultStrategy: defaultStrategy,
		now:             time.Now,
		log:             log.With().Str("component", "replay").Logger(),
	}
}

// Result describes a finished import.
type Result struct {
	Rounds    int
	Sessions  []string // in first-appearance order
	NetProfit float64
}

// Run validates every entry, then replays them in order inside one
// transaction: either the whole file is imported or nothing is. Sessions not
// yet started are started with the configured opening balance.
func (r *Runner) Run(ctx context.Context, entries []Entry) (Result, error) {
	candidates := make([]game.Candidate, len(entries))
	for i, e := range entries {
		if e.Strategy == "" {
			e.Strategy = r.defaultStrategy
		}
		c, err := e.Candidate()
		if err != nil {
			return Result{}, &EntryError{Index: i, Err: err}
		}
		candidates[i] = c
	}

	var res Result
	err := r.txManager.Do(ctx, func(ctx context.Context) error {
		res = Result{}
		started := make(map[string]bool)
		for i, c := range candidates {
			if !started[c.SessionID] {
				if _, err := r.sessions.Start(ctx, c.SessionID, r.openingBalance, r.now()); err != nil {
					return &EntryError{Index: i, Err: err}
				}
				started[c.SessionID] = true
				res.Sessions = append(res.Sessions, c.SessionID)
			}

			round, err := r.rounds.Log(ctx, c.SessionID, c)
			if err != nil {
				return &EntryError{Index: i, Err: err}
			}
			res.Rounds++
			res.NetProfit += round.Profit
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("importing rounds: %w", err)
	}

	r.log.Info().
		Int("rounds", res.Rounds).
		Int("sessions", len(res.Sessions)).
		Float64("net_profit", res.NetProfit).
		Msg("=== IMPORT RESULTS ===")
	return res, nil
}
