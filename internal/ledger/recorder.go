// Package ledger submits rounds. A submission is one unit of work: the round
// insert and the pattern aggregate update commit together or not at all.
package ledger

import (
	"context"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/rs/zerolog"

	"bomblog/internal/game"
)

// RoundAppender persists a settled round.
type RoundAppender interface {
	Append(ctx context.Context, c game.Candidate, balance float64) (game.Round, error)
}

// Observer folds a stored round into the pattern aggregates.
type Observer interface {
	Observe(ctx context.Context, safePickCount int, outcome game.Outcome, profit float64) error
}

// Recorder runs round submissions.
type Recorder struct {
	txManager trm.Manager
	rounds    RoundAppender
	patterns  Observer
	log       zerolog.Logger
}

func NewRecorder(txManager trm.Manager, rounds RoundAppender, patterns Observer, log zerolog.Logger) *Recorder {
	return &Recorder{
		txManager: txManager,
		rounds:    rounds,
		patterns:  patterns,
		log:       log.With().Str("component", "recorder").Logger(),
	}
}

// Record validates the candidate, then appends it against balance and updates
// its pattern aggregate in one transaction. Invalid input returns a
// *game.ValidationError before anything is written; any failure after that
// rolls both writes back and returns a *game.ConsistencyError.
//
// The returned round's EndingBalance is the caller's new current balance.
func (r *Recorder) Record(ctx context.Context, c game.Candidate, balance float64) (game.Round, error) {
	if err := game.Validate(c); err != nil {
		return game.Round{}, err
	}

	var round game.Round
	err := r.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		round, err = r.rounds.Append(ctx, c, balance)
		if err != nil {
			return err
		}
		return r.patterns.Observe(ctx, round.SafePickCount, round.Outcome, round.Profit)
	})
	if err != nil {
		r.log.Error().Err(err).Str("session", c.SessionID).Msg("round submission rolled back")
		return game.Round{}, &game.ConsistencyError{SessionID: c.SessionID, Err: err}
	}

	r.log.Info().
		Str("session", round.SessionID).
		Int("round", round.SequenceNumber).
		Str("outcome", round.Outcome.String()).
		Int("safe_picks", round.SafePickCount).
		Float64("profit", round.Profit).
		Float64("balance", round.EndingBalance).
		Msg("round recorded")

	return round, nil
}
