package session

import (
	"context"

	"github.com/avito-tech/go-transaction-manager/trm/v2"

	"bomblog/internal/game"
)

// Recorder submits one round against a balance.
type Recorder interface {
	Record(ctx context.Context, c game.Candidate, balance float64) (game.Round, error)
}

// LastRounder finds the latest round of a session.
type LastRounder interface {
	Last(ctx context.Context, sessionID string) (game.Round, bool, error)
}

// Controller is the outer session controller: it derives the current balance
// from stored state before each submission.
type Controller struct {
	txManager trm.Manager
	registry  *Registry
	rounds    LastRounder
	recorder  Recorder
}

func NewController(txManager trm.Manager, registry *Registry, rounds LastRounder, recorder Recorder) *Controller {
	return &Controller{
		txManager: txManager,
		registry:  registry,
		rounds:    rounds,
		recorder:  recorder,
	}
}

// Balance is the ending balance of the session's latest round, or its opening
// balance if it has none.
func (c *Controller) Balance(ctx context.Context, sessionID string) (float64, error) {
	s, err := c.registry.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	last, ok, err := c.rounds.Last(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return s.OpeningBalance, nil
	}
	return last.EndingBalance, nil
}

// Log records a round for a started session against its current balance.
// Reading the balance and recording share one transaction.
func (c *Controller) Log(ctx context.Context, sessionID string, cand game.Candidate) (game.Round, error) {
	cand.SessionID = sessionID
	if err := game.Validate(cand); err != nil {
		return game.Round{}, err
	}

	var round game.Round
	err := c.txManager.Do(ctx, func(ctx context.Context) error {
		balance, err := c.Balance(ctx, sessionID)
		if err != nil {
			return err
		}
		round, err = c.recorder.Record(ctx, cand, balance)
		return err
	})
	if err != nil {
		return game.Round{}, err
	}
	return round, nil
}
