package game

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the result of a single round.
type Outcome string

const (
	Win  Outcome = "win"
	Loss Outcome = "loss"
)

// ParseOutcome accepts "win"/"loss" in any case.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(strings.ToLower(strings.TrimSpace(s))) {
	case Win:
		return Win, nil
	case Loss:
		return Loss, nil
	}
	return "", &ValidationError{Field: "outcome", Reason: fmt.Sprintf("unknown outcome %q", s)}
}

func (o Outcome) String() string { return string(o) }

// Candidate is a completed round as entered by the operator, before the store
// assigns a sequence number and settles it against the running balance.
type Candidate struct {
	SessionID     string
	BetAmount     float64
	Strategy      string
	Outcome       Outcome
	SafePickCount int
	Multiplier    float64

	// Carried through unchanged.
	BombPositions string
	Notes         string
	PlayDuration  int // seconds
}

// Round is one stored game outcome with all derived fields populated.
type Round struct {
	ID             int64
	SessionID      string
	SequenceNumber int
	BetAmount      float64
	Strategy       string
	Outcome        Outcome
	SafePickCount  int
	Multiplier     float64
	Winnings       float64
	Profit         float64
	EndingBalance  float64
	BombPositions  string
	Notes          string
	PlayDuration   int
	Timestamp      time.Time
}

// Won reports whether the round was a win.
func (r Round) Won() bool { return r.Outcome == Win }
