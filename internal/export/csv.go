// Package export writes stored rounds as CSV. The column layout is also the
// import format read by the replay package.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strconv"
	"time"

	"bomblog/internal/game"
)

// Header lists the CSV columns in order.
var Header = []string{
	"session_id",
	"sequence_number",
	"timestamp",
	"bet_amount",
	"strategy",
	"outcome",
	"safe_pick_count",
	"multiplier",
	"winnings",
	"profit",
	"ending_balance",
	"bomb_positions",
	"notes",
	"play_duration",
}

// AllRoundsFile is the file name used when exporting every session.
const AllRoundsFile = "all_game_results.csv"

// Path returns the export file for a session, or for all rounds when
// sessionID is empty.
func Path(dir, sessionID string) string {
	if sessionID == "" {
		return filepath.Join(dir, AllRoundsFile)
	}
	return filepath.Join(dir, sessionID+".csv")
}

// Rounds writes a header row followed by one row per round and returns the
// number of rounds written.
func Rounds(w io.Writer, rounds iter.Seq2[game.Round, error]) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}

	n := 0
	for r, err := range rounds {
		if err != nil {
			return n, fmt.Errorf("reading rounds: %w", err)
		}
		if err := cw.Write(record(r)); err != nil {
			return n, err
		}
		n++
	}

	cw.Flush()
	return n, cw.Error()
}

func record(r game.Round) []string {
	return []string{
		r.SessionID,
		strconv.Itoa(r.SequenceNumber),
		r.Timestamp.Format(time.RFC3339Nano),
		formatFloat(r.BetAmount),
		r.Strategy,
		r.Outcome.String(),
		strconv.Itoa(r.SafePickCount),
		formatFloat(r.Multiplier),
		formatFloat(r.Winnings),
		formatFloat(r.Profit),
		formatFloat(r.EndingBalance),
		r.BombPositions,
		r.Notes,
		strconv.Itoa(r.PlayDuration),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
