package replay

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bomblog/internal/game"
)

// Entry is one imported round. Derived fields (winnings, profit, balance,
// sequence number) are never read from the input; the importer recomputes
// them by replaying the entry.
type Entry struct {
	SessionID     string  `json:"session_id"`
	BetAmount     float64 `json:"bet_amount"`
	Strategy      string  `json:"strategy"`
	Outcome       string  `json:"outcome"`
	SafePickCount int     `json:"safe_pick_count"`
	Multiplier    float64 `json:"multiplier"`
	BombPositions string  `json:"bomb_positions,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	PlayDuration  int     `json:"play_duration,omitempty"`
}

// Candidate validates the entry and converts it for submission.
func (e Entry) Candidate() (game.Candidate, error) {
	if e.SessionID == "" {
		return game.Candidate{}, &game.ValidationError{Field: "session_id", Reason: "must not be empty"}
	}
	outcome, err := game.ParseOutcome(e.Outcome)
	if err != nil {
		return game.Candidate{}, err
	}
	c := game.Candidate{
		SessionID:     e.SessionID,
		BetAmount:     e.BetAmount,
		Strategy:      e.Strategy,
		Outcome:       outcome,
		SafePickCount: e.SafePickCount,
		Multiplier:    e.Multiplier,
		BombPositions: e.BombPositions,
		Notes:         e.Notes,
		PlayDuration:  e.PlayDuration,
	}
	if err := game.Validate(c); err != nil {
		return game.Candidate{}, err
	}
	return c, nil
}

// EntryError reports the zero-based index of the entry that failed.
type EntryError struct {
	Index int
	Err   error
}

func (e *EntryError) Error() string { return fmt.Sprintf("entry %d: %v", e.Index, e.Err) }

func (e *EntryError) Unwrap() error { return e.Err }

// DecodeJSON reads a JSON array of entries.
func DecodeJSON(r io.Reader) ([]Entry, error) {
	var entries []Entry
	dec := json.NewDecoder(r)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	return entries, nil
}

var requiredColumns = []string{"session_id", "bet_amount", "outcome"}

// DecodeCSV reads entries from CSV with a header row. Columns are matched by
// name, so files written by the export package import as-is; unknown columns
// are ignored.
func DecodeCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("csv header is missing column %q", name)
		}
	}

	var entries []Entry
	for i := 0; ; i++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, &EntryError{Index: i, Err: err}
		}
		e, err := entryFromRecord(cols, rec)
		if err != nil {
			return nil, &EntryError{Index: i, Err: err}
		}
		entries = append(entries, e)
	}
}

func entryFromRecord(cols map[string]int, rec []string) (Entry, error) {
	field := func(name string) string {
		if i, ok := cols[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	e := Entry{
		SessionID:     field("session_id"),
		Strategy:      field("strategy"),
		Outcome:       field("outcome"),
		BombPositions: field("bomb_positions"),
		Notes:         field("notes"),
	}

	var err error
	if e.BetAmount, err = parseFloat("bet_amount", field("bet_amount")); err != nil {
		return Entry{}, err
	}
	if e.Multiplier, err = parseFloat("multiplier", field("multiplier")); err != nil {
		return Entry{}, err
	}
	if e.SafePickCount, err = parseInt("safe_pick_count", field("safe_pick_count")); err != nil {
		return Entry{}, err
	}
	if e.PlayDuration, err = parseInt("play_duration", field("play_duration")); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Empty numeric cells read as zero.
func parseFloat(name, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &game.ValidationError{Field: name, Reason: fmt.Sprintf("not a number: %q", s)}
	}
	return v, nil
}

func parseInt(name, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, &game.ValidationError{Field: name, Reason: fmt.Sprintf("not an integer: %q", s)}
	}
	return v, nil
}
