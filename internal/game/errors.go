package game

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrConsistency matches any *ConsistencyError via errors.Is.
	ErrConsistency = errors.New("round and aggregate write aborted")
	// ErrNotFound is returned by lookups of sessions that were never started.
	ErrNotFound = errors.New("not found")
)

// ValidationError rejects operator input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConsistencyError means the round insert and the aggregate update could not
// be committed together. The transaction was rolled back.
type ConsistencyError struct {
	SessionID string
	Err       error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("recording round for session %s: %v", e.SessionID, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

func (e *ConsistencyError) Is(target error) bool { return target == ErrConsistency }
