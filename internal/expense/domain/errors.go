package expense

import "errors"

var (
	// ErrInvalidDay is returned when a day start is zero.
	ErrInvalidDay = errors.New("expense: invalid day")
	// ErrEmptyConcept is returned when an expense has no concept.
	ErrEmptyConcept = errors.New("expense: empty concept")
	// ErrNonPositiveAmount is returned for a zero or negative expense.
	ErrNonPositiveAmount = errors.New("expense: amount must be positive")
	// ErrNotFound is returned when an entry does not exist.
	ErrNotFound = errors.New("expense: entry not found")
	// ErrAlreadyReversed is returned when reversing twice.
	ErrAlreadyReversed = errors.New("expense: entry already reversed")
	// ErrReversalOfReversal is returned when reversing a reversal entry.
	ErrReversalOfReversal = errors.New("expense: cannot reverse a reversal")
)
