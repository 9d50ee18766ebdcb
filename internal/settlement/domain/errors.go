package settlement

import "errors"

var (
	// ErrInvalidDay is returned when a day start is zero.
	ErrInvalidDay = errors.New("settlement: invalid day")
	// ErrFutureDay is returned when closing a future date.
	ErrFutureDay = errors.New("settlement: day is in the future")
	// ErrMissingCounted is returned when a counted amount is absent on close.
	ErrMissingCounted = errors.New("settlement: counted amount missing")
	// ErrNegativeCounted is returned when a counted amount is negative.
	ErrNegativeCounted = errors.New("settlement: counted amount negative")
	// ErrEmptyClosedBy is returned when the closing user is missing.
	ErrEmptyClosedBy = errors.New("settlement: closing user required")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("settlement: record not found")
	// ErrAlreadyClosed is returned when an active record exists for the day
	// and amend was not requested.
	ErrAlreadyClosed = errors.New("settlement: day already closed")
	// ErrVoided is returned when operating on a voided record.
	ErrVoided = errors.New("settlement: record is voided")
	// ErrEmptyVoidReason is returned when voiding without a reason.
	ErrEmptyVoidReason = errors.New("settlement: void requires a reason")
	// ErrNilRecord is returned when persisting a nil record.
	ErrNilRecord = errors.New("settlement: nil record")
)
