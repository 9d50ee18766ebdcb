package register

import "errors"

var (
	// ErrInvalidDay is returned when a day start is zero.
	ErrInvalidDay = errors.New("register: invalid day")
	// ErrFutureDay is returned when an operation targets a future date.
	ErrFutureDay = errors.New("register: day is in the future")
	// ErrInvalidChannel is returned for an unknown payment channel.
	ErrInvalidChannel = errors.New("register: invalid payment channel")
	// ErrInvalidCategory is returned for an unknown service category.
	ErrInvalidCategory = errors.New("register: invalid service category")
	// ErrNegativeAmount is returned when a line item or fee amount is negative.
	ErrNegativeAmount = errors.New("register: negative amount")
	// ErrEmptyDescription is returned when a line item has no description.
	ErrEmptyDescription = errors.New("register: empty description")
	// ErrEmptyReason is returned when a cancellation carries no reason.
	ErrEmptyReason = errors.New("register: cancellation requires a reason")
	// ErrEmptyActor is returned when a cancellation carries no acting user.
	ErrEmptyActor = errors.New("register: cancellation requires an acting user")
	// ErrAlreadyCancelled is returned when cancelling a cancelled consultation.
	ErrAlreadyCancelled = errors.New("register: consultation already cancelled")
	// ErrCancelled is returned when mutating a cancelled consultation.
	ErrCancelled = errors.New("register: consultation is cancelled")
	// ErrAdjunctFeeOnRegular is returned when attaching an adjunct fee to a
	// regular consultation.
	ErrAdjunctFeeOnRegular = errors.New("register: adjunct fees are mobile-only")
	// ErrSequenceOnMobile is returned when assigning a sequence number to a
	// mobile consultation.
	ErrSequenceOnMobile = errors.New("register: mobile consultations are unnumbered")
	// ErrInvalidSequence is returned for a non-positive sequence number.
	ErrInvalidSequence = errors.New("register: sequence number must be positive")
	// ErrNotFound is returned when a consultation does not exist.
	ErrNotFound = errors.New("register: consultation not found")
	// ErrItemNotFound is returned when a line item does not exist.
	ErrItemNotFound = errors.New("register: line item not found")
	// ErrNilConsultation is returned when persisting a nil aggregate.
	ErrNilConsultation = errors.New("register: nil consultation")
)
