package register

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists consultations. Sequence allocation, the cancellation
// shift and the repair renumbering are repository operations because each
// must execute atomically against the backing store, serialized per day.
type Repository interface {
	// CreateWithSequence inserts the consultation, assigning the next free
	// sequence number for regular consultations. Atomic per day.
	CreateWithSequence(ctx context.Context, consultation *Consultation) error

	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)

	// ListByDay returns all consultations for a day in intake order,
	// cancelled ones included.
	ListByDay(ctx context.Context, dayStart time.Time) ([]*Consultation, error)

	// Save persists line-item and fee mutations.
	Save(ctx context.Context, consultation *Consultation) error

	// CancelAndShift cancels the consultation and, when it held sequence k,
	// decrements every later sequence on the same day by one in a single
	// atomic operation. Returns the updated consultation.
	CancelAndShift(ctx context.Context, id uuid.UUID, reason, actor string, at time.Time) (*Consultation, error)

	// RenumberAll reassigns 1..N to the day's non-cancelled regular
	// consultations in intake order. Idempotent. Returns the number of
	// consultations whose sequence changed.
	RenumberAll(ctx context.Context, dayStart time.Time) (int, error)
}
