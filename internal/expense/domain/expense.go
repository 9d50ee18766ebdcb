package expense

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is one line of the day's operating-expense ledger. The ledger is
// append-only: an entry is never updated or deleted. Undoing an expense
// appends a reversal entry with the negated amount pointing back at the
// original, so Sum nets the pair out while List keeps both visible.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	DayStart   time.Time       `json:"day"`
	Concept    string          `json:"concept"`
	Amount     decimal.Decimal `json:"amount"`
	ReversalOf *uuid.UUID      `json:"reversal_of,omitempty"`
	CreatedBy  string          `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

// IsReversal reports whether the entry negates another one.
func (e Entry) IsReversal() bool { return e.ReversalOf != nil }

// Repository persists expense entries.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// ListByDay returns the day's entries, most recently created first.
	ListByDay(ctx context.Context, dayStart time.Time) ([]Entry, error)
	// SumByDay nets all entries for the day, reversals included.
	SumByDay(ctx context.Context, dayStart time.Time) (decimal.Decimal, error)
	// HasReversal reports whether a reversal already references the entry.
	HasReversal(ctx context.Context, id uuid.UUID) (bool, error)
}
