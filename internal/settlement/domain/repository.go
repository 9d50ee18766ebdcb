package settlement

import (
	"context"
	"time"
)

// Repository persists settlement records. One record per day is active;
// history is kept through versions.
type Repository interface {
	// FindLatestActive returns the newest closed (non-voided) record for
	// the day, or nil.
	FindLatestActive(ctx context.Context, dayStart time.Time) (*Record, error)
	// NextVersion returns the next version for the day, starting at 1.
	NextVersion(ctx context.Context, dayStart time.Time) (int, error)
	Create(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	// ListByDay returns all versions for a day, oldest first.
	ListByDay(ctx context.Context, dayStart time.Time) ([]Record, error)
	MarkVoided(ctx context.Context, id, reason, actor string, at time.Time) error
}
