package registeradapter

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	register "clinic-register/internal/register/domain"
)

// DayRevenueReader aggregates consultation revenue per payment channel
// straight from the store with one grouped query.
type DayRevenueReader struct {
	db *sql.DB
}

// NewDayRevenueReader constructs a reader.
func NewDayRevenueReader(db *sql.DB) *DayRevenueReader {
	return &DayRevenueReader{db: db}
}

// ComputeTotals returns per-channel {count, sum} over the day's
// non-cancelled consultations of one category. Line items and adjunct fees
// both contribute to the sum.
func (r *DayRevenueReader) ComputeTotals(ctx context.Context, dayStart time.Time, category register.ServiceCategory) (register.Breakdown, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("revenue reader: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT c.channel,
	COUNT(*),
	COUNT(*) FILTER (WHERE totals.total = 0),
	COALESCE(SUM(totals.total), 0)
FROM consultations c
CROSS JOIN LATERAL (
	SELECT COALESCE((SELECT SUM(i.amount) FROM consultation_items i WHERE i.consultation_id = c.id), 0)
	     + COALESCE((SELECT SUM(f.amount) FROM consultation_fees f WHERE f.consultation_id = c.id), 0) AS total
) totals
WHERE c.day_start = $1 AND c.category = $2 AND c.cancelled_at IS NULL
GROUP BY c.channel`, register.Day(dayStart), string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := register.NewBreakdown()
	for rows.Next() {
		var channel string
		var count, zeroCount int
		var sum decimal.Decimal
		if err := rows.Scan(&channel, &count, &zeroCount, &sum); err != nil {
			return nil, err
		}
		parsed, ok := register.ParseChannel(channel)
		if !ok {
			return nil, register.ErrInvalidChannel
		}
		breakdown[parsed] = register.ChannelTotal{Count: count, ZeroTotalCount: zeroCount, Sum: sum}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return breakdown, nil
}

// RepositoryRevenueReader aggregates through the register repository.
// Used where no direct store access exists (tests, in-memory wiring).
type RepositoryRevenueReader struct {
	repo register.Repository
}

// NewRepositoryRevenueReader constructs a reader.
func NewRepositoryRevenueReader(repo register.Repository) *RepositoryRevenueReader {
	return &RepositoryRevenueReader{repo: repo}
}

// ComputeTotals lists the day and aggregates in memory.
func (r *RepositoryRevenueReader) ComputeTotals(ctx context.Context, dayStart time.Time, category register.ServiceCategory) (register.Breakdown, error) {
	if r == nil || r.repo == nil {
		return nil, errors.New("revenue reader: nil repository")
	}
	consultations, err := r.repo.ListByDay(ctx, register.Day(dayStart))
	if err != nil {
		return nil, err
	}
	return register.AggregateRevenue(consultations, category), nil
}
