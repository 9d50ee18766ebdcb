package memory

import (
	"context"
	"sync"
	"time"

	register "clinic-register/internal/register/domain"
	settlement "clinic-register/internal/settlement/domain"
)

// SettlementRepository is an in-memory settlement store for tests and
// single-process wiring.
type SettlementRepository struct {
	mu      sync.RWMutex
	records []settlement.Record
}

// NewSettlementRepository constructs an empty repository.
func NewSettlementRepository() *SettlementRepository {
	return &SettlementRepository{}
}

func (r *SettlementRepository) FindLatestActive(_ context.Context, dayStart time.Time) (*settlement.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := register.Day(dayStart)
	var latest *settlement.Record
	for i := range r.records {
		record := &r.records[i]
		if !record.DayStart.Equal(day) || record.Status != settlement.RecordStatusClosed {
			continue
		}
		if latest == nil || record.Version > latest.Version {
			latest = record
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (r *SettlementRepository) NextVersion(_ context.Context, dayStart time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := register.Day(dayStart)
	max := 0
	for i := range r.records {
		if r.records[i].DayStart.Equal(day) && r.records[i].Version > max {
			max = r.records[i].Version
		}
	}
	return max + 1, nil
}

func (r *SettlementRepository) Create(_ context.Context, record *settlement.Record) error {
	if record == nil {
		return settlement.ErrNilRecord
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *SettlementRepository) GetByID(_ context.Context, id string) (*settlement.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.records {
		if r.records[i].ID == id {
			clone := r.records[i]
			return &clone, nil
		}
	}
	return nil, settlement.ErrNotFound
}

func (r *SettlementRepository) ListByDay(_ context.Context, dayStart time.Time) ([]settlement.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := register.Day(dayStart)
	var out []settlement.Record
	for _, record := range r.records {
		if record.DayStart.Equal(day) {
			out = append(out, record)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Version < out[j-1].Version; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (r *SettlementRepository) MarkVoided(_ context.Context, id, reason, actor string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if r.records[i].ID != id {
			continue
		}
		if r.records[i].Status == settlement.RecordStatusVoided {
			return settlement.ErrVoided
		}
		r.records[i].Status = settlement.RecordStatusVoided
		r.records[i].VoidReason = reason
		r.records[i].VoidedBy = actor
		r.records[i].VoidedAt = at
		return nil
	}
	return settlement.ErrNotFound
}

var _ settlement.Repository = (*SettlementRepository)(nil)
