package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	expense "clinic-register/internal/expense/domain"
)

// ExpenseRepository is an in-memory expense ledger for tests.
type ExpenseRepository struct {
	mu      sync.RWMutex
	entries []expense.Entry
}

// NewExpenseRepository constructs a repository.
func NewExpenseRepository() *ExpenseRepository {
	return &ExpenseRepository{}
}

// Insert appends an entry.
func (r *ExpenseRepository) Insert(ctx context.Context, entry expense.Entry) error {
	_ = ctx
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	return nil
}

// GetByID fetches an entry.
func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*expense.Entry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		if entry.ID == id {
			found := entry
			return &found, nil
		}
	}
	return nil, nil
}

// ListByDay returns the day's entries, newest first.
func (r *ExpenseRepository) ListByDay(ctx context.Context, dayStart time.Time) ([]expense.Entry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []expense.Entry
	for _, entry := range r.entries {
		if entry.DayStart.Equal(dayStart) {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// SumByDay nets the day's entries.
func (r *ExpenseRepository) SumByDay(ctx context.Context, dayStart time.Time) (decimal.Decimal, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, entry := range r.entries {
		if entry.DayStart.Equal(dayStart) {
			sum = sum.Add(entry.Amount)
		}
	}
	return sum, nil
}

// HasReversal reports whether the entry was already reversed.
func (r *ExpenseRepository) HasReversal(ctx context.Context, id uuid.UUID) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		if entry.ReversalOf != nil && *entry.ReversalOf == id {
			return true, nil
		}
	}
	return false, nil
}
