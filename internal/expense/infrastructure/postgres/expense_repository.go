package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	expense "clinic-register/internal/expense/domain"
)

// ExpenseRepository is a Postgres implementation of the expense ledger.
type ExpenseRepository struct {
	db *sql.DB
}

// NewExpenseRepository constructs a repository.
func NewExpenseRepository(db *sql.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Insert appends an entry.
func (r *ExpenseRepository) Insert(ctx context.Context, entry expense.Entry) error {
	if r == nil || r.db == nil {
		return errors.New("expense repo: nil db")
	}
	var reversalOf any
	if entry.ReversalOf != nil {
		reversalOf = *entry.ReversalOf
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO expense_entries (id, day_start, concept, amount, reversal_of, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		entry.ID, entry.DayStart, entry.Concept, entry.Amount, reversalOf, entry.CreatedBy, entry.CreatedAt)
	return err
}

// GetByID fetches an entry.
func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*expense.Entry, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("expense repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, day_start, concept, amount, reversal_of, created_by, created_at
FROM expense_entries
WHERE id = $1
LIMIT 1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// ListByDay returns the day's entries, newest first.
func (r *ExpenseRepository) ListByDay(ctx context.Context, dayStart time.Time) ([]expense.Entry, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("expense repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, day_start, concept, amount, reversal_of, created_by, created_at
FROM expense_entries
WHERE day_start = $1
ORDER BY created_at DESC, id DESC`, dayStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []expense.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, rows.Err()
}

// SumByDay nets the day's entries.
func (r *ExpenseRepository) SumByDay(ctx context.Context, dayStart time.Time) (decimal.Decimal, error) {
	if r == nil || r.db == nil {
		return decimal.Zero, errors.New("expense repo: nil db")
	}
	var sum decimal.NullDecimal
	err := r.db.QueryRowContext(ctx, `
SELECT SUM(amount) FROM expense_entries WHERE day_start = $1`, dayStart).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// HasReversal reports whether the entry was already reversed.
func (r *ExpenseRepository) HasReversal(ctx context.Context, id uuid.UUID) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("expense repo: nil db")
	}
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM expense_entries WHERE reversal_of = $1)`, id).Scan(&exists)
	return exists, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*expense.Entry, error) {
	var entry expense.Entry
	var reversalOf uuid.NullUUID
	err := row.Scan(&entry.ID, &entry.DayStart, &entry.Concept, &entry.Amount, &reversalOf, &entry.CreatedBy, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	if reversalOf.Valid {
		id := reversalOf.UUID
		entry.ReversalOf = &id
	}
	entry.DayStart = entry.DayStart.UTC()
	entry.CreatedAt = entry.CreatedAt.UTC()
	return &entry, nil
}
