package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	expense "clinic-register/internal/expense/domain"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Service is the day expense ledger.
type Service struct {
	repo  expense.Repository
	clock Clock
}

// NewService constructs the expense service.
func NewService(repo expense.Repository, clock Clock) (*Service, error) {
	if repo == nil {
		return nil, errors.New("expense service: nil repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{repo: repo, clock: clock}, nil
}

// Record appends an expense to the day's ledger.
func (s *Service) Record(ctx context.Context, dayStart time.Time, concept string, amount decimal.Decimal, actor string) (expense.Entry, error) {
	if dayStart.IsZero() {
		return expense.Entry{}, expense.ErrInvalidDay
	}
	if concept == "" {
		return expense.Entry{}, expense.ErrEmptyConcept
	}
	if !amount.IsPositive() {
		return expense.Entry{}, expense.ErrNonPositiveAmount
	}
	entry := expense.Entry{
		ID:        uuid.New(),
		DayStart:  day(dayStart),
		Concept:   concept,
		Amount:    amount,
		CreatedBy: actor,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return expense.Entry{}, err
	}
	return entry, nil
}

// Reverse appends a negating entry for the given expense. There is no
// delete path; the original stays on the ledger.
func (s *Service) Reverse(ctx context.Context, id uuid.UUID, actor string) (expense.Entry, error) {
	original, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return expense.Entry{}, err
	}
	if original == nil {
		return expense.Entry{}, expense.ErrNotFound
	}
	if original.IsReversal() {
		return expense.Entry{}, expense.ErrReversalOfReversal
	}
	reversed, err := s.repo.HasReversal(ctx, id)
	if err != nil {
		return expense.Entry{}, err
	}
	if reversed {
		return expense.Entry{}, expense.ErrAlreadyReversed
	}

	originalID := original.ID
	entry := expense.Entry{
		ID:         uuid.New(),
		DayStart:   original.DayStart,
		Concept:    "reversal: " + original.Concept,
		Amount:     original.Amount.Neg(),
		ReversalOf: &originalID,
		CreatedBy:  actor,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return expense.Entry{}, err
	}
	return entry, nil
}

// Sum returns the day's net expense total.
func (s *Service) Sum(ctx context.Context, dayStart time.Time) (decimal.Decimal, error) {
	return s.repo.SumByDay(ctx, day(dayStart))
}

// List returns the day's entries, most recently created first.
func (s *Service) List(ctx context.Context, dayStart time.Time) ([]expense.Entry, error) {
	return s.repo.ListByDay(ctx, day(dayStart))
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
