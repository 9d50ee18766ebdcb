package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	expense "clinic-register/internal/expense/domain"
	expensemem "clinic-register/internal/expense/infrastructure/memory"
)

var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T) *Service {
	t.Helper()
	service, err := NewService(expensemem.NewExpenseRepository(), fixedClock{now: testDay.Add(12 * time.Hour)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestRecord_Validation(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if _, err := service.Record(ctx, time.Time{}, "gauze", decimal.NewFromInt(20), "front-desk"); !errors.Is(err, expense.ErrInvalidDay) {
		t.Fatalf("expected ErrInvalidDay, got %v", err)
	}
	if _, err := service.Record(ctx, testDay, "", decimal.NewFromInt(20), "front-desk"); !errors.Is(err, expense.ErrEmptyConcept) {
		t.Fatalf("expected ErrEmptyConcept, got %v", err)
	}
	if _, err := service.Record(ctx, testDay, "gauze", decimal.Zero, "front-desk"); !errors.Is(err, expense.ErrNonPositiveAmount) {
		t.Fatalf("expected ErrNonPositiveAmount, got %v", err)
	}
	if _, err := service.Record(ctx, testDay, "gauze", decimal.NewFromInt(-5), "front-desk"); !errors.Is(err, expense.ErrNonPositiveAmount) {
		t.Fatalf("expected ErrNonPositiveAmount, got %v", err)
	}
}

func TestRecordAndSum(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if _, err := service.Record(ctx, testDay, "gauze", decimal.NewFromInt(20), "front-desk"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := service.Record(ctx, testDay, "courier", decimal.NewFromInt(35), "front-desk"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := service.Record(ctx, testDay.AddDate(0, 0, -1), "other day", decimal.NewFromInt(99), "front-desk"); err != nil {
		t.Fatalf("record: %v", err)
	}

	sum, err := service.Sum(ctx, testDay)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(55)) {
		t.Fatalf("expected 55, got %s", sum)
	}
}

func TestReverse_AppendsNegatingEntry(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	original, err := service.Record(ctx, testDay, "gauze", decimal.NewFromInt(20), "front-desk")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	reversal, err := service.Reverse(ctx, original.ID, "admin")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if !reversal.Amount.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("expected -20, got %s", reversal.Amount)
	}
	if reversal.ReversalOf == nil || *reversal.ReversalOf != original.ID {
		t.Fatal("reversal must reference the original entry")
	}

	// The original stays on the books; the net is zero.
	entries, err := service.List(ctx, testDay)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	sum, err := service.Sum(ctx, testDay)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if !sum.IsZero() {
		t.Fatalf("expected zero net, got %s", sum)
	}
}

func TestReverse_Guards(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if _, err := service.Reverse(ctx, uuid.New(), "admin"); !errors.Is(err, expense.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	original, err := service.Record(ctx, testDay, "gauze", decimal.NewFromInt(20), "front-desk")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	reversal, err := service.Reverse(ctx, original.ID, "admin")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if _, err := service.Reverse(ctx, original.ID, "admin"); !errors.Is(err, expense.ErrAlreadyReversed) {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}
	if _, err := service.Reverse(ctx, reversal.ID, "admin"); !errors.Is(err, expense.ErrReversalOfReversal) {
		t.Fatalf("expected ErrReversalOfReversal, got %v", err)
	}
}
