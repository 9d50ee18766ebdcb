package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	register "clinic-register/internal/register/domain"
	settlement "clinic-register/internal/settlement/domain"
)

// RevenueReader computes per-channel revenue totals for a day and category.
type RevenueReader interface {
	ComputeTotals(ctx context.Context, dayStart time.Time, category register.ServiceCategory) (register.Breakdown, error)
}

// ExpenseReader exposes the day's net expense total.
type ExpenseReader interface {
	Sum(ctx context.Context, dayStart time.Time) (decimal.Decimal, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RegisterClosed is emitted when a day's settlement record is created.
type RegisterClosed struct {
	RecordID   string
	DayStart   time.Time
	Version    int
	Overall    settlement.OverallStatus
	ClosedBy   string
	OccurredAt time.Time
}

// EventPublisher delivers settlement events to the log sink.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// DiscrepancyNotifier is told about discrepant closes. Fire-and-forget.
type DiscrepancyNotifier interface {
	NotifyDiscrepancy(ctx context.Context, record settlement.Record) error
}

// CloseRequest carries the operator input for a register close.
type CloseRequest struct {
	DayStart     time.Time
	Counted      settlement.Counted
	Observations string
	ClosedBy     string
	// Amend voids the currently active record and closes a new version.
	Amend bool
}

// Service assembles daily settlement reports and closes the register.
type Service struct {
	records   settlement.Repository
	revenue   RevenueReader
	expenses  ExpenseReader
	publisher EventPublisher
	notifier  DiscrepancyNotifier
	clock     Clock
	tolerance decimal.Decimal
}

// NewService constructs the settlement service.
func NewService(records settlement.Repository, revenue RevenueReader, expenses ExpenseReader, publisher EventPublisher, notifier DiscrepancyNotifier, clock Clock, tolerance decimal.Decimal) (*Service, error) {
	if records == nil {
		return nil, errors.New("settlement service: nil repository")
	}
	if revenue == nil {
		return nil, errors.New("settlement service: nil revenue reader")
	}
	if expenses == nil {
		return nil, errors.New("settlement service: nil expense reader")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if !tolerance.IsPositive() {
		tolerance = settlement.DefaultTolerance
	}
	return &Service{
		records:   records,
		revenue:   revenue,
		expenses:  expenses,
		publisher: publisher,
		notifier:  notifier,
		clock:     clock,
		tolerance: tolerance,
	}, nil
}

// DailyReport assembles the current settlement view of a day. Counted may
// carry a partial in-progress count; when the day already has an active
// record, the record's counted amounts win.
func (s *Service) DailyReport(ctx context.Context, dayStart time.Time, counted settlement.Counted) (*settlement.Report, error) {
	day := register.Day(dayStart)
	if day.IsZero() {
		return nil, settlement.ErrInvalidDay
	}

	regular, err := s.revenue.ComputeTotals(ctx, day, register.CategoryRegular)
	if err != nil {
		return nil, err
	}
	mobile, err := s.revenue.ComputeTotals(ctx, day, register.CategoryMobile)
	if err != nil {
		return nil, err
	}
	expenseTotal, err := s.expenses.Sum(ctx, day)
	if err != nil {
		return nil, err
	}
	record, err := s.records.FindLatestActive(ctx, day)
	if err != nil {
		return nil, err
	}
	if record != nil {
		counted = record.Counted
	}

	report := &settlement.Report{
		DayStart:     day,
		State:        settlement.StateFor(record != nil, counted),
		Regular:      regular,
		Mobile:       mobile,
		ExpenseTotal: expenseTotal,
		Expected:     settlement.ComputeExpected(regular, expenseTotal),
		Counted:      counted,
		Record:       record,
	}
	if counted.Complete() {
		report.Results, report.Overall = settlement.CompareWithTolerance(report.Expected, counted, s.tolerance)
	}
	return report, nil
}

// Close reconciles the day and persists a settlement record. A DISCREPANT
// outcome closes normally, carrying the differences and the operator note.
func (s *Service) Close(ctx context.Context, req CloseRequest) (*settlement.Record, error) {
	day := register.Day(req.DayStart)
	if day.IsZero() {
		return nil, settlement.ErrInvalidDay
	}
	now := s.clock.Now().UTC()
	if day.After(register.Day(now)) {
		return nil, settlement.ErrFutureDay
	}
	if req.ClosedBy == "" {
		return nil, settlement.ErrEmptyClosedBy
	}
	if !req.Counted.Complete() {
		return nil, settlement.ErrMissingCounted
	}
	for _, bucket := range settlement.Buckets() {
		if req.Counted.Bucket(bucket).Decimal.IsNegative() {
			return nil, settlement.ErrNegativeCounted
		}
	}

	active, err := s.records.FindLatestActive(ctx, day)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if !req.Amend {
			return nil, settlement.ErrAlreadyClosed
		}
		if err := s.records.MarkVoided(ctx, active.ID, "amended", req.ClosedBy, now); err != nil {
			return nil, err
		}
	}

	regular, err := s.revenue.ComputeTotals(ctx, day, register.CategoryRegular)
	if err != nil {
		return nil, err
	}
	expenseTotal, err := s.expenses.Sum(ctx, day)
	if err != nil {
		return nil, err
	}
	expected := settlement.ComputeExpected(regular, expenseTotal)
	results, overall := settlement.CompareWithTolerance(expected, req.Counted, s.tolerance)

	version, err := s.records.NextVersion(ctx, day)
	if err != nil {
		return nil, err
	}
	record := &settlement.Record{
		ID:           settlement.BuildRecordID(day, version),
		DayStart:     day,
		Version:      version,
		Status:       settlement.RecordStatusClosed,
		Expected:     expected,
		Counted:      req.Counted,
		Results:      results,
		Overall:      overall,
		Observations: req.Observations,
		ClosedBy:     req.ClosedBy,
		ClosedAt:     now,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, RegisterClosed{
			RecordID:   record.ID,
			DayStart:   day,
			Version:    version,
			Overall:    overall,
			ClosedBy:   req.ClosedBy,
			OccurredAt: now,
		})
	}
	if overall == settlement.StatusDiscrepant && s.notifier != nil {
		_ = s.notifier.NotifyDiscrepancy(ctx, *record)
	}
	return record, nil
}

// Void voids a closed record, keeping it on the books.
func (s *Service) Void(ctx context.Context, id, reason, actor string) (*settlement.Record, error) {
	if reason == "" {
		return nil, settlement.ErrEmptyVoidReason
	}
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, settlement.ErrNotFound
	}
	if record.Status == settlement.RecordStatusVoided {
		return record, nil
	}
	now := s.clock.Now().UTC()
	if err := s.records.MarkVoided(ctx, id, reason, actor, now); err != nil {
		return nil, err
	}
	record.Status = settlement.RecordStatusVoided
	record.VoidReason = reason
	record.VoidedBy = actor
	record.VoidedAt = now
	return record, nil
}

// Get returns a settlement record by id.
func (s *Service) Get(ctx context.Context, id string) (*settlement.Record, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, settlement.ErrNotFound
	}
	return record, nil
}

// History returns all record versions for a day, oldest first.
func (s *Service) History(ctx context.Context, dayStart time.Time) ([]settlement.Record, error) {
	return s.records.ListByDay(ctx, register.Day(dayStart))
}
