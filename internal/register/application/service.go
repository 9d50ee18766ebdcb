package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	register "clinic-register/internal/register/domain"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// EventPublisher delivers register activity events to the log sink.
// Delivery is fire-and-forget; the register never reads them back.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// IntakeRequest describes a new consultation from the intake collaborator.
type IntakeRequest struct {
	DayStart time.Time
	Category register.ServiceCategory
	Channel  register.PaymentChannel
	Items    []ItemRequest
	Fees     []FeeRequest
}

// ItemRequest is one line item of an intake.
type ItemRequest struct {
	Description string
	Amount      decimal.Decimal
}

// FeeRequest is one adjunct fee of a mobile intake.
type FeeRequest struct {
	Name   string
	Amount decimal.Decimal
}

// Service handles consultation intake, edits, cancellation and the day
// sequence repair.
type Service struct {
	repo      register.Repository
	publisher EventPublisher
	clock     Clock
}

// NewService constructs the register service.
func NewService(repo register.Repository, publisher EventPublisher, clock Clock) (*Service, error) {
	if repo == nil {
		return nil, errors.New("register service: nil repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{repo: repo, publisher: publisher, clock: clock}, nil
}

// Intake creates a consultation and assigns its sequence number.
func (s *Service) Intake(ctx context.Context, req IntakeRequest) (*register.Consultation, error) {
	day := register.Day(req.DayStart)
	if err := s.ensureNotFuture(day); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	consultation, err := register.NewConsultation(day, req.Category, req.Channel, now)
	if err != nil {
		return nil, err
	}
	for _, item := range req.Items {
		if _, err := consultation.AddLineItem(item.Description, item.Amount, now); err != nil {
			return nil, err
		}
	}
	for _, fee := range req.Fees {
		if err := consultation.AddAdjunctFee(fee.Name, fee.Amount, now); err != nil {
			return nil, err
		}
	}
	if err := s.repo.CreateWithSequence(ctx, consultation); err != nil {
		return nil, err
	}
	return consultation, nil
}

// AddLineItem appends a line item to an active consultation.
func (s *Service) AddLineItem(ctx context.Context, id uuid.UUID, description string, amount decimal.Decimal) (*register.Consultation, error) {
	consultation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := consultation.AddLineItem(description, amount, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, consultation); err != nil {
		return nil, err
	}
	return consultation, nil
}

// RemoveLineItem deletes a line item from an active consultation.
func (s *Service) RemoveLineItem(ctx context.Context, id, itemID uuid.UUID) (*register.Consultation, error) {
	consultation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := consultation.RemoveLineItem(itemID, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, consultation); err != nil {
		return nil, err
	}
	return consultation, nil
}

// Cancel cancels a consultation. When it held sequence k, every later
// consultation of the day shifts down by one in the same atomic operation,
// so the numbering stays contiguous or the whole cancellation fails.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason, actor string) (*register.Consultation, error) {
	if reason == "" {
		return nil, register.ErrEmptyReason
	}
	if actor == "" {
		return nil, register.ErrEmptyActor
	}
	now := s.clock.Now().UTC()

	before, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	freed, _ := before.SequenceNumber()

	cancelled, err := s.repo.CancelAndShift(ctx, id, reason, actor, now)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ConsultationCancelled{
		ConsultationID: id,
		DayStart:       cancelled.DayStart(),
		FreedSequence:  freed,
		Reason:         reason,
		Actor:          actor,
		OccurredAt:     now,
	})
	return cancelled, nil
}

// Repair re-derives the day numbering from intake order. Idempotent.
func (s *Service) Repair(ctx context.Context, dayStart time.Time, actor string) (int, error) {
	day := register.Day(dayStart)
	if day.IsZero() {
		return 0, register.ErrInvalidDay
	}
	changed, err := s.repo.RenumberAll(ctx, day)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, SequenceRepaired{
		DayStart:   day,
		Changed:    changed,
		Actor:      actor,
		OccurredAt: s.clock.Now().UTC(),
	})
	return changed, nil
}

// VerifyDay checks the numbering invariant and returns a
// *register.SequenceError when the day is corrupted.
func (s *Service) VerifyDay(ctx context.Context, dayStart time.Time) error {
	day := register.Day(dayStart)
	consultations, err := s.repo.ListByDay(ctx, day)
	if err != nil {
		return err
	}
	return register.CheckSequence(day, consultations)
}

// Get loads a consultation.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*register.Consultation, error) {
	return s.load(ctx, id)
}

// ListByDay returns the day's consultations in intake order.
func (s *Service) ListByDay(ctx context.Context, dayStart time.Time) ([]*register.Consultation, error) {
	return s.repo.ListByDay(ctx, register.Day(dayStart))
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*register.Consultation, error) {
	consultation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if consultation == nil {
		return nil, register.ErrNotFound
	}
	return consultation, nil
}

func (s *Service) ensureNotFuture(day time.Time) error {
	today := register.Day(s.clock.Now())
	if day.After(today) {
		return register.ErrFutureDay
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event any) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, event)
}
