package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	registermem "clinic-register/internal/register/infrastructure/memory"

	register "clinic-register/internal/register/domain"
)

var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// stepClock hands out strictly increasing instants so intake order is
// deterministic.
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Minute)
	return c.now
}

type capturingPublisher struct {
	events []any
}

func (p *capturingPublisher) Publish(_ context.Context, event any) error {
	p.events = append(p.events, event)
	return nil
}

func newTestService(t *testing.T) (*Service, *capturingPublisher) {
	t.Helper()
	publisher := &capturingPublisher{}
	service, err := NewService(registermem.NewConsultationRepository(), publisher, &stepClock{now: testDay.Add(8 * time.Hour)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, publisher
}

func intakeRegular(t *testing.T, service *Service, channel register.PaymentChannel) *register.Consultation {
	t.Helper()
	consultation, err := service.Intake(context.Background(), IntakeRequest{
		DayStart: testDay,
		Category: register.CategoryRegular,
		Channel:  channel,
		Items:    []ItemRequest{{Description: "consultation", Amount: decimal.NewFromInt(100)}},
	})
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	return consultation
}

func TestIntake_AssignsContiguousSequence(t *testing.T) {
	service, _ := newTestService(t)
	for want := 1; want <= 4; want++ {
		consultation := intakeRegular(t, service, register.ChannelCash)
		seq, ok := consultation.SequenceNumber()
		if !ok || seq != want {
			t.Fatalf("intake %d: got sequence %d (ok=%v)", want, seq, ok)
		}
	}
	if err := service.VerifyDay(context.Background(), testDay); err != nil {
		t.Fatalf("verify day: %v", err)
	}
}

func TestIntake_MobileGetsNoSequence(t *testing.T) {
	service, _ := newTestService(t)
	consultation, err := service.Intake(context.Background(), IntakeRequest{
		DayStart: testDay,
		Category: register.CategoryMobile,
		Channel:  register.ChannelCash,
		Fees:     []FeeRequest{{Name: "travel", Amount: decimal.NewFromInt(20)}},
	})
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if _, ok := consultation.SequenceNumber(); ok {
		t.Fatal("mobile consultation must not get a sequence number")
	}
}

func TestIntake_FutureDayRejected(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.Intake(context.Background(), IntakeRequest{
		DayStart: testDay.AddDate(0, 0, 7),
		Category: register.CategoryRegular,
		Channel:  register.ChannelCash,
	})
	if !errors.Is(err, register.ErrFutureDay) {
		t.Fatalf("expected ErrFutureDay, got %v", err)
	}
}

// Four consultations numbered {1,2,3,4}; cancelling #2 must shift the later
// ones down to {1,2,3} preserving intake order.
func TestCancel_ShiftsLaterSequences(t *testing.T) {
	service, publisher := newTestService(t)
	first := intakeRegular(t, service, register.ChannelCash)
	second := intakeRegular(t, service, register.ChannelCash)
	third := intakeRegular(t, service, register.ChannelCard)
	fourth := intakeRegular(t, service, register.ChannelCash)

	cancelled, err := service.Cancel(context.Background(), second.ID(), "duplicate entry", "front-desk")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !cancelled.IsCancelled() {
		t.Fatal("expected cancelled state")
	}
	if _, ok := cancelled.SequenceNumber(); ok {
		t.Fatal("cancelled consultation must not hold a sequence")
	}

	wantSequences := map[string]int{
		first.ID().String():  1,
		third.ID().String():  2,
		fourth.ID().String(): 3,
	}
	consultations, err := service.ListByDay(context.Background(), testDay)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, consultation := range consultations {
		if consultation.IsCancelled() {
			continue
		}
		seq, ok := consultation.SequenceNumber()
		if !ok {
			t.Fatalf("consultation %s lost its sequence", consultation.ID())
		}
		if want := wantSequences[consultation.ID().String()]; seq != want {
			t.Fatalf("consultation %s: sequence %d, want %d", consultation.ID(), seq, want)
		}
	}
	if err := service.VerifyDay(context.Background(), testDay); err != nil {
		t.Fatalf("verify day after cancel: %v", err)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	evt, ok := publisher.events[0].(ConsultationCancelled)
	if !ok {
		t.Fatalf("unexpected event type %T", publisher.events[0])
	}
	if evt.FreedSequence != 2 || evt.Reason != "duplicate entry" || evt.Actor != "front-desk" {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestCancel_Validation(t *testing.T) {
	service, _ := newTestService(t)
	consultation := intakeRegular(t, service, register.ChannelCash)

	if _, err := service.Cancel(context.Background(), consultation.ID(), "", "front-desk"); !errors.Is(err, register.ErrEmptyReason) {
		t.Fatalf("expected ErrEmptyReason, got %v", err)
	}
	if _, err := service.Cancel(context.Background(), consultation.ID(), "duplicate", ""); !errors.Is(err, register.ErrEmptyActor) {
		t.Fatalf("expected ErrEmptyActor, got %v", err)
	}

	if _, err := service.Cancel(context.Background(), consultation.ID(), "duplicate", "front-desk"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := service.Cancel(context.Background(), consultation.ID(), "again", "front-desk"); !errors.Is(err, register.ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestRepair_Idempotent(t *testing.T) {
	service, publisher := newTestService(t)
	intakeRegular(t, service, register.ChannelCash)
	intakeRegular(t, service, register.ChannelCash)
	intakeRegular(t, service, register.ChannelCash)

	changed, err := service.Repair(context.Background(), testDay, "admin")
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if changed != 0 {
		t.Fatalf("clean day repaired %d rows", changed)
	}

	again, err := service.Repair(context.Background(), testDay, "admin")
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if again != 0 {
		t.Fatalf("second repair changed %d rows", again)
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected two SequenceRepaired events, got %d", len(publisher.events))
	}
}

func TestRepair_AfterCancelKeepsVerifyClean(t *testing.T) {
	service, _ := newTestService(t)
	intakeRegular(t, service, register.ChannelCash)
	middle := intakeRegular(t, service, register.ChannelCash)
	intakeRegular(t, service, register.ChannelCash)

	if _, err := service.Cancel(context.Background(), middle.ID(), "duplicate", "front-desk"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	changed, err := service.Repair(context.Background(), testDay, "admin")
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if changed != 0 {
		t.Fatalf("shift already closed the gap, repair changed %d", changed)
	}
	if err := service.VerifyDay(context.Background(), testDay); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestAddLineItem_OnCancelledRejected(t *testing.T) {
	service, _ := newTestService(t)
	consultation := intakeRegular(t, service, register.ChannelCash)
	if _, err := service.Cancel(context.Background(), consultation.ID(), "duplicate", "front-desk"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := service.AddLineItem(context.Background(), consultation.ID(), "late", decimal.NewFromInt(10)); !errors.Is(err, register.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}
