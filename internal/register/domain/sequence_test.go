package register

import (
	"errors"
	"testing"
	"time"
)

func numbered(t *testing.T, seq int) *Consultation {
	t.Helper()
	c := newRegularConsultation(t, ChannelCash)
	if err := c.AssignSequence(seq); err != nil {
		t.Fatalf("assign sequence: %v", err)
	}
	return c
}

func TestCheckSequence_CleanDay(t *testing.T) {
	consultations := []*Consultation{numbered(t, 1), numbered(t, 2), numbered(t, 3)}
	if err := CheckSequence(testDay, consultations); err != nil {
		t.Fatalf("expected clean day, got %v", err)
	}
}

func TestCheckSequence_EmptyDay(t *testing.T) {
	if err := CheckSequence(testDay, nil); err != nil {
		t.Fatalf("expected clean empty day, got %v", err)
	}
}

func TestCheckSequence_GapReported(t *testing.T) {
	consultations := []*Consultation{numbered(t, 1), numbered(t, 3), numbered(t, 4)}
	err := CheckSequence(testDay, consultations)
	var seqErr *SequenceError
	if !errors.As(err, &seqErr) {
		t.Fatalf("expected *SequenceError, got %v", err)
	}
	if len(seqErr.Gaps) != 1 || seqErr.Gaps[0] != 2 {
		t.Fatalf("expected gap at 2, got %v", seqErr.Gaps)
	}
}

func TestCheckSequence_DuplicateReported(t *testing.T) {
	consultations := []*Consultation{numbered(t, 1), numbered(t, 2), numbered(t, 2)}
	err := CheckSequence(testDay, consultations)
	var seqErr *SequenceError
	if !errors.As(err, &seqErr) {
		t.Fatalf("expected *SequenceError, got %v", err)
	}
	if len(seqErr.Duplicates) != 1 || seqErr.Duplicates[0] != 2 {
		t.Fatalf("expected duplicate 2, got %v", seqErr.Duplicates)
	}
	if len(seqErr.Gaps) != 1 || seqErr.Gaps[0] != 3 {
		t.Fatalf("expected gap at 3, got %v", seqErr.Gaps)
	}
}

func TestCheckSequence_IgnoresCancelledAndMobile(t *testing.T) {
	cancelled := numbered(t, 2)
	if err := cancelled.Cancel("no-show", "front-desk", time.Now()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	mobile, err := NewConsultation(testDay, CategoryMobile, ChannelCash, time.Now())
	if err != nil {
		t.Fatalf("new mobile: %v", err)
	}
	consultations := []*Consultation{numbered(t, 1), cancelled, mobile, numbered(t, 2)}
	if err := CheckSequence(testDay, consultations); err != nil {
		t.Fatalf("cancelled and mobile must not affect the invariant, got %v", err)
	}
}

func TestCheckSequence_UnnumberedReported(t *testing.T) {
	consultations := []*Consultation{numbered(t, 1), newRegularConsultation(t, ChannelCash)}
	err := CheckSequence(testDay, consultations)
	var seqErr *SequenceError
	if !errors.As(err, &seqErr) {
		t.Fatalf("expected *SequenceError, got %v", err)
	}
	if seqErr.Unnumbered != 1 {
		t.Fatalf("expected 1 unnumbered, got %d", seqErr.Unnumbered)
	}
}
