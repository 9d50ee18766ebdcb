package application

import (
	"time"

	"github.com/google/uuid"
)

// ConsultationCancelled is emitted after a cancellation and its shift commit.
type ConsultationCancelled struct {
	ConsultationID uuid.UUID
	DayStart       time.Time
	FreedSequence  int
	Reason         string
	Actor          string
	OccurredAt     time.Time
}

// SequenceRepaired is emitted after a renumbering repair run.
type SequenceRepaired struct {
	DayStart   time.Time
	Changed    int
	Actor      string
	OccurredAt time.Time
}
