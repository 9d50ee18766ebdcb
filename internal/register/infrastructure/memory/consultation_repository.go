package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	register "clinic-register/internal/register/domain"
)

// ConsultationRepository is an in-memory repository for consultations.
// The mutex serializes allocation and the cancellation shift the way the
// Postgres implementation serializes them per day.
type ConsultationRepository struct {
	mu   sync.Mutex
	data map[uuid.UUID]*register.Consultation
}

// NewConsultationRepository constructs a repository.
func NewConsultationRepository() *ConsultationRepository {
	return &ConsultationRepository{data: make(map[uuid.UUID]*register.Consultation)}
}

// CreateWithSequence inserts the consultation with the next free number.
func (r *ConsultationRepository) CreateWithSequence(ctx context.Context, consultation *register.Consultation) error {
	_ = ctx
	if consultation == nil {
		return register.ErrNilConsultation
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if consultation.Category() == register.CategoryRegular {
		max := 0
		for _, existing := range r.data {
			if existing.IsCancelled() || !existing.DayStart().Equal(consultation.DayStart()) {
				continue
			}
			if seq, ok := existing.SequenceNumber(); ok && seq > max {
				max = seq
			}
		}
		if err := consultation.AssignSequence(max + 1); err != nil {
			return err
		}
	}
	r.data[consultation.ID()] = consultation.Clone()
	consultation.MarkPersisted()
	return nil
}

// GetByID loads a consultation.
func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*register.Consultation, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	consultation := r.data[id]
	if consultation == nil {
		return nil, nil
	}
	return consultation.Clone(), nil
}

// ListByDay returns the day's consultations in intake order.
func (r *ConsultationRepository) ListByDay(ctx context.Context, dayStart time.Time) ([]*register.Consultation, error) {
	_ = ctx
	day := register.Day(dayStart)

	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*register.Consultation
	for _, consultation := range r.data {
		if consultation.DayStart().Equal(day) {
			result = append(result, consultation.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt().Equal(result[j].CreatedAt()) {
			return result[i].CreatedAt().Before(result[j].CreatedAt())
		}
		return result[i].ID().String() < result[j].ID().String()
	})
	return result, nil
}

// Save overwrites the stored consultation.
func (r *ConsultationRepository) Save(ctx context.Context, consultation *register.Consultation) error {
	_ = ctx
	if consultation == nil {
		return register.ErrNilConsultation
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[consultation.ID()]; !ok {
		return register.ErrNotFound
	}
	r.data[consultation.ID()] = consultation.Clone()
	consultation.MarkPersisted()
	return nil
}

// CancelAndShift cancels and closes the numbering gap under one lock.
func (r *ConsultationRepository) CancelAndShift(ctx context.Context, id uuid.UUID, reason, actor string, at time.Time) (*register.Consultation, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	target := r.data[id]
	if target == nil {
		return nil, register.ErrNotFound
	}
	freed, hadSequence := target.SequenceNumber()

	cancelled := target.Clone()
	if err := cancelled.Cancel(reason, actor, at); err != nil {
		return nil, err
	}
	r.data[id] = cancelled

	if hadSequence {
		for _, other := range r.data {
			if other.IsCancelled() || !other.DayStart().Equal(target.DayStart()) {
				continue
			}
			if seq, ok := other.SequenceNumber(); ok && seq > freed {
				if err := other.AssignSequence(seq - 1); err != nil {
					return nil, err
				}
			}
		}
	}
	return cancelled.Clone(), nil
}

// RenumberAll reassigns 1..N in intake order.
func (r *ConsultationRepository) RenumberAll(ctx context.Context, dayStart time.Time) (int, error) {
	day := register.Day(dayStart)

	r.mu.Lock()
	defer r.mu.Unlock()

	var active []*register.Consultation
	for _, consultation := range r.data {
		if consultation.IsCancelled() || consultation.Category() != register.CategoryRegular {
			continue
		}
		if consultation.DayStart().Equal(day) {
			active = append(active, consultation)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt().Equal(active[j].CreatedAt()) {
			return active[i].CreatedAt().Before(active[j].CreatedAt())
		}
		return active[i].ID().String() < active[j].ID().String()
	})

	changed := 0
	for i, consultation := range active {
		want := i + 1
		if seq, ok := consultation.SequenceNumber(); ok && seq == want {
			continue
		}
		if err := consultation.AssignSequence(want); err != nil {
			return changed, err
		}
		changed++
	}
	_ = ctx
	return changed, nil
}
