package register

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one billed service on a consultation.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// AdjunctFee is a named surcharge attached to a mobile consultation,
// outside its line-item list.
type AdjunctFee struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Cancellation records why, by whom and when a consultation was cancelled.
type Cancellation struct {
	Reason string    `json:"reason"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}

// Consultation is the aggregate root of the register domain. Its state is a
// variant: active (holding a sequence number when regular) or cancelled
// (holding the cancellation record and never a sequence number).
type Consultation struct {
	id       uuid.UUID
	dayStart time.Time
	category ServiceCategory
	channel  PaymentChannel
	items    []LineItem
	fees     []AdjunctFee

	sequence     int
	cancellation *Cancellation

	createdAt time.Time
	updatedAt time.Time
	isNew     bool
}

// NewConsultation creates an active consultation for a register day.
// The sequence number is assigned by the allocator at persistence time.
func NewConsultation(dayStart time.Time, category ServiceCategory, channel PaymentChannel, createdAt time.Time) (*Consultation, error) {
	if dayStart.IsZero() {
		return nil, ErrInvalidDay
	}
	if _, ok := ParseCategory(string(category)); !ok {
		return nil, ErrInvalidCategory
	}
	if _, ok := ParseChannel(string(channel)); !ok {
		return nil, ErrInvalidChannel
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &Consultation{
		id:        uuid.New(),
		dayStart:  Day(dayStart),
		category:  category,
		channel:   channel,
		createdAt: createdAt.UTC(),
		updatedAt: createdAt.UTC(),
		isNew:     true,
	}, nil
}

// Restore rebuilds a persisted consultation. Used by repositories only.
func Restore(
	id uuid.UUID,
	dayStart time.Time,
	category ServiceCategory,
	channel PaymentChannel,
	items []LineItem,
	fees []AdjunctFee,
	sequence int,
	cancellation *Cancellation,
	createdAt, updatedAt time.Time,
) *Consultation {
	c := &Consultation{
		id:        id,
		dayStart:  Day(dayStart),
		category:  category,
		channel:   channel,
		items:     append([]LineItem(nil), items...),
		fees:      append([]AdjunctFee(nil), fees...),
		createdAt: createdAt.UTC(),
		updatedAt: updatedAt.UTC(),
	}
	if cancellation != nil {
		cp := *cancellation
		c.cancellation = &cp
	} else {
		c.sequence = sequence
	}
	return c
}

// AddLineItem appends a line item and recomputes the total.
func (c *Consultation) AddLineItem(description string, amount decimal.Decimal, at time.Time) (LineItem, error) {
	if c.cancellation != nil {
		return LineItem{}, ErrCancelled
	}
	if description == "" {
		return LineItem{}, ErrEmptyDescription
	}
	if amount.IsNegative() {
		return LineItem{}, ErrNegativeAmount
	}
	item := LineItem{ID: uuid.New(), Description: description, Amount: amount}
	c.items = append(c.items, item)
	c.touch(at)
	return item, nil
}

// RemoveLineItem deletes a line item by id.
func (c *Consultation) RemoveLineItem(itemID uuid.UUID, at time.Time) error {
	if c.cancellation != nil {
		return ErrCancelled
	}
	for i, item := range c.items {
		if item.ID == itemID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.touch(at)
			return nil
		}
	}
	return ErrItemNotFound
}

// AddAdjunctFee attaches a surcharge. Mobile consultations only.
func (c *Consultation) AddAdjunctFee(name string, amount decimal.Decimal, at time.Time) error {
	if c.cancellation != nil {
		return ErrCancelled
	}
	if c.category != CategoryMobile {
		return ErrAdjunctFeeOnRegular
	}
	if name == "" {
		return ErrEmptyDescription
	}
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	c.fees = append(c.fees, AdjunctFee{Name: name, Amount: amount})
	c.touch(at)
	return nil
}

// AssignSequence sets the per-day patient sequence number.
func (c *Consultation) AssignSequence(n int) error {
	if c.cancellation != nil {
		return ErrCancelled
	}
	if c.category == CategoryMobile {
		return ErrSequenceOnMobile
	}
	if n <= 0 {
		return ErrInvalidSequence
	}
	c.sequence = n
	return nil
}

// Cancel flips the consultation into the cancelled state and clears the
// sequence number. The caller is responsible for shifting later numbers.
func (c *Consultation) Cancel(reason, actor string, at time.Time) error {
	if c.cancellation != nil {
		return ErrAlreadyCancelled
	}
	if reason == "" {
		return ErrEmptyReason
	}
	if actor == "" {
		return ErrEmptyActor
	}
	c.cancellation = &Cancellation{Reason: reason, Actor: actor, At: at.UTC()}
	c.sequence = 0
	c.touch(at)
	return nil
}

// Total is the sum of line-item amounts plus adjunct fees.
func (c *Consultation) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Amount)
	}
	for _, fee := range c.fees {
		total = total.Add(fee.Amount)
	}
	return total
}

// SequenceNumber returns the assigned number. The second return is false for
// cancelled, mobile, or not-yet-numbered consultations.
func (c *Consultation) SequenceNumber() (int, bool) {
	if c.cancellation != nil || c.category == CategoryMobile || c.sequence == 0 {
		return 0, false
	}
	return c.sequence, true
}

// Cancellation returns the cancellation record when cancelled.
func (c *Consultation) Cancellation() (Cancellation, bool) {
	if c.cancellation == nil {
		return Cancellation{}, false
	}
	return *c.cancellation, true
}

// IsCancelled reports whether the consultation is cancelled.
func (c *Consultation) IsCancelled() bool { return c.cancellation != nil }

// ID returns the aggregate identity.
func (c *Consultation) ID() uuid.UUID { return c.id }

// DayStart returns the register day.
func (c *Consultation) DayStart() time.Time { return c.dayStart }

// Category returns the service category.
func (c *Consultation) Category() ServiceCategory { return c.category }

// Channel returns the payment channel.
func (c *Consultation) Channel() PaymentChannel { return c.channel }

// LineItems returns a copy of the line items in order.
func (c *Consultation) LineItems() []LineItem {
	return append([]LineItem(nil), c.items...)
}

// AdjunctFees returns a copy of the adjunct fees.
func (c *Consultation) AdjunctFees() []AdjunctFee {
	return append([]AdjunctFee(nil), c.fees...)
}

// CreatedAt returns the intake timestamp; intake order drives renumbering.
func (c *Consultation) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns the last mutation timestamp.
func (c *Consultation) UpdatedAt() time.Time { return c.updatedAt }

// IsNew reports whether the aggregate was freshly created.
func (c *Consultation) IsNew() bool { return c.isNew }

// MarkPersisted marks the aggregate as persisted.
func (c *Consultation) MarkPersisted() {
	if c != nil {
		c.isNew = false
	}
}

// Clone returns a detached copy marked as persisted.
func (c *Consultation) Clone() *Consultation {
	if c == nil {
		return nil
	}
	copy := *c
	copy.items = append([]LineItem(nil), c.items...)
	copy.fees = append([]AdjunctFee(nil), c.fees...)
	if c.cancellation != nil {
		cancellation := *c.cancellation
		copy.cancellation = &cancellation
	}
	copy.isNew = false
	return &copy
}

func (c *Consultation) touch(at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	c.updatedAt = at.UTC()
}
