package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	register "clinic-register/internal/register/domain"
)

// ConsultationRepository is a Postgres implementation of the register
// repository. Sequence allocation, the cancellation shift and the repair
// renumbering each run inside one transaction holding a per-day advisory
// lock, so two concurrent intakes can never compute the same next number
// and a failed shift rolls back whole.
type ConsultationRepository struct {
	db *sql.DB
}

// NewConsultationRepository constructs a repository.
func NewConsultationRepository(db *sql.DB) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

// CreateWithSequence inserts the consultation, assigning max+1 for the day
// to regular consultations. Mobile consultations stay unnumbered.
func (r *ConsultationRepository) CreateWithSequence(ctx context.Context, consultation *register.Consultation) error {
	if r == nil || r.db == nil {
		return errors.New("consultation repo: nil db")
	}
	if consultation == nil {
		return register.ErrNilConsultation
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := lockDay(ctx, tx, consultation.DayStart()); err != nil {
		_ = tx.Rollback()
		return err
	}

	var sequence sql.NullInt64
	if consultation.Category() == register.CategoryRegular {
		var next int
		err := tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(sequence_number), 0) + 1
FROM consultations
WHERE day_start = $1 AND category = $2 AND cancelled_at IS NULL`,
			consultation.DayStart(), register.CategoryRegular).Scan(&next)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := consultation.AssignSequence(next); err != nil {
			_ = tx.Rollback()
			return err
		}
		sequence = sql.NullInt64{Int64: int64(next), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO consultations (
	id, day_start, category, channel, sequence_number, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		consultation.ID(), consultation.DayStart(), string(consultation.Category()),
		string(consultation.Channel()), sequence, consultation.CreatedAt(), consultation.UpdatedAt())
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insertItemsAndFees(ctx, tx, consultation); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	consultation.MarkPersisted()
	return nil
}

// GetByID loads a consultation with its items and fees.
func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*register.Consultation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("consultation repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, day_start, category, channel, sequence_number,
	cancel_reason, cancelled_by, cancelled_at, created_at, updated_at
FROM consultations
WHERE id = $1
LIMIT 1`, id)
	consultation, err := scanConsultation(row)
	if err != nil || consultation == nil {
		return nil, err
	}
	return r.attachDetails(ctx, consultation)
}

// ListByDay returns the day's consultations in intake order.
func (r *ConsultationRepository) ListByDay(ctx context.Context, dayStart time.Time) ([]*register.Consultation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("consultation repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, day_start, category, channel, sequence_number,
	cancel_reason, cancelled_by, cancelled_at, created_at, updated_at
FROM consultations
WHERE day_start = $1
ORDER BY created_at ASC, id ASC`, register.Day(dayStart))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*register.Consultation
	for rows.Next() {
		consultation, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, consultation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, consultation := range result {
		full, err := r.attachDetails(ctx, consultation)
		if err != nil {
			return nil, err
		}
		result[i] = full
	}
	return result, nil
}

// Save replaces the consultation's line items and fees.
func (r *ConsultationRepository) Save(ctx context.Context, consultation *register.Consultation) error {
	if r == nil || r.db == nil {
		return errors.New("consultation repo: nil db")
	}
	if consultation == nil {
		return register.ErrNilConsultation
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
UPDATE consultations SET updated_at = $1 WHERE id = $2`,
		consultation.UpdatedAt(), consultation.ID())
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		_ = tx.Rollback()
		return register.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM consultation_items WHERE consultation_id = $1`, consultation.ID()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM consultation_fees WHERE consultation_id = $1`, consultation.ID()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insertItemsAndFees(ctx, tx, consultation); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CancelAndShift cancels the consultation and closes the numbering gap with
// one set-based update, all in a single transaction.
func (r *ConsultationRepository) CancelAndShift(ctx context.Context, id uuid.UUID, reason, actor string, at time.Time) (*register.Consultation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("consultation repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	// Resolve the day first, then take the day lock before touching the
	// row, matching the lock order of CreateWithSequence and RenumberAll.
	var day time.Time
	err = tx.QueryRowContext(ctx, `
SELECT day_start FROM consultations WHERE id = $1`, id).Scan(&day)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, register.ErrNotFound
		}
		return nil, err
	}
	if err := lockDay(ctx, tx, day); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	var freed sql.NullInt64
	var cancelledAt sql.NullTime
	err = tx.QueryRowContext(ctx, `
SELECT sequence_number, cancelled_at
FROM consultations
WHERE id = $1
FOR UPDATE`, id).Scan(&freed, &cancelledAt)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if cancelledAt.Valid {
		_ = tx.Rollback()
		return nil, register.ErrAlreadyCancelled
	}

	_, err = tx.ExecContext(ctx, `
UPDATE consultations
SET sequence_number = NULL, cancel_reason = $1, cancelled_by = $2, cancelled_at = $3, updated_at = $3
WHERE id = $4`, reason, actor, at.UTC(), id)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if freed.Valid {
		_, err = tx.ExecContext(ctx, `
UPDATE consultations
SET sequence_number = sequence_number - 1, updated_at = $1
WHERE day_start = $2 AND category = $3 AND cancelled_at IS NULL AND sequence_number > $4`,
			at.UTC(), register.Day(day), register.CategoryRegular, freed.Int64)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// RenumberAll reassigns 1..N by intake order with one set-based update.
// Running it twice in succession changes nothing the second time.
func (r *ConsultationRepository) RenumberAll(ctx context.Context, dayStart time.Time) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("consultation repo: nil db")
	}
	day := register.Day(dayStart)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	if err := lockDay(ctx, tx, day); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `
UPDATE consultations c
SET sequence_number = ranked.rn, updated_at = NOW()
FROM (
	SELECT id, ROW_NUMBER() OVER (ORDER BY created_at ASC, id ASC) AS rn
	FROM consultations
	WHERE day_start = $1 AND category = $2 AND cancelled_at IS NULL
) ranked
WHERE c.id = ranked.id AND c.sequence_number IS DISTINCT FROM ranked.rn`,
		day, register.CategoryRegular)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	changed, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(changed), nil
}

// lockDay serializes day-scoped sequence mutations. The lock is released at
// transaction end.
func lockDay(ctx context.Context, tx *sql.Tx, dayStart time.Time) error {
	key, err := register.NewDayKey(dayStart)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('register:' || $1))`, key.String())
	return err
}

func insertItemsAndFees(ctx context.Context, tx *sql.Tx, consultation *register.Consultation) error {
	for position, item := range consultation.LineItems() {
		_, err := tx.ExecContext(ctx, `
INSERT INTO consultation_items (id, consultation_id, position, description, amount)
VALUES ($1,$2,$3,$4,$5)`,
			item.ID, consultation.ID(), position, item.Description, item.Amount)
		if err != nil {
			return err
		}
	}
	for _, fee := range consultation.AdjunctFees() {
		_, err := tx.ExecContext(ctx, `
INSERT INTO consultation_fees (consultation_id, name, amount)
VALUES ($1,$2,$3)`, consultation.ID(), fee.Name, fee.Amount)
		if err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsultation(row rowScanner) (*register.Consultation, error) {
	var id uuid.UUID
	var day time.Time
	var category, channel string
	var sequence sql.NullInt64
	var reason, actor sql.NullString
	var cancelledAt sql.NullTime
	var createdAt, updatedAt time.Time

	err := row.Scan(&id, &day, &category, &channel, &sequence, &reason, &actor, &cancelledAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var cancellation *register.Cancellation
	if cancelledAt.Valid {
		cancellation = &register.Cancellation{
			Reason: reason.String,
			Actor:  actor.String,
			At:     cancelledAt.Time.UTC(),
		}
	}
	return register.Restore(
		id, day,
		register.ServiceCategory(category), register.PaymentChannel(channel),
		nil, nil,
		int(sequence.Int64), cancellation,
		createdAt, updatedAt,
	), nil
}

func (r *ConsultationRepository) attachDetails(ctx context.Context, consultation *register.Consultation) (*register.Consultation, error) {
	items, err := r.listItems(ctx, consultation.ID())
	if err != nil {
		return nil, err
	}
	fees, err := r.listFees(ctx, consultation.ID())
	if err != nil {
		return nil, err
	}
	seq, _ := consultation.SequenceNumber()
	var cancellation *register.Cancellation
	if c, ok := consultation.Cancellation(); ok {
		cancellation = &c
	}
	return register.Restore(
		consultation.ID(), consultation.DayStart(),
		consultation.Category(), consultation.Channel(),
		items, fees,
		seq, cancellation,
		consultation.CreatedAt(), consultation.UpdatedAt(),
	), nil
}

func (r *ConsultationRepository) listItems(ctx context.Context, consultationID uuid.UUID) ([]register.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, description, amount
FROM consultation_items
WHERE consultation_id = $1
ORDER BY position ASC`, consultationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []register.LineItem
	for rows.Next() {
		var item register.LineItem
		var amount decimal.Decimal
		if err := rows.Scan(&item.ID, &item.Description, &amount); err != nil {
			return nil, err
		}
		item.Amount = amount
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ConsultationRepository) listFees(ctx context.Context, consultationID uuid.UUID) ([]register.AdjunctFee, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT name, amount
FROM consultation_fees
WHERE consultation_id = $1
ORDER BY name ASC`, consultationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fees []register.AdjunctFee
	for rows.Next() {
		var fee register.AdjunctFee
		if err := rows.Scan(&fee.Name, &fee.Amount); err != nil {
			return nil, err
		}
		fees = append(fees, fee)
	}
	return fees, rows.Err()
}
