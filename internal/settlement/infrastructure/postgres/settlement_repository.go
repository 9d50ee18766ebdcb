package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	register "clinic-register/internal/register/domain"
	settlement "clinic-register/internal/settlement/domain"
)

// SettlementRepository persists settlement records. Records are append-only:
// a close inserts one row, voiding only fills the void columns, and amending
// a day inserts the next version.
type SettlementRepository struct {
	db *sql.DB
}

// NewSettlementRepository constructs a repository.
func NewSettlementRepository(db *sql.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

const recordColumns = `id, day_start, version, status,
	expected_cash, expected_card, expected_deposit,
	counted_cash, counted_card, counted_deposit,
	status_cash, status_card, status_deposit,
	overall_status, observations, closed_by, closed_at,
	void_reason, voided_by, voided_at`

func (r *SettlementRepository) FindLatestActive(ctx context.Context, dayStart time.Time) (*settlement.Record, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repository: nil db")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+`
		FROM settlement_records
		WHERE day_start = $1 AND status = $2
		ORDER BY version DESC
		LIMIT 1`, register.Day(dayStart), settlement.RecordStatusClosed)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *SettlementRepository) NextVersion(ctx context.Context, dayStart time.Time) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("settlement repository: nil db")
	}
	var next int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) + 1
		FROM settlement_records WHERE day_start = $1`, register.Day(dayStart)).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *SettlementRepository) Create(ctx context.Context, record *settlement.Record) error {
	if r == nil || r.db == nil {
		return errors.New("settlement repository: nil db")
	}
	if record == nil {
		return settlement.ErrNilRecord
	}
	statuses := bucketStatuses(record.Results)
	_, err := r.db.ExecContext(ctx, `INSERT INTO settlement_records (
			id, day_start, version, status,
			expected_cash, expected_card, expected_deposit,
			counted_cash, counted_card, counted_deposit,
			status_cash, status_card, status_deposit,
			overall_status, observations, closed_by, closed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		record.ID, register.Day(record.DayStart), record.Version, record.Status,
		record.Expected.Cash, record.Expected.Card, record.Expected.Deposit,
		record.Counted.Cash, record.Counted.Card, record.Counted.Deposit,
		statuses[settlement.BucketCash], statuses[settlement.BucketCard], statuses[settlement.BucketDeposit],
		string(record.Overall), record.Observations, record.ClosedBy, record.ClosedAt)
	return err
}

func (r *SettlementRepository) GetByID(ctx context.Context, id string) (*settlement.Record, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repository: nil db")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+`
		FROM settlement_records WHERE id = $1`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, settlement.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *SettlementRepository) ListByDay(ctx context.Context, dayStart time.Time) ([]settlement.Record, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repository: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+`
		FROM settlement_records
		WHERE day_start = $1
		ORDER BY version ASC`, register.Day(dayStart))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []settlement.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (r *SettlementRepository) MarkVoided(ctx context.Context, id, reason, actor string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("settlement repository: nil db")
	}
	result, err := r.db.ExecContext(ctx, `UPDATE settlement_records
		SET status = $2, void_reason = $3, voided_by = $4, voided_at = $5
		WHERE id = $1 AND status = $6`,
		id, settlement.RecordStatusVoided, reason, actor, at, settlement.RecordStatusClosed)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == settlement.RecordStatusVoided {
			return settlement.ErrVoided
		}
		return settlement.ErrNotFound
	}
	return nil
}

func bucketStatuses(results []settlement.BucketResult) map[settlement.Bucket]sql.NullString {
	statuses := make(map[settlement.Bucket]sql.NullString, len(results))
	for _, result := range results {
		statuses[result.Bucket] = sql.NullString{String: string(result.Status), Valid: true}
	}
	return statuses
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*settlement.Record, error) {
	var record settlement.Record
	var statusCash, statusCard, statusDeposit sql.NullString
	var overall sql.NullString
	var voidReason, voidedBy sql.NullString
	var voidedAt sql.NullTime
	err := row.Scan(
		&record.ID, &record.DayStart, &record.Version, &record.Status,
		&record.Expected.Cash, &record.Expected.Card, &record.Expected.Deposit,
		&record.Counted.Cash, &record.Counted.Card, &record.Counted.Deposit,
		&statusCash, &statusCard, &statusDeposit,
		&overall, &record.Observations, &record.ClosedBy, &record.ClosedAt,
		&voidReason, &voidedBy, &voidedAt,
	)
	if err != nil {
		return nil, err
	}
	if overall.Valid {
		record.Overall = settlement.OverallStatus(overall.String)
	}
	record.Results = rebuildResults(record.Expected, record.Counted, map[settlement.Bucket]sql.NullString{
		settlement.BucketCash:    statusCash,
		settlement.BucketCard:    statusCard,
		settlement.BucketDeposit: statusDeposit,
	})
	record.VoidReason = voidReason.String
	record.VoidedBy = voidedBy.String
	if voidedAt.Valid {
		record.VoidedAt = voidedAt.Time
	}
	return &record, nil
}

// rebuildResults reassembles bucket results from the snapshotted columns.
// Statuses come from the row rather than a fresh comparison so records
// closed under a different tolerance read back unchanged.
func rebuildResults(expected settlement.Expected, counted settlement.Counted, statuses map[settlement.Bucket]sql.NullString) []settlement.BucketResult {
	var results []settlement.BucketResult
	for _, bucket := range settlement.Buckets() {
		status := statuses[bucket]
		if !status.Valid {
			continue
		}
		want := expected.Bucket(bucket)
		have := counted.Bucket(bucket).Decimal
		results = append(results, settlement.BucketResult{
			Bucket:     bucket,
			Expected:   want,
			Counted:    have,
			Difference: have.Sub(want),
			Status:     settlement.ChannelStatus(status.String),
		})
	}
	return results
}

var _ settlement.Repository = (*SettlementRepository)(nil)
