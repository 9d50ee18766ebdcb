package settlement

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	register "clinic-register/internal/register/domain"
)

// Record lifecycle. A day's settlement passes through derived states while
// open; a persisted record is closed and can only be voided, never edited.
// Amending a closed day means voiding its record and closing a new version.
const (
	RecordStatusClosed = "closed"
	RecordStatusVoided = "voided"
)

// DayState is the derived state of a date's settlement.
type DayState string

const (
	StateOpen         DayState = "OPEN"
	StatePendingCount DayState = "PENDING_COUNT"
	StateReconciled   DayState = "RECONCILED"
	StateClosed       DayState = "CLOSED"
)

// StateFor derives the settlement state of a day.
func StateFor(hasClosedRecord bool, counted Counted) DayState {
	switch {
	case hasClosedRecord:
		return StateClosed
	case counted.Complete():
		return StateReconciled
	case counted.Partial():
		return StatePendingCount
	default:
		return StateOpen
	}
}

// Record is a persisted register close for one day. The expected amounts
// and bucket results are snapshotted so the record stays meaningful even
// if consultations are later repaired.
type Record struct {
	ID           string         `json:"id"`
	DayStart     time.Time      `json:"day"`
	Version      int            `json:"version"`
	Status       string         `json:"status"`
	Expected     Expected       `json:"expected"`
	Counted      Counted        `json:"counted"`
	Results      []BucketResult `json:"results"`
	Overall      OverallStatus  `json:"overall_status"`
	Observations string         `json:"observations"`
	ClosedBy     string         `json:"closed_by"`
	ClosedAt     time.Time      `json:"closed_at"`
	VoidReason   string         `json:"void_reason,omitempty"`
	VoidedBy     string         `json:"voided_by,omitempty"`
	VoidedAt     time.Time      `json:"voided_at,omitempty"`
}

// BuildRecordID derives a stable record id from day and version.
func BuildRecordID(dayStart time.Time, version int) string {
	base := register.Day(dayStart).Format("2006-01-02") + "|" + strconv.Itoa(version)
	hash := sha256.Sum256([]byte(base))
	return "stl-" + hex.EncodeToString(hash[:8])
}

// Report is the assembled daily settlement handed to export collaborators.
// Regular and mobile breakdowns are two separate sections and are never
// merged.
type Report struct {
	DayStart     time.Time          `json:"day"`
	State        DayState           `json:"state"`
	Regular      register.Breakdown `json:"regular"`
	Mobile       register.Breakdown `json:"mobile"`
	ExpenseTotal decimal.Decimal    `json:"expense_total"`
	Expected     Expected           `json:"expected"`
	Counted      Counted            `json:"counted"`
	Results      []BucketResult     `json:"results,omitempty"`
	Overall      OverallStatus      `json:"overall_status,omitempty"`
	Record       *Record            `json:"record,omitempty"`
}
