package settlement

import (
	"github.com/shopspring/decimal"

	register "clinic-register/internal/register/domain"
)

// Bucket is one counted-cash drawer: the units an operator physically
// counts at close. Channels map onto buckets; the mapping is fixed.
type Bucket string

const (
	BucketCash    Bucket = "cash"
	BucketCard    Bucket = "card"
	BucketDeposit Bucket = "deposit"
)

// Buckets returns every counted bucket in stable order.
func Buckets() []Bucket {
	return []Bucket{BucketCash, BucketCard, BucketDeposit}
}

// DefaultTolerance is the currency-unit threshold below which a
// counted/expected difference is rounding noise, not a discrepancy.
var DefaultTolerance = decimal.New(1, -2) // 0.01

// Expected holds the derived per-bucket amounts for a day.
type Expected struct {
	Cash    decimal.Decimal `json:"cash"`
	Card    decimal.Decimal `json:"card"`
	Deposit decimal.Decimal `json:"deposit"`
}

// Bucket returns the expected amount for a bucket.
func (e Expected) Bucket(bucket Bucket) decimal.Decimal {
	switch bucket {
	case BucketCash:
		return e.Cash
	case BucketCard:
		return e.Card
	default:
		return e.Deposit
	}
}

// Counted holds operator-entered amounts. A bucket may be absent while the
// count is still in progress.
type Counted struct {
	Cash    decimal.NullDecimal `json:"cash"`
	Card    decimal.NullDecimal `json:"card"`
	Deposit decimal.NullDecimal `json:"deposit"`
}

// Bucket returns the counted amount for a bucket.
func (c Counted) Bucket(bucket Bucket) decimal.NullDecimal {
	switch bucket {
	case BucketCash:
		return c.Cash
	case BucketCard:
		return c.Card
	default:
		return c.Deposit
	}
}

// Complete reports whether every bucket has been counted.
func (c Counted) Complete() bool {
	return c.Cash.Valid && c.Card.Valid && c.Deposit.Valid
}

// Partial reports whether some but not all buckets have been counted.
func (c Counted) Partial() bool {
	any := c.Cash.Valid || c.Card.Valid || c.Deposit.Valid
	return any && !c.Complete()
}

// ChannelStatus classifies one bucket's counted-versus-expected result.
type ChannelStatus string

const (
	StatusMatch    ChannelStatus = "MATCH"
	StatusMismatch ChannelStatus = "MISMATCH"
)

// OverallStatus classifies the whole settlement.
type OverallStatus string

const (
	StatusCorrect    OverallStatus = "CORRECT"
	StatusDiscrepant OverallStatus = "DISCREPANT"
)

// BucketResult is the reconciliation outcome for one bucket.
type BucketResult struct {
	Bucket     Bucket          `json:"bucket"`
	Expected   decimal.Decimal `json:"expected"`
	Counted    decimal.Decimal `json:"counted"`
	Difference decimal.Decimal `json:"difference"`
	Status     ChannelStatus   `json:"status"`
}

// ComputeExpected derives per-bucket expected amounts from the day's
// regular-category revenue and net expenses. Mobile revenue never enters
// this computation; it is reported separately and feeds commission
// figures downstream.
func ComputeExpected(regular register.Breakdown, expenseTotal decimal.Decimal) Expected {
	return Expected{
		Cash:    regular[register.ChannelCash].Sum.Sub(expenseTotal),
		Card:    regular[register.ChannelCard].Sum,
		Deposit: regular[register.ChannelCashInvoiced].Sum.Add(regular[register.ChannelTransfer].Sum),
	}
}

// Compare reconciles counted against expected per bucket with the default
// tolerance. A discrepancy is an expected business outcome, not an error:
// the caller still assembles and closes the settlement.
func Compare(expected Expected, counted Counted) ([]BucketResult, OverallStatus) {
	return CompareWithTolerance(expected, counted, DefaultTolerance)
}

// CompareWithTolerance reconciles with an explicit tolerance.
// Overall status is CORRECT iff every bucket matches.
func CompareWithTolerance(expected Expected, counted Counted, tolerance decimal.Decimal) ([]BucketResult, OverallStatus) {
	results := make([]BucketResult, 0, len(Buckets()))
	overall := StatusCorrect
	for _, bucket := range Buckets() {
		want := expected.Bucket(bucket)
		have := counted.Bucket(bucket).Decimal
		difference := have.Sub(want)
		status := StatusMatch
		if difference.Abs().GreaterThanOrEqual(tolerance) {
			status = StatusMismatch
			overall = StatusDiscrepant
		}
		results = append(results, BucketResult{
			Bucket:     bucket,
			Expected:   want,
			Counted:    have,
			Difference: difference,
			Status:     status,
		})
	}
	return results, overall
}
