package metrics

import (
	"database/sql"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "clinic_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	intakeTotal *prometheus.CounterVec
	cancelTotal *prometheus.CounterVec
	repairTotal *prometheus.CounterVec

	closeTotal    *prometheus.CounterVec
	closeOutcomes *prometheus.CounterVec
	exportTotal   *prometheus.CounterVec

	discrepancyAmount prometheus.Histogram
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		intakeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "consultation_intake_total",
				Help: "Total consultation intakes by result",
			},
			[]string{"result"},
		)
		cancelTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "consultation_cancel_total",
				Help: "Total consultation cancellations by result",
			},
			[]string{"result"},
		)
		repairTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sequence_repair_total",
				Help: "Total sequence repair runs by result",
			},
			[]string{"result"},
		)

		closeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_close_total",
				Help: "Total register closes by result",
			},
			[]string{"result"},
		)
		closeOutcomes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_outcome_total",
				Help: "Total register closes by reconciliation outcome",
			},
			[]string{"outcome"},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_export_total",
				Help: "Total settlement exports by format and result",
			},
			[]string{"format", "result"},
		)

		discrepancyAmount = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_discrepancy_abs",
				Help:    "Absolute per-close discrepancy in currency units",
				Buckets: []float64{0.01, 0.1, 1, 5, 10, 50, 100, 500},
			},
		)

		prometheus.MustRegister(
			intakeTotal,
			cancelTotal,
			repairTotal,
			closeTotal,
			closeOutcomes,
			exportTotal,
			discrepancyAmount,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// CountIntake increments the intake counter.
func CountIntake(result string) {
	if result == "" {
		result = resultSuccess
	}
	if intakeTotal != nil {
		intakeTotal.WithLabelValues(result).Inc()
	}
}

// CountCancel increments the cancellation counter.
func CountCancel(result string) {
	if result == "" {
		result = resultSuccess
	}
	if cancelTotal != nil {
		cancelTotal.WithLabelValues(result).Inc()
	}
}

// CountRepair increments the sequence repair counter.
func CountRepair(result string) {
	if result == "" {
		result = resultSuccess
	}
	if repairTotal != nil {
		repairTotal.WithLabelValues(result).Inc()
	}
}

// CountClose increments the register close counter.
func CountClose(result string) {
	if result == "" {
		result = resultSuccess
	}
	if closeTotal != nil {
		closeTotal.WithLabelValues(result).Inc()
	}
}

// ObserveOutcome counts a close's reconciliation outcome.
func ObserveOutcome(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if closeOutcomes != nil {
		closeOutcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveDiscrepancy records the absolute discrepancy of one close.
func ObserveDiscrepancy(abs float64) {
	if abs < 0 {
		abs = -abs
	}
	if discrepancyAmount != nil {
		discrepancyAmount.Observe(abs)
	}
}

// CountExport increments the export counter.
func CountExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
