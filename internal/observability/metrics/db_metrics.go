package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "consultations_today",
			Help: "Non-cancelled consultations recorded for the current day",
		},
		func() float64 {
			return queryCount(db, logger,
				"SELECT COUNT(*) FROM consultations WHERE day_start = date_trunc('day', now() AT TIME ZONE 'utc') AND cancelled_at IS NULL")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "settlements_open_days",
			Help: "Past days without a closed settlement record",
		},
		func() float64 {
			return queryCount(db, logger, `
SELECT COUNT(*) FROM (
	SELECT DISTINCT day_start FROM consultations
	WHERE day_start < date_trunc('day', now() AT TIME ZONE 'utc')
) days
WHERE NOT EXISTS (
	SELECT 1 FROM settlement_records r
	WHERE r.day_start = days.day_start AND r.status = 'closed'
)`)
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
