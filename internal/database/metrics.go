package database

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corpfetch_load_rows_inserted_total",
		Help: "Total number of rows committed to the store",
	})

	rowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corpfetch_load_rows_skipped_total",
		Help: "Total number of malformed rows skipped during load",
	})

	commitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corpfetch_load_commits_total",
		Help: "Total number of load transactions committed",
	})

	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "corpfetch_load_duration_seconds",
		Help:    "Duration of flat file loads",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})
)
