package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corpfetch_search_requests_total",
		Help: "Total number of search API requests by HTTP status",
	}, []string{"status"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corpfetch_search_errors_total",
		Help: "Total number of failed page fetch attempts by error class",
	}, []string{"error_class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corpfetch_search_retries_total",
		Help: "Total number of page fetch retries by error class",
	}, []string{"error_class"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "corpfetch_search_request_duration_seconds",
		Help:    "Search API request latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	recordsCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corpfetch_search_records_collected_total",
		Help: "Total number of company records accepted into result sets",
	})

	duplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corpfetch_search_duplicates_total",
		Help: "Total number of company records dropped as duplicates",
	})
)
