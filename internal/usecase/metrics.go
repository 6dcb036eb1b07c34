package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// scansTotal counts finished scans.
	// Labels: status (success, partial, cancelled, ingestion_error, grouping_fault, error)
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dupelens",
		Subsystem: "scan",
		Name:      "total",
		Help:      "Total scans by outcome",
	}, []string{"status"})

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dupelens",
		Subsystem: "scan",
		Name:      "duration_seconds",
		Help:      "Wall time of a scan from first request to last write",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	})

	itemsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dupelens",
		Subsystem: "scan",
		Name:      "items_total",
		Help:      "Catalog items fetched by scans",
	})

	// groupsFound counts duplicate groups. Labels: rule
	groupsFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dupelens",
		Subsystem: "scan",
		Name:      "groups_total",
		Help:      "Duplicate groups found per rule",
	}, []string{"rule"})

	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dupelens",
		Subsystem: "scan",
		Name:      "persist_failures_total",
		Help:      "Group and statistics writes that failed",
	})

	throttledRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dupelens",
		Subsystem: "fetch",
		Name:      "throttled_total",
		Help:      "Catalog requests answered with a throttling error",
	})

	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dupelens",
		Subsystem: "fetch",
		Name:      "pages_total",
		Help:      "Catalog pages fetched",
	})
)
