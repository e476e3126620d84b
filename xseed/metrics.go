package xseed

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	matchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ptxseed_matches_total",
		Help: "Site matches processed by cross-seed scans, by result",
	}, []string{"site", "result"})
	queryErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ptxseed_query_errors_total",
		Help: "Failed site pieces hash queries",
	}, []string{"site"})
	recheckStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ptxseed_recheck_started_total",
		Help: "Verified cross-seed torrents started by recheck polls",
	}, []string{"client"})
	scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ptxseed_scan_duration_seconds",
		Help:    "Duration of cross-seed scans",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	registerOnce sync.Once
)

// Match results used as "result" label value.
const (
	ResultNew      = "new"
	ResultExisting = "existing"
	ResultFailed   = "failed"
	ResultCached   = "cached"
)

// Register collectors to the default prometheus registry. Safe to call multiple times.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(matchesTotal, queryErrorsTotal, recheckStartedTotal, scanDuration)
	})
}
