// Package metrics provides Prometheus metrics for the keeptree server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeptree_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "pattern", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keeptree_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "pattern"},
	)

	manifestsParsedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeptree_manifests_parsed_total",
			Help: "Manifests parsed, by result",
		},
		[]string{"result"},
	)

	manifestParseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "keeptree_manifest_parse_duration_seconds",
			Help:    "Time to parse and map one manifest",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	listingCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeptree_listing_cache_lookups_total",
			Help: "Listing cache lookups, by result",
		},
		[]string{"result"},
	)

	collectionsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keeptree_collections",
			Help: "Number of collections in the catalog",
		},
	)

	watchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeptree_watch_events_total",
			Help: "Manifest files synced by the watcher, by result",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, pattern string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, pattern).Observe(duration.Seconds())
}

// RecordParse records one manifest parse.
func RecordParse(duration time.Duration, err error) {
	manifestParseDuration.Observe(duration.Seconds())
	manifestsParsedTotal.WithLabelValues(result(err == nil)).Inc()
}

// RecordListingCache records a listing cache lookup.
func RecordListingCache(hit bool) {
	r := "miss"
	if hit {
		r = "hit"
	}
	listingCacheLookups.WithLabelValues(r).Inc()
}

// SetCollections sets the current collection count.
func SetCollections(n int) {
	collectionsTotal.Set(float64(n))
}

// RecordWatchEvent records one watcher sync.
func RecordWatchEvent(success bool) {
	watchEventsTotal.WithLabelValues(result(success)).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
