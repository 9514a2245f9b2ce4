// Package metrics exposes Prometheus counters for cache lookups and loads.
// Labels are limited to resource kind, source and outcome; URLs and station
// ids never become label values.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bandradio/radio-cache/internal/resource"
)

var (
	// CacheLookupsTotal counts path resolutions by kind and hit/miss.
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_cache_lookups_total",
		Help: "Total number of cache lookups, by resource kind and result (hit/miss).",
	}, []string{"kind", "result"})

	// LoadsTotal counts finished loads by kind, source and outcome.
	LoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_cache_loads_total",
		Help: "Total number of finished loads, by resource kind, source (local/network) and outcome.",
	}, []string{"kind", "source", "outcome"})

	// PersistFailuresTotal counts fetched bodies that could not be written to disk.
	PersistFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_cache_persist_failures_total",
		Help: "Total number of network bodies that parsed fine but failed to persist.",
	}, []string{"kind"})

	// DroppedStationsTotal counts list elements rejected during parsing.
	DroppedStationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radio_cache_dropped_stations_total",
		Help: "Total number of station list elements dropped because they could not be constructed.",
	})
)

// RecordLookup increments the lookup counter.
func RecordLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

// RecordLoad increments the load counter.
func RecordLoad(kind string, source resource.Source, outcome resource.Outcome) {
	LoadsTotal.WithLabelValues(kind, string(source), string(outcome)).Inc()
}
