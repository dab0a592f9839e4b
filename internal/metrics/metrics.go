// Package metrics exposes Prometheus instrumentation for snapshot rebuilds,
// reachability queries and connected viewers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	snapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depflow_snapshots_total",
		Help: "Snapshots applied, by source",
	}, []string{"source"})

	skippedLinksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depflow_skipped_links_total",
		Help: "Links dropped from display because an endpoint has no tree node",
	})

	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depflow_queries_total",
		Help: "Reachability queries by direction and cache outcome",
	}, []string{"direction", "cache"})

	modulesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depflow_modules",
		Help: "Tree nodes in the current snapshot",
	})

	linksGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depflow_links",
		Help: "Edges in the current snapshot",
	})

	wsClientsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depflow_ws_clients",
		Help: "Connected websocket viewers",
	})

	rebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depflow_rebuild_duration_seconds",
		Help:    "Time to rebuild tree and graph from a snapshot",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})
)

// SnapshotApplied records a rebuild.
func SnapshotApplied(source string, nodes, links, skipped int, took time.Duration) {
	if source == "" {
		source = "api"
	}
	snapshotsTotal.WithLabelValues(source).Inc()
	skippedLinksTotal.Add(float64(skipped))
	modulesGauge.Set(float64(nodes))
	linksGauge.Set(float64(links))
	rebuildDuration.Observe(took.Seconds())
}

// Query records one reachability query.
func Query(direction string, cached bool) {
	outcome := "miss"
	if cached {
		outcome = "hit"
	}
	queriesTotal.WithLabelValues(direction, outcome).Inc()
}

// ClientConnected and ClientDisconnected track websocket viewers.
func ClientConnected()    { wsClientsGauge.Inc() }
func ClientDisconnected() { wsClientsGauge.Dec() }

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
