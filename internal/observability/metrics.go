package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	updatesApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcesync",
			Subsystem: "replica",
			Name:      "updates_applied_total",
			Help:      "Incremental updates applied to the replica tree.",
		},
		[]string{"kind"},
	)
	resyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcesync",
			Subsystem: "replica",
			Name:      "resyncs_total",
			Help:      "Times the replica was marked stale.",
		},
		[]string{"reason"},
	)
	decodeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sourcesync",
			Subsystem: "sync",
			Name:      "decode_failures_total",
			Help:      "Inbound payloads dropped because they failed to decode.",
		},
	)
	fullStateRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sourcesync",
			Subsystem: "sync",
			Name:      "full_state_requests_total",
			Help:      "Full-state requests sent to the engine.",
		},
	)
	transportUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sourcesync",
			Subsystem: "transport",
			Name:      "up",
			Help:      "1 while the engine is reachable.",
		},
		[]string{"mode"},
	)
	transportReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcesync",
			Subsystem: "transport",
			Name:      "reconnects_total",
			Help:      "WebSocket connection attempts.",
		},
		[]string{"scheme", "success"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcesync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sourcesync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			updatesApplied,
			resyncs,
			decodeFailures,
			fullStateRequests,
			transportUp,
			transportReconnects,
			httpRequests,
			httpDuration,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordUpdateApplied(kind string) {
	RegisterMetrics()
	updatesApplied.WithLabelValues(kind).Inc()
}

func RecordResync(reason string) {
	RegisterMetrics()
	resyncs.WithLabelValues(reason).Inc()
}

func RecordDecodeFailure() {
	RegisterMetrics()
	decodeFailures.Inc()
}

func RecordFullStateRequest() {
	RegisterMetrics()
	fullStateRequests.Inc()
}

func SetTransportUp(mode string, up bool) {
	RegisterMetrics()
	v := 0.0
	if up {
		v = 1
	}
	transportUp.WithLabelValues(mode).Set(v)
}

func RecordReconnect(scheme string, success bool) {
	RegisterMetrics()
	transportReconnects.WithLabelValues(scheme, strconv.FormatBool(success)).Inc()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
