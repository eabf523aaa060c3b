package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filterpanel",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "filterpanel",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	fabricInstalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filterpanel",
			Subsystem: "inventory",
			Name:      "fabric_installs_total",
			Help:      "Fabric installations by outcome (installed, replaced, rejected, failed).",
		},
		[]string{"outcome"},
	)
	anomalyReports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filterpanel",
			Subsystem: "inventory",
			Name:      "anomaly_reports_total",
			Help:      "Anomaly reports by outcome (logged, rejected, failed).",
		},
		[]string{"outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, fabricInstalls, anomalyReports)
	})
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

func RecordFabricInstall(outcome string) {
	RegisterMetrics()
	fabricInstalls.WithLabelValues(outcome).Inc()
}

func RecordAnomalyReport(outcome string) {
	RegisterMetrics()
	anomalyReports.WithLabelValues(outcome).Inc()
}
