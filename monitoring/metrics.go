package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

var (
	// VisitSaves counts visit record writes by operation (created, updated,
	// deleted).
	VisitSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visit_saves_total",
			Help: "Total visit record write operations",
		},
		[]string{"operation"},
	)

	// UploadFailures counts attachment uploads that failed after the visit
	// payload itself was already persisted.
	UploadFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attachment_upload_failures_total",
			Help: "Total failed attachment uploads",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(VisitSaves)
	prometheus.MustRegister(UploadFailures)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
