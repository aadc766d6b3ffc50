package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/energimultiguna/cngops/internal/ingest"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cngops_http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"route", "method", "status"},
	)
	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cngops_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	reportsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cngops_reports_submitted_total",
			Help: "Submitted delivery and restock reports by outcome.",
		},
		[]string{"kind", "status"},
	)
)

func observeHTTPRequest(r *http.Request, status int, dur time.Duration) {
	route := routeLabel(r)
	method := r.Method

	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(route, method).Observe(dur.Seconds())
}

// routeLabel names a request by the mux pattern it matched so path values such
// as plates do not explode label cardinality.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "other"
	}
	pattern := r.Pattern
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = pattern[i+1:]
	}
	return pattern
}

// SubmissionRecorder counts ingest outcomes in the report submission metric
type SubmissionRecorder struct{}

func (SubmissionRecorder) ReportSubmitted(kind string, status ingest.Status) {
	reportsSubmittedTotal.WithLabelValues(kind, string(status)).Inc()
}
