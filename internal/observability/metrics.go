// Package observability exposes Prometheus metrics for the HTTP surface and
// the page ingestion pipeline.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openark_http_requests_total",
		Help: "HTTP requests by method, route pattern, and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openark_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// PagesProcessed counts pages through the ingestion pipeline by outcome:
	// "ok", "ocr_failed" (failure marker stored), or "dropped" (upload failed).
	PagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openark_pages_processed_total",
		Help: "Pages through the ingestion pipeline by outcome.",
	}, []string{"outcome"})

	// OCRRequests counts outbound OCR calls by result.
	OCRRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openark_ocr_requests_total",
		Help: "Outbound OCR requests by result (ok, failure, transport_error).",
	}, []string{"result"})

	// MediaUploads counts outbound media store pushes by result.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openark_media_uploads_total",
		Help: "Outbound media uploads by result (ok, error).",
	}, []string{"result"})
)

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware records request counts and latencies. The route pattern is
// resolved by the caller-supplied function after the handler runs, so chi's
// matched pattern (not the raw path) becomes the label.
func HTTPMiddleware(routePattern func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := routePattern(r)
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
