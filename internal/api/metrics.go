package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fileshare",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fileshare",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	shareAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fileshare",
		Name:      "share_attempts_total",
		Help:      "File share attempts by outcome.",
	}, []string{"outcome"})
)

const (
	shareOutcomeShared        = "shared"
	shareOutcomeSelf          = "self_share"
	shareOutcomeAlready       = "already_shared"
	shareOutcomeNotFound      = "not_found_or_forbidden"
	shareOutcomeBadRecipient  = "invalid_recipient"
	shareOutcomeBadRequest    = "bad_request"
	shareOutcomeInternalError = "error"
)

// MetricsMiddleware records request counts and latencies labelled by the chi
// route pattern, so path parameters do not explode label cardinality.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
