package metrics

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
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	shopifyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopify_api_requests_total",
			Help: "Outbound Shopify API calls by operation and HTTP status (0 when no response)",
		},
		[]string{"operation", "status"},
	)

	shopifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopify_api_request_duration_seconds",
			Help:    "Duration of outbound Shopify API calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"operation"},
	)
)

// unmatchedRoute labels requests no route matched, keeping label cardinality
// bounded.
const unmatchedRoute = "unmatched"

// Middleware records request counts and latencies per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveShopifyCall records one outbound call. status is 0 when the
// request never got a response.
func ObserveShopifyCall(operation string, status int, start time.Time) {
	shopifyRequests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	shopifyDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
