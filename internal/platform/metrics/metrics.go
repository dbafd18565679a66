// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpReqTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	httpReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request duration in ms",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"route", "method"},
	)

	settlementTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_settlements_total",
			Help: "Payment verifications by outcome",
		},
		[]string{"outcome"},
	)

	contestTransitionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_transitions_total",
			Help: "Contest status changes by target status and result",
		},
		[]string{"to", "result"},
	)

	reconcileRepairTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_repairs_total",
			Help: "Drift repaired by reconciliation, by kind",
		},
		[]string{"kind"},
	)

	reconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcile_run_duration_ms",
			Help:    "Duration of a reconciliation pass in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		},
	)
)

// Settlement outcomes.
const (
	SettlementEnrolled          = "enrolled"
	SettlementAlreadyRegistered = "already_registered"
	SettlementIncomplete        = "incomplete"
	SettlementPartial           = "partial"
	SettlementFailed            = "failed"
)

func RecordSettlement(outcome string) {
	settlementTotal.WithLabelValues(outcome).Inc()
}

// RecordTransition counts a contest status change. result is "success" or "conflict".
func RecordTransition(to, result string) {
	contestTransitionTotal.WithLabelValues(to, result).Inc()
}

// RecordRepair counts a drift fix. kind is "participants" or "closed".
func RecordRepair(kind string) {
	reconcileRepairTotal.WithLabelValues(kind).Inc()
}

func RecordReconcile(started time.Time) {
	reconcileDuration.Observe(float64(time.Since(started).Milliseconds()))
}

// HTTP records request count and latency labelled by the matched chi route pattern.
func HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpReqDuration.WithLabelValues(route, r.Method).Observe(float64(time.Since(start).Milliseconds()))
		httpReqTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	})
}
