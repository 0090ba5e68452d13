// Package metrics holds the Prometheus collectors for learnerdash.
//
// Collectors are registered on a private registry (not the global default)
// so tests can build as many Metrics values as they like. Every method is
// nil-safe: a nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "learnerdash"

// Label names.
const (
	LabelScope    = "scope"
	LabelKind     = "kind"
	LabelDecision = "decision"
	LabelRoute    = "route"
	LabelStatus   = "status"
)

// Metrics is the set of collectors exported at /metrics.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSubscriptions *prometheus.GaugeVec
	SnapshotsDelivered  *prometheus.CounterVec
	FeedErrors          *prometheus.CounterVec
	AggregateDuration   prometheus.Histogram
	GuardDecisions      *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ActiveSubscriptions: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscriptions_active",
			Help:      "Open live collection and document subscriptions",
		}, []string{LabelScope}),
		SnapshotsDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_snapshots_delivered_total",
			Help:      "Snapshots delivered to subscribers",
		}, []string{LabelScope}),
		FeedErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_feed_errors_total",
			Help:      "Subscriptions terminated by an error",
		}, []string{LabelKind}),
		AggregateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_duration_seconds",
			Help:      "Time to aggregate one users snapshot",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		GuardDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Session guard outcomes",
		}, []string{LabelDecision}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		}, []string{LabelRoute, LabelStatus}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelRoute}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SubscriptionOpened(scope string) {
	if m != nil {
		m.ActiveSubscriptions.WithLabelValues(scope).Inc()
	}
}

func (m *Metrics) SubscriptionClosed(scope string) {
	if m != nil {
		m.ActiveSubscriptions.WithLabelValues(scope).Dec()
	}
}

func (m *Metrics) SnapshotDelivered(scope string) {
	if m != nil {
		m.SnapshotsDelivered.WithLabelValues(scope).Inc()
	}
}

func (m *Metrics) FeedError(kind string) {
	if m != nil {
		m.FeedErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) ObserveAggregate(d time.Duration) {
	if m != nil {
		m.AggregateDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) GuardDecision(decision string) {
	if m != nil {
		m.GuardDecisions.WithLabelValues(decision).Inc()
	}
}

// Middleware records request counts and latency by chi route pattern.
// Long-lived event streams are counted but their duration is not observed.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		if r.Header.Get("Accept") != "text/event-stream" {
			m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}
