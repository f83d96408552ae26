// Package metrics provides Prometheus telemetry for the ledger client, the
// query cache, transaction submissions and the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry and the Suiven collectors.
type Collector struct {
	registry *prometheus.Registry

	rpcRequests *prometheus.CounterVec
	rpcLatency  *prometheus.HistogramVec

	cacheLookups       *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec

	submissions       *prometheus.CounterVec
	submissionLatency *prometheus.HistogramVec

	parseRejections *prometheus.CounterVec

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates a collector. An empty namespace defaults to "suiven".
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "suiven"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.rpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total number of ledger JSON-RPC requests.",
		},
		[]string{"method", "status"},
	)
	c.rpcLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "Duration of ledger JSON-RPC requests.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"method"},
	)

	c.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Query cache lookups by key class and result.",
		},
		[]string{"class", "result"},
	)
	c.cacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidated_keys_total",
			Help:      "Query cache keys removed by change notices.",
		},
		[]string{"class"},
	)

	c.submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "submissions_total",
			Help:      "Transaction submissions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)
	c.submissionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "submission_duration_seconds",
			Help:      "Duration from build to confirmed submission.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"action"},
	)

	c.parseRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "rejections_total",
			Help:      "Ledger objects that did not parse into an entity.",
		},
		[]string{"kind", "reason"},
	)

	c.httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)
	c.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)
	c.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	c.registry.MustRegister(
		c.rpcRequests,
		c.rpcLatency,
		c.cacheLookups,
		c.cacheInvalidations,
		c.submissions,
		c.submissionLatency,
		c.parseRejections,
		c.httpInFlight,
		c.httpRequests,
		c.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveRPC records one ledger round trip.
func (c *Collector) ObserveRPC(method, status string, elapsed time.Duration) {
	c.rpcRequests.WithLabelValues(method, status).Inc()
	c.rpcLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RecordCacheLookup records a hit or miss for a key class.
func (c *Collector) RecordCacheLookup(class string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(class, result).Inc()
}

// RecordInvalidation records n keys removed for a key class.
func (c *Collector) RecordInvalidation(class string, n int) {
	if n <= 0 {
		return
	}
	c.cacheInvalidations.WithLabelValues(class).Add(float64(n))
}

// RecordSubmission records a transaction submission attempt.
func (c *Collector) RecordSubmission(action string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.submissions.WithLabelValues(action, outcome).Inc()
	if err == nil {
		c.submissionLatency.WithLabelValues(action).Observe(duration.Seconds())
	}
}

// RecordParseRejection records an object that did not parse.
func (c *Collector) RecordParseRejection(kind, reason string) {
	c.parseRejections.WithLabelValues(kind, reason).Inc()
}

// InstrumentHandler wraps next with HTTP metrics. route names the matched
// route template so ids do not explode label cardinality.
func (c *Collector) InstrumentHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		c.httpInFlight.Inc()
		defer c.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		method := strings.ToUpper(r.Method)
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
