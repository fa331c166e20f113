// Package metrics provides Prometheus metrics collection for simpleschema.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "simpleschema"

// Compile outcomes used as the "result" label.
const (
	ResultOK         = "ok"
	ResultUnresolved = "unresolved"
	ResultError      = "error"
)

// Collector holds all Prometheus metrics for simpleschema.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Compiler metrics
	CompilesTotal   *prometheus.CounterVec
	CompileDuration prometheus.Histogram
	Collections     prometheus.Gauge
	Fields          prometheus.Gauge
	ResolvedJoins   prometheus.Gauge
	UnresolvedJoins prometheus.Gauge

	// Schema reload metrics
	SchemaReloads      prometheus.Counter
	SchemaReloadErrors prometheus.Counter
	SchemaLastReload   prometheus.Gauge
}

// New creates a collector registered on the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),

		CompilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compiles_total",
				Help:      "Total number of schema compilations by outcome",
			},
			[]string{"result"},
		),
		CompileDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compile_duration_seconds",
				Help:      "Schema compilation duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),
		Collections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "collections",
				Help:      "Number of collections in the current compiled schema",
			},
		),
		Fields: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "fields",
				Help:      "Number of fields in the current compiled schema",
			},
		),
		ResolvedJoins: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resolved_joins",
				Help:      "Number of reverse relations resolved into joins",
			},
		),
		UnresolvedJoins: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "unresolved_joins",
				Help:      "Number of reverse relations dropped without a join",
			},
		),

		SchemaReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reloads_total",
				Help:      "Total number of successful schema reloads",
			},
		),
		SchemaReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reload_errors_total",
				Help:      "Total number of schema reload errors",
			},
		),
		SchemaLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schema_last_reload_timestamp",
				Help:      "Unix timestamp of last successful schema reload",
			},
		),
	}
}

// CompileStats summarizes one compilation.
type CompileStats struct {
	Collections int
	Fields      int
	Resolved    int
	Unresolved  int
	Duration    time.Duration
}

// ObserveCompile records a successful compilation and updates the schema gauges.
func (c *Collector) ObserveCompile(s CompileStats) {
	result := ResultOK
	if s.Unresolved > 0 {
		result = ResultUnresolved
	}
	c.CompilesTotal.WithLabelValues(result).Inc()
	c.CompileDuration.Observe(s.Duration.Seconds())
	c.Collections.Set(float64(s.Collections))
	c.Fields.Set(float64(s.Fields))
	c.ResolvedJoins.Set(float64(s.Resolved))
	c.UnresolvedJoins.Set(float64(s.Unresolved))
}

// ObserveCompileError records a compilation that failed before producing output.
func (c *Collector) ObserveCompileError() {
	c.CompilesTotal.WithLabelValues(ResultError).Inc()
}

// ObserveReload records the outcome of a schema reload.
func (c *Collector) ObserveReload(err error, at time.Time) {
	if err != nil {
		c.SchemaReloadErrors.Inc()
		return
	}
	c.SchemaReloads.Inc()
	c.SchemaLastReload.Set(float64(at.Unix()))
}

// ObserveRequest records a finished HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.RequestsTotal.WithLabelValues(method, route, StatusClass(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// StatusClass buckets an HTTP status code into "2xx", "4xx" and so on.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}
