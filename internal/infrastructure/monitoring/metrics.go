package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Each instance owns its registry so
// several servers (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Device metrics
	SessionsActive  prometheus.Gauge
	SessionsOpened  *prometheus.CounterVec
	ReadBytes       *prometheus.CounterVec
	WrittenBytes    *prometheus.CounterVec
	Signals         *prometheus.CounterVec
	ReadersReleased *prometheus.CounterVec
	WaitsInterrupt  *prometheus.CounterVec

	// gRPC metrics
	RPCCalls    *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for the JSON stats endpoint
	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current request totals for the JSON API
type MetricsSnapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	TotalDuration float64 `json:"total_duration_seconds"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatedev_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatedev_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds, including time parked on the gate",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30, 120},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatedev_sessions_active",
				Help: "Number of open endpoint sessions",
			},
		),
		SessionsOpened: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatedev_sessions_opened_total",
				Help: "Total number of sessions opened",
			},
			[]string{"endpoint"},
		),
		ReadBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatedev_bytes_read_total",
				Help: "Bytes copied out of the shared buffer",
			},
			[]string{"endpoint"},
		),
		WrittenBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatedev_bytes_written_total",
				Help: "Bytes copied into the shared buffer",
			},
			[]string{"endpoint"},
		),
		Signals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatedev_gate_signals_total",
				Help: "Number of gate signals",
			},
			[]string{"endpoint"},
		),
		ReadersReleased: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatedev_gate_readers_released_total",
				Help: "Number of parked readers released by signals",
			},
			[]string{"endpoint"},
		),
		WaitsInterrupt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatedev_gate_waits_interrupted_total",
				Help: "Number of gate waits that ended without a signal",
			},
			[]string{"endpoint"},
		),

		RPCCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatedev_rpc_calls_total",
				Help: "Total number of gRPC calls",
			},
			[]string{"method", "code"},
		),
		RPCDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatedev_rpc_duration_seconds",
				Help:    "gRPC call duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30, 120},
			},
			[]string{"method"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatedev_ws_connections",
				Help: "Number of active WebSocket streams",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatedev_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "gatedev_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry backing these metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRPC records a gRPC call
func (m *Metrics) RecordRPC(method, code string, duration time.Duration) {
	m.RPCCalls.WithLabelValues(method, code).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns the current request totals
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
