package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector holds all Prometheus metrics for the enrichment pipeline.
type Collector struct {
	// Pipeline metrics
	EventsConsumed    prometheus.Counter
	EventsPublished   prometheus.Counter
	EventsDropped     *prometheus.CounterVec
	ProcessingLatency prometheus.Histogram
	PublishFailures   prometheus.Counter

	// Aggregate state metrics
	AggregateKeys    *prometheus.GaugeVec
	DeviceTypeLogins *prometheus.GaugeVec

	// Sampled reporter metrics
	SampleThroughput prometheus.Gauge
	SampleAvgLatency prometheus.Gauge
	ProcessCPU       prometheus.Gauge
	ProcessResident  prometheus.Gauge

	registry *prometheus.Registry
	logger   *zap.Logger
}

// NewCollector creates a new Prometheus metrics collector.
func NewCollector(logger *zap.Logger) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		logger:   logger,
	}

	c.initMetrics()
	c.registerMetrics()

	return c
}

func (c *Collector) initMetrics() {
	c.EventsConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loginflow_events_consumed_total",
			Help: "Total number of raw events read from the input topic",
		},
	)

	c.EventsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loginflow_events_published_total",
			Help: "Total number of enriched events handed to the publisher",
		},
	)

	c.EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginflow_events_dropped_total",
			Help: "Total number of events dropped before enrichment",
		},
		[]string{"reason"},
	)

	c.ProcessingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loginflow_processing_latency_seconds",
			Help:    "Per-event processing latency from decode to publish handoff",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	c.PublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loginflow_publish_failures_total",
			Help: "Total number of publishes that exhausted their retry budget",
		},
	)

	c.AggregateKeys = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loginflow_aggregate_keys",
			Help: "Current number of tracked keys per aggregate dimension",
		},
		[]string{"dimension"},
	)

	c.DeviceTypeLogins = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loginflow_device_type_logins",
			Help: "Cumulative logins per device type",
		},
		[]string{"device_type"},
	)

	c.SampleThroughput = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loginflow_sample_throughput_events_per_second",
			Help: "Throughput over the last sample window",
		},
	)

	c.SampleAvgLatency = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loginflow_sample_avg_latency_seconds",
			Help: "Average per-event processing latency over the last sample window",
		},
	)

	c.ProcessCPU = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loginflow_process_cpu_percent",
			Help: "Process CPU utilization over the last sample window",
		},
	)

	c.ProcessResident = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loginflow_process_resident_bytes",
			Help: "Process resident memory at the last sample",
		},
	)
}

func (c *Collector) registerMetrics() {
	c.registry.MustRegister(c.EventsConsumed)
	c.registry.MustRegister(c.EventsPublished)
	c.registry.MustRegister(c.EventsDropped)
	c.registry.MustRegister(c.ProcessingLatency)
	c.registry.MustRegister(c.PublishFailures)
	c.registry.MustRegister(c.AggregateKeys)
	c.registry.MustRegister(c.DeviceTypeLogins)
	c.registry.MustRegister(c.SampleThroughput)
	c.registry.MustRegister(c.SampleAvgLatency)
	c.registry.MustRegister(c.ProcessCPU)
	c.registry.MustRegister(c.ProcessResident)
}

// Registry exposes the private registry so optional collectors (runtime
// stats) can attach to the same endpoint.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Server creates an HTTP server for metrics exposition.
type Server struct {
	collector *Collector
	server    *http.Server
	logger    *zap.Logger
}

// NewServer creates a new metrics HTTP server.
func NewServer(addr string, collector *Collector, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		collector: collector,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start starts the metrics HTTP server.
func (s *Server) Start() error {
	s.logger.Info("Starting metrics server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the metrics server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping metrics server")
	return s.server.Close()
}
