package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// RuntimeCollector collects Go runtime metrics.
type RuntimeCollector struct {
	allocBytes     prometheus.Gauge
	sysBytes       prometheus.Gauge
	heapInuseBytes prometheus.Gauge
	numGC          prometheus.Counter
	gcPauseSeconds prometheus.Histogram
	numGoroutines  prometheus.Gauge

	lastNumGC uint32

	logger *zap.Logger
	stopCh chan struct{}
}

// NewRuntimeCollector creates a new runtime metrics collector.
func NewRuntimeCollector(registry *prometheus.Registry, logger *zap.Logger) *RuntimeCollector {
	rc := &RuntimeCollector{
		allocBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loginflow_runtime_alloc_bytes",
			Help: "Bytes of allocated heap objects",
		}),
		sysBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loginflow_runtime_sys_bytes",
			Help: "Total bytes of memory obtained from the OS",
		}),
		heapInuseBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loginflow_runtime_heap_inuse_bytes",
			Help: "Bytes in in-use spans",
		}),
		numGC: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loginflow_runtime_gc_total",
			Help: "Number of completed GC cycles",
		}),
		gcPauseSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "loginflow_runtime_gc_pause_seconds",
			Help:    "GC pause duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),
		numGoroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loginflow_runtime_goroutines",
			Help: "Number of goroutines that currently exist",
		}),
		logger: logger,
		stopCh: make(chan struct{}),
	}

	registry.MustRegister(rc.allocBytes)
	registry.MustRegister(rc.sysBytes)
	registry.MustRegister(rc.heapInuseBytes)
	registry.MustRegister(rc.numGC)
	registry.MustRegister(rc.gcPauseSeconds)
	registry.MustRegister(rc.numGoroutines)

	return rc
}

// Start begins collecting runtime metrics.
func (rc *RuntimeCollector) Start(interval time.Duration) {
	rc.logger.Info("Starting runtime metrics collection", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rc.collect()
			case <-rc.stopCh:
				return
			}
		}
	}()
}

// Stop stops collecting runtime metrics.
func (rc *RuntimeCollector) Stop() {
	rc.logger.Info("Stopping runtime metrics collection")
	close(rc.stopCh)
}

func (rc *RuntimeCollector) collect() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	rc.allocBytes.Set(float64(m.Alloc))
	rc.sysBytes.Set(float64(m.Sys))
	rc.heapInuseBytes.Set(float64(m.HeapInuse))

	if delta := m.NumGC - rc.lastNumGC; delta > 0 {
		rc.numGC.Add(float64(delta))
		rc.gcPauseSeconds.Observe(float64(m.PauseNs[(m.NumGC+255)%256]) / 1e9)
		rc.lastNumGC = m.NumGC
	}

	rc.numGoroutines.Set(float64(runtime.NumGoroutine()))
}
