package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/procfs"
	"go.uber.org/zap"
)

// Reporter samples pipeline throughput, latency and process resource usage
// once every fixed count of processed events. It is a read-only observer;
// a failed sample is logged and processing continues.
type Reporter struct {
	sampleEvery int64
	collector   *Collector
	logger      *zap.Logger

	proc    procfs.Proc
	hasProc bool

	mu            sync.Mutex
	total         int64
	windowCount   int64
	windowLatency time.Duration
	windowStart   time.Time
	lastCPUTime   float64
	lastCPUAt     time.Time
}

// NewReporter creates a reporter sampling every sampleEvery processed
// events (default 100). The collector is optional; when present the sampled
// values are also exported as gauges.
func NewReporter(sampleEvery int, collector *Collector, logger *zap.Logger) *Reporter {
	if sampleEvery <= 0 {
		sampleEvery = 100
	}

	r := &Reporter{
		sampleEvery: int64(sampleEvery),
		collector:   collector,
		logger:      logger,
		windowStart: time.Now(),
		lastCPUAt:   time.Now(),
	}

	proc, err := procfs.Self()
	if err != nil {
		// No /proc (or not Linux). CPU/memory sampling degrades to zero.
		logger.Warn("Process stats unavailable", zap.Error(err))
	} else {
		r.proc = proc
		r.hasProc = true
		if stat, err := proc.Stat(); err == nil {
			r.lastCPUTime = stat.CPUTime()
		}
	}

	return r
}

// Record accounts one processed event and emits a sample when the window
// fills.
func (r *Reporter) Record(latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	r.windowCount++
	r.windowLatency += latency

	if r.total%r.sampleEvery == 0 {
		r.sample()
	}
}

// Total returns the number of events recorded so far.
func (r *Reporter) Total() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// sample emits one benchmark line and updates the gauges. Called with the
// mutex held.
func (r *Reporter) sample() {
	now := time.Now()
	elapsed := now.Sub(r.windowStart)
	if elapsed <= 0 || r.windowCount == 0 {
		return
	}

	throughput := float64(r.windowCount) / elapsed.Seconds()
	avgLatency := r.windowLatency / time.Duration(r.windowCount)

	cpuPercent, residentBytes := r.sampleProcess(now)

	r.logger.Info("Pipeline sample",
		zap.Int64("events_total", r.total),
		zap.Float64("throughput_per_sec", throughput),
		zap.Duration("avg_latency", avgLatency),
		zap.Float64("cpu_percent", cpuPercent),
		zap.Int64("resident_bytes", residentBytes))

	if r.collector != nil {
		r.collector.SampleThroughput.Set(throughput)
		r.collector.SampleAvgLatency.Set(avgLatency.Seconds())
		r.collector.ProcessCPU.Set(cpuPercent)
		r.collector.ProcessResident.Set(float64(residentBytes))
	}

	r.windowCount = 0
	r.windowLatency = 0
	r.windowStart = now
}

// sampleProcess reads CPU and memory usage from /proc. Errors are logged
// and reported as zeros; sampling never interrupts the pipeline.
func (r *Reporter) sampleProcess(now time.Time) (cpuPercent float64, residentBytes int64) {
	if !r.hasProc {
		return 0, 0
	}

	stat, err := r.proc.Stat()
	if err != nil {
		r.logger.Warn("Failed to sample process stats", zap.Error(err))
		return 0, 0
	}

	wall := now.Sub(r.lastCPUAt).Seconds()
	if wall > 0 {
		cpuPercent = (stat.CPUTime() - r.lastCPUTime) / wall * 100
	}
	r.lastCPUTime = stat.CPUTime()
	r.lastCPUAt = now

	return cpuPercent, int64(stat.ResidentMemory())
}
