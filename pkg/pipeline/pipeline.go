package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/therealutkarshpriyadarshi/loginflow/pkg/aggregate"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/anomaly"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/enrich"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/event"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/ingestion"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/pipeerr"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/tracing"
)

// Source produces raw messages into the pipeline and tracks consumption
// progress.
type Source interface {
	Run(ctx context.Context, output chan<- *ingestion.Message) error
	StoreOffset(msg *ingestion.Message) error
	Stop() error
	Name() string
}

// Publisher delivers enriched events to the output stream.
type Publisher interface {
	Write(ctx context.Context, processed *event.ProcessedEvent) error
	Flush(ctx context.Context) error
	Close() error
}

// fatalReporter is implemented by publishers that surface async delivery
// failures.
type fatalReporter interface {
	FatalErrors() <-chan error
}

// Config holds pipeline configuration.
type Config struct {
	// ChannelBuffer is the capacity of the dispatch and per-partition
	// worker channels.
	ChannelBuffer int
	// StatsInterval is how often aggregate key-cardinality gauges are
	// refreshed.
	StatsInterval time.Duration
}

// DefaultConfig returns default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		ChannelBuffer: 1024,
		StatsInterval: 10 * time.Second,
	}
}

// Pipeline drives raw messages through decode, filter, aggregate, detect,
// enrich and publish. Each partition is owned by one worker goroutine, so
// per-partition input order is preserved through to publication; the
// aggregation store is the only state shared between workers.
type Pipeline struct {
	source    Source
	publisher Publisher
	decoder   *event.Decoder
	store     *aggregate.Store
	collector *metrics.Collector
	reporter  *metrics.Reporter
	logger    *zap.Logger
	tracer    trace.Tracer
	config    Config
	runID     string

	fatal chan error

	mu      sync.Mutex
	workers map[int32]chan *ingestion.Message
	wg      sync.WaitGroup
}

// New assembles a pipeline from its stages.
func New(
	source Source,
	publisher Publisher,
	decoder *event.Decoder,
	store *aggregate.Store,
	collector *metrics.Collector,
	reporter *metrics.Reporter,
	config Config,
	logger *zap.Logger,
) *Pipeline {
	if config.ChannelBuffer <= 0 {
		config.ChannelBuffer = DefaultConfig().ChannelBuffer
	}
	if config.StatsInterval <= 0 {
		config.StatsInterval = DefaultConfig().StatsInterval
	}

	return &Pipeline{
		source:    source,
		publisher: publisher,
		decoder:   decoder,
		store:     store,
		collector: collector,
		reporter:  reporter,
		logger:    logger,
		tracer:    tracing.Tracer(),
		config:    config,
		runID:     uuid.NewString(),
		fatal:     make(chan error, 1),
		workers:   make(map[int32]chan *ingestion.Message),
	}
}

// Run consumes and processes events until the context is cancelled, the
// source fails, or a record is terminally lost to the transport. On
// shutdown, in-flight events are drained, the publisher is flushed
// best-effort and the source is closed.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("Starting pipeline",
		zap.String("run_id", p.runID),
		zap.String("source", p.source.Name()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	input := make(chan *ingestion.Message, p.config.ChannelBuffer)
	sourceErr := make(chan error, 1)
	go func() {
		sourceErr <- p.source.Run(ctx, input)
	}()

	if fr, ok := p.publisher.(fatalReporter); ok {
		go p.watchPublisher(ctx, fr.FatalErrors())
	}

	go p.statsLoop(ctx)

	var runErr error
dispatch:
	for {
		select {
		case <-ctx.Done():
			break dispatch
		case err := <-sourceErr:
			runErr = err
			break dispatch
		case err := <-p.fatal:
			runErr = err
			break dispatch
		case msg := <-input:
			p.workerFor(msg.Partition) <- msg
		}
	}

	cancel()
	p.closeWorkers()
	p.wg.Wait()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer flushCancel()
	if err := p.publisher.Flush(flushCtx); err != nil {
		p.logger.Error("Failed to flush publisher on shutdown", zap.Error(err))
	}

	if err := p.source.Stop(); err != nil {
		p.logger.Error("Failed to stop source", zap.Error(err))
	}

	p.logger.Info("Pipeline stopped",
		zap.String("run_id", p.runID),
		zap.Int64("events_observed", p.store.Observed()))

	return runErr
}

// workerFor returns the channel feeding the worker that owns a partition,
// starting the worker on first sight of the partition.
func (p *Pipeline) workerFor(partition int32) chan<- *ingestion.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ch, ok := p.workers[partition]; ok {
		return ch
	}

	ch := make(chan *ingestion.Message, p.config.ChannelBuffer)
	p.workers[partition] = ch

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.logger.Info("Worker started", zap.Int32("partition", partition))
		var failed bool
		for msg := range ch {
			if failed {
				// A record on this partition was lost to the transport.
				// Offset stores are cumulative, so advancing past it would
				// commit the lost record away; skip everything behind it.
				continue
			}
			if err := p.process(context.Background(), msg); err != nil {
				failed = true
				p.reportFatal(err)
			}
		}
	}()

	return ch
}

func (p *Pipeline) closeWorkers() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for partition, ch := range p.workers {
		close(ch)
		delete(p.workers, partition)
	}
}

// process drives one raw message through every pipeline stage. A non-nil
// return means the enriched record could not be handed to the transport and
// the partition must not advance past it.
func (p *Pipeline) process(ctx context.Context, msg *ingestion.Message) error {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(
			attribute.Int("kafka.partition", int(msg.Partition)),
			attribute.Int64("kafka.offset", msg.Offset),
		))
	defer span.End()

	p.collector.EventsConsumed.Inc()

	raw, err := p.decoder.Decode(msg.Payload)
	if err != nil {
		p.drop(msg, err)
		return nil
	}

	normalized, err := event.NormalizeTimestamp(raw.Timestamp)
	if err != nil {
		p.drop(msg, err)
		return nil
	}

	if !event.IsMobile(raw.DeviceType) {
		p.drop(msg, pipeerr.New(pipeerr.KindFilteredOut,
			fmt.Errorf("device type %q is not mobile", raw.DeviceType)))
		return nil
	}

	snap := p.store.Observe(raw)
	flags := anomaly.Evaluate(snap)
	processed := enrich.Assemble(raw, normalized, snap, flags)

	if err := p.publisher.Write(ctx, processed); err != nil {
		// The offset stays unstored and the worker stops advancing this
		// partition, so the record is redelivered after restart.
		span.RecordError(err)
		p.collector.PublishFailures.Inc()
		p.logger.Error("Failed to publish enriched event",
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.String("user_id", processed.UserID),
			zap.Error(err))
		return err
	}

	if err := p.source.StoreOffset(msg); err != nil {
		p.logger.Warn("Failed to store offset", zap.Error(err))
	}

	latency := time.Since(start)
	p.collector.EventsPublished.Inc()
	p.collector.ProcessingLatency.Observe(latency.Seconds())
	if p.reporter != nil {
		p.reporter.Record(latency)
	}
	return nil
}

// reportFatal stops the run. The first fatal error wins; later ones were
// already logged at their source.
func (p *Pipeline) reportFatal(err error) {
	select {
	case p.fatal <- err:
	default:
	}
}

// drop disposes of a single event without touching aggregate state. The
// offset is still stored: reprocessing a malformed or filtered payload
// cannot succeed, so holding the offset back would only stall the partition.
func (p *Pipeline) drop(msg *ingestion.Message, err error) {
	kind, _ := pipeerr.KindOf(err)

	var pe *pipeerr.Error
	if errors.As(err, &pe) {
		pe.WithSource(msg.Partition, msg.Offset, msg.Payload)
	}

	if kind == pipeerr.KindFilteredOut {
		p.logger.Debug("Event filtered",
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset))
	} else {
		excerpt := ""
		if pe != nil {
			excerpt = pe.Excerpt
		}
		p.logger.Warn("Event dropped",
			zap.String("reason", kind.String()),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.String("payload_excerpt", excerpt),
			zap.Error(err))
	}

	p.collector.EventsDropped.WithLabelValues(kind.String()).Inc()

	if err := p.source.StoreOffset(msg); err != nil {
		p.logger.Warn("Failed to store offset for dropped event", zap.Error(err))
	}
}

// watchPublisher escalates async delivery failures surfaced by the
// publisher. The failed record's offset may already be stored by the time
// the report arrives; stopping the run bounds the loss to that record.
func (p *Pipeline) watchPublisher(ctx context.Context, fatal <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-fatal:
			if !ok {
				return
			}
			p.collector.PublishFailures.Inc()
			p.logger.Error("Publisher reported delivery failure", zap.Error(err))
			p.reportFatal(err)
		}
	}
}

// statsLoop refreshes the aggregate cardinality gauges.
func (p *Pipeline) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(p.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for dimension, count := range p.store.Stats() {
				p.collector.AggregateKeys.WithLabelValues(dimension).Set(float64(count))
			}
			for deviceType, count := range p.store.DeviceTypeCounts() {
				p.collector.DeviceTypeLogins.WithLabelValues(deviceType).Set(float64(count))
			}
		}
	}
}
