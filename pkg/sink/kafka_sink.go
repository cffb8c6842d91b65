package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/therealutkarshpriyadarshi/loginflow/pkg/event"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/pipeerr"
)

// KafkaSinkConfig holds Kafka sink configuration.
type KafkaSinkConfig struct {
	Brokers []string
	Topic   string
	// BatchSize is the maximum buffered batch size in bytes before a
	// flush is triggered.
	BatchSize int
	// Linger is the maximum buffering delay before a batch is sent even
	// if BatchSize has not been reached.
	Linger time.Duration
	// MaxRetries bounds produce-level retries when the local queue is full.
	MaxRetries int
	// FlushTimeout bounds the wait for outstanding deliveries on shutdown.
	FlushTimeout time.Duration
}

// KafkaSink publishes enriched events to the output topic. Records are
// buffered and sent as compressed batches when either the byte threshold is
// reached or the linger delay elapses, whichever comes first; batching
// never reorders or drops records within the producer instance.
type KafkaSink struct {
	producer     *kafka.Producer
	topic        string
	logger       *zap.Logger
	retry        *pipeerr.RetryPolicy
	flushTimeout time.Duration

	deliveryFailures atomic.Int64
	fatal            chan error
}

// NewKafkaSink creates a new Kafka sink and starts consuming delivery
// reports in the background.
func NewKafkaSink(config KafkaSinkConfig, logger *zap.Logger) (*KafkaSink, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("no Kafka brokers specified")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("no output topic specified")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 16384
	}
	if config.Linger <= 0 {
		config.Linger = 5 * time.Millisecond
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = 30 * time.Second
	}

	kafkaConfig := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(config.Brokers, ","),
		"acks":               "all",
		"enable.idempotence": true,
		"compression.type":   "snappy",
		"batch.size":         config.BatchSize,
		"linger.ms":          int(config.Linger.Milliseconds()),
	}

	producer, err := kafka.NewProducer(kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	retry := pipeerr.DefaultRetryPolicy()
	retry.MaxAttempts = config.MaxRetries

	s := &KafkaSink{
		producer:     producer,
		topic:        config.Topic,
		logger:       logger,
		retry:        retry,
		flushTimeout: config.FlushTimeout,
		fatal:        make(chan error, 16),
	}

	go s.handleDeliveryReports()

	return s, nil
}

// handleDeliveryReports drains the producer event channel. A delivery that
// failed after the client's own retries is a transport failure for that
// batch; it is counted and surfaced, never silently dropped.
func (s *KafkaSink) handleDeliveryReports() {
	for e := range s.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				s.deliveryFailures.Add(1)
				s.logger.Error("Kafka delivery failed",
					zap.Error(ev.TopicPartition.Error),
					zap.Int32("partition", ev.TopicPartition.Partition))
				s.reportFatal(pipeerr.New(pipeerr.KindTransportFailure, ev.TopicPartition.Error))
			}
		case kafka.Error:
			s.logger.Error("Kafka producer error",
				zap.Error(ev),
				zap.Bool("fatal", ev.IsFatal()))
			if ev.IsFatal() {
				s.reportFatal(pipeerr.New(pipeerr.KindTransportFailure, ev))
			}
		}
	}
}

func (s *KafkaSink) reportFatal(err error) {
	select {
	case s.fatal <- err:
	default:
		// Channel full; the failure is already logged and counted.
	}
}

// Write serializes an enriched event and hands it to the producer's buffer,
// keyed by user so downstream consumers see per-user ordering. A full local
// queue is retried with backoff up to the configured ceiling.
func (s *KafkaSink) Write(ctx context.Context, processed *event.ProcessedEvent) error {
	value, err := json.Marshal(processed)
	if err != nil {
		return fmt.Errorf("failed to marshal processed event: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &s.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(processed.UserID),
		Value: value,
	}

	result := s.retry.Execute(ctx, func(ctx context.Context) error {
		return s.producer.Produce(msg, nil)
	})
	if !result.Success {
		return pipeerr.New(pipeerr.KindTransportFailure,
			fmt.Errorf("produce failed after %d attempts: %w", result.Attempts, result.LastError))
	}

	return nil
}

// FatalErrors exposes delivery failures that exhausted the client's retries.
func (s *KafkaSink) FatalErrors() <-chan error {
	return s.fatal
}

// DeliveryFailures returns the number of failed deliveries observed so far.
func (s *KafkaSink) DeliveryFailures() int64 {
	return s.deliveryFailures.Load()
}

// Flush waits for outstanding deliveries, bounded by the configured
// timeout. Records still queued after the timeout are reported as a
// transport failure.
func (s *KafkaSink) Flush(ctx context.Context) error {
	remaining := s.producer.Flush(int(s.flushTimeout.Milliseconds()))
	if remaining > 0 {
		s.logger.Warn("Messages still in queue after flush", zap.Int("count", remaining))
		return pipeerr.New(pipeerr.KindTransportFailure,
			fmt.Errorf("%d records unflushed after %s", remaining, s.flushTimeout))
	}
	return nil
}

// Close closes the producer.
func (s *KafkaSink) Close() error {
	s.logger.Info("Closing Kafka sink")
	s.producer.Close()
	return nil
}
