package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/therealutkarshpriyadarshi/loginflow/pkg/pipeerr"
)

// Message is one raw payload pulled from the input topic, with the
// provenance needed for offset tracking and error logging.
type Message struct {
	Payload   []byte
	Key       []byte
	Partition int32
	Offset    int64
	Timestamp time.Time
}

// KafkaSourceConfig holds Kafka source configuration.
type KafkaSourceConfig struct {
	Brokers         []string
	Topic           string
	GroupID         string
	AutoOffsetReset string
	PollTimeout     time.Duration
	// MaxPollFailures is the number of consecutive poll failures tolerated
	// before the source gives up and reports the broker unavailable.
	MaxPollFailures int
}

// KafkaSource consumes raw login events from the input topic. Offsets are
// stored explicitly by the pipeline after an event has been handed to the
// publisher, and committed on the client's auto-commit tick, preserving
// at-least-once semantics.
type KafkaSource struct {
	brokers     []string
	topic       string
	groupID     string
	consumer    *kafka.Consumer
	pollTimeout time.Duration
	retry       *pipeerr.RetryPolicy
	logger      *zap.Logger
	partitions  int32
}

// NewKafkaSource creates a new Kafka source.
func NewKafkaSource(config KafkaSourceConfig, logger *zap.Logger) (*KafkaSource, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("no Kafka brokers specified")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("no input topic specified")
	}
	if config.GroupID == "" {
		config.GroupID = "user-login-group"
	}
	if config.AutoOffsetReset == "" {
		// New consumers must not skip existing backlog.
		config.AutoOffsetReset = "earliest"
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 100 * time.Millisecond
	}
	if config.MaxPollFailures <= 0 {
		config.MaxPollFailures = 10
	}

	kafkaConfig := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(config.Brokers, ","),
		"group.id":          config.GroupID,
		"auto.offset.reset": config.AutoOffsetReset,
		// Offsets are stored by the pipeline after publish, never on read.
		"enable.auto.commit":       true,
		"enable.auto.offset.store": false,
	}

	consumer, err := kafka.NewConsumer(kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	retry := pipeerr.DefaultRetryPolicy()
	retry.MaxAttempts = config.MaxPollFailures

	return &KafkaSource{
		brokers:     config.Brokers,
		topic:       config.Topic,
		groupID:     config.GroupID,
		consumer:    consumer,
		pollTimeout: config.PollTimeout,
		retry:       retry,
		logger:      logger,
	}, nil
}

// Run consumes from the input topic until the context is cancelled,
// delivering messages on the output channel. It returns a BrokerUnavailable
// error when the poll failure budget is exhausted.
func (s *KafkaSource) Run(ctx context.Context, output chan<- *Message) error {
	s.logger.Info("Starting Kafka source",
		zap.Strings("brokers", s.brokers),
		zap.String("topic", s.topic),
		zap.String("group_id", s.groupID))

	if err := s.consumer.SubscribeTopics([]string{s.topic}, nil); err != nil {
		return pipeerr.New(pipeerr.KindBrokerUnavailable, fmt.Errorf("failed to subscribe: %w", err))
	}

	metadata, err := s.consumer.GetMetadata(&s.topic, false, 5000)
	if err == nil {
		if topicMeta, ok := metadata.Topics[s.topic]; ok {
			s.partitions = int32(len(topicMeta.Partitions))
			s.logger.Info("Detected partitions", zap.Int32("count", s.partitions))
		}
	}

	failures := 0
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Kafka source stopping")
			return nil
		default:
		}

		msg, err := s.consumer.ReadMessage(s.pollTimeout)
		if err != nil {
			if kafkaErr, ok := err.(kafka.Error); ok && kafkaErr.Code() == kafka.ErrTimedOut {
				continue
			}

			failures++
			if failures > s.retry.MaxAttempts || pipeerr.IsFatal(err) {
				return pipeerr.New(pipeerr.KindBrokerUnavailable,
					fmt.Errorf("poll failed %d times: %w", failures, err))
			}

			backoff := s.retry.NextBackoff(failures - 1)
			s.logger.Warn("Error reading Kafka message, backing off",
				zap.Error(err),
				zap.Int("consecutive_failures", failures),
				zap.Duration("backoff", backoff))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		failures = 0

		m := &Message{
			Payload:   msg.Value,
			Key:       msg.Key,
			Partition: msg.TopicPartition.Partition,
			Offset:    int64(msg.TopicPartition.Offset),
			Timestamp: msg.Timestamp,
		}

		select {
		case output <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// StoreOffset marks a message as processed. The stored position is picked
// up by the client's auto-commit; calling this only after the enriched
// record reached the publisher keeps delivery at-least-once.
func (s *KafkaSource) StoreOffset(msg *Message) error {
	_, err := s.consumer.StoreOffsets([]kafka.TopicPartition{{
		Topic:     &s.topic,
		Partition: msg.Partition,
		Offset:    kafka.Offset(msg.Offset + 1),
	}})
	if err != nil {
		return fmt.Errorf("failed to store offset %d/%d: %w", msg.Partition, msg.Offset, err)
	}
	return nil
}

// Stop commits stored offsets and closes the consumer.
func (s *KafkaSource) Stop() error {
	s.logger.Info("Stopping Kafka source")
	return s.consumer.Close()
}

// Name returns the source name.
func (s *KafkaSource) Name() string {
	return fmt.Sprintf("kafka-%s", s.topic)
}

// Partitions returns the number of partitions detected at startup.
func (s *KafkaSource) Partitions() int32 {
	return s.partitions
}
