package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Variables follow the pattern LOGINFLOW_<SECTION>_<KEY>;
// the unprefixed names used by the deployment scripts (BOOTSTRAP_SERVERS,
// KAFKA_TOPIC, ...) are recognized as well.
func ApplyEnvOverrides(config *Config) error {
	// Legacy/deployment names first, so the LOGINFLOW_* forms win when
	// both are set.
	if val := os.Getenv("BOOTSTRAP_SERVERS"); val != "" {
		config.Kafka.Brokers = splitList(val)
	}
	if val := os.Getenv("KAFKA_TOPIC"); val != "" {
		config.Kafka.InputTopic = val
	}
	if val := os.Getenv("OUTPUT_TOPIC"); val != "" {
		config.Kafka.OutputTopic = val
	}
	if val := os.Getenv("CONSUMER_GROUP"); val != "" {
		config.Kafka.GroupID = val
	}
	if val := os.Getenv("AUTO_OFFSET_RESET"); val != "" {
		config.Kafka.AutoOffsetReset = val
	}

	// Application overrides
	if val := os.Getenv("LOGINFLOW_APPLICATION_NAME"); val != "" {
		config.Application.Name = val
	}
	if val := os.Getenv("LOGINFLOW_APPLICATION_ENVIRONMENT"); val != "" {
		config.Application.Environment = val
	}

	// Kafka overrides
	if val := os.Getenv("LOGINFLOW_KAFKA_BROKERS"); val != "" {
		config.Kafka.Brokers = splitList(val)
	}
	if val := os.Getenv("LOGINFLOW_KAFKA_INPUT_TOPIC"); val != "" {
		config.Kafka.InputTopic = val
	}
	if val := os.Getenv("LOGINFLOW_KAFKA_OUTPUT_TOPIC"); val != "" {
		config.Kafka.OutputTopic = val
	}
	if val := os.Getenv("LOGINFLOW_KAFKA_GROUP_ID"); val != "" {
		config.Kafka.GroupID = val
	}
	if val := os.Getenv("LOGINFLOW_KAFKA_AUTO_OFFSET_RESET"); val != "" {
		config.Kafka.AutoOffsetReset = val
	}
	if val := os.Getenv("LOGINFLOW_KAFKA_POLL_TIMEOUT"); val != "" {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid LOGINFLOW_KAFKA_POLL_TIMEOUT: %w", err)
		}
		config.Kafka.PollTimeout = duration
	}

	// Producer overrides
	if val := os.Getenv("LOGINFLOW_PRODUCER_BATCH_SIZE"); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid LOGINFLOW_PRODUCER_BATCH_SIZE: %w", err)
		}
		config.Producer.BatchSize = size
	}
	if val := os.Getenv("LOGINFLOW_PRODUCER_LINGER"); val != "" {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid LOGINFLOW_PRODUCER_LINGER: %w", err)
		}
		config.Producer.Linger = duration
	}
	if val := os.Getenv("LOGINFLOW_PRODUCER_MAX_RETRIES"); val != "" {
		retries, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid LOGINFLOW_PRODUCER_MAX_RETRIES: %w", err)
		}
		config.Producer.MaxRetries = retries
	}

	// Pipeline overrides
	if val := os.Getenv("LOGINFLOW_PIPELINE_CHANNEL_BUFFER"); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid LOGINFLOW_PIPELINE_CHANNEL_BUFFER: %w", err)
		}
		config.Pipeline.ChannelBuffer = size
	}
	if val := os.Getenv("LOGINFLOW_PIPELINE_SHARDS"); val != "" {
		shards, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid LOGINFLOW_PIPELINE_SHARDS: %w", err)
		}
		config.Pipeline.Shards = shards
	}
	if val := os.Getenv("LOGINFLOW_PIPELINE_STATS_INTERVAL"); val != "" {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid LOGINFLOW_PIPELINE_STATS_INTERVAL: %w", err)
		}
		config.Pipeline.StatsInterval = duration
	}

	// Metrics overrides
	if val := os.Getenv("LOGINFLOW_METRICS_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid LOGINFLOW_METRICS_ENABLED: %w", err)
		}
		config.Metrics.Enabled = enabled
	}
	if val := os.Getenv("LOGINFLOW_METRICS_ADDRESS"); val != "" {
		config.Metrics.Address = val
	}
	if val := os.Getenv("LOGINFLOW_METRICS_SAMPLE_EVERY"); val != "" {
		every, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid LOGINFLOW_METRICS_SAMPLE_EVERY: %w", err)
		}
		config.Metrics.SampleEvery = every
	}

	// Tracing overrides
	if val := os.Getenv("LOGINFLOW_TRACING_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid LOGINFLOW_TRACING_ENABLED: %w", err)
		}
		config.Tracing.Enabled = enabled
	}
	if val := os.Getenv("LOGINFLOW_TRACING_EXPORTER"); val != "" {
		config.Tracing.Exporter = val
	}
	if val := os.Getenv("LOGINFLOW_TRACING_ENDPOINT"); val != "" {
		config.Tracing.Endpoint = val
	}

	// Logging overrides
	if val := os.Getenv("LOGINFLOW_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("LOGINFLOW_LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}

	return nil
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
