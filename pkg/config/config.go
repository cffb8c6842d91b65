package config

import (
	"fmt"
	"time"
)

// Config represents the complete loginflow configuration.
type Config struct {
	// Application metadata
	Application ApplicationConfig `yaml:"application" json:"application"`

	// Kafka consumer configuration
	Kafka KafkaConfig `yaml:"kafka" json:"kafka"`

	// Producer (publisher) configuration
	Producer ProducerConfig `yaml:"producer" json:"producer"`

	// Pipeline configuration
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`

	// Metrics and monitoring configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Tracing configuration
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ApplicationConfig holds application-level metadata.
type ApplicationConfig struct {
	Name        string `yaml:"name" json:"name"`
	Environment string `yaml:"environment" json:"environment"` // development, staging, production
}

// KafkaConfig holds broker and consumer settings.
type KafkaConfig struct {
	Brokers         []string      `yaml:"brokers" json:"brokers"`
	InputTopic      string        `yaml:"input_topic" json:"input_topic"`
	OutputTopic     string        `yaml:"output_topic" json:"output_topic"`
	GroupID         string        `yaml:"group_id" json:"group_id"`
	AutoOffsetReset string        `yaml:"auto_offset_reset" json:"auto_offset_reset"`
	PollTimeout     time.Duration `yaml:"poll_timeout" json:"poll_timeout"`
	MaxPollFailures int           `yaml:"max_poll_failures" json:"max_poll_failures"`
}

// ProducerConfig holds publisher batching and retry settings.
type ProducerConfig struct {
	// BatchSize is the flush threshold in buffered bytes.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// Linger is the maximum buffering delay before a batch is sent.
	Linger       time.Duration `yaml:"linger" json:"linger"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	FlushTimeout time.Duration `yaml:"flush_timeout" json:"flush_timeout"`
}

// PipelineConfig holds worker and state settings.
type PipelineConfig struct {
	// ChannelBuffer is the per-worker input channel capacity.
	ChannelBuffer int `yaml:"channel_buffer" json:"channel_buffer"`
	// Shards is the aggregate store lock-shard count.
	Shards int `yaml:"shards" json:"shards"`
	// StatsInterval is how often aggregate cardinality gauges are refreshed.
	StatsInterval time.Duration `yaml:"stats_interval" json:"stats_interval"`
}

// MetricsConfig holds metrics and sampling settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	// SampleEvery is the processed-event count between benchmark samples.
	SampleEvery int `yaml:"sample_every" json:"sample_every"`
}

// TracingConfig holds tracing settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Exporter    string  `yaml:"exporter" json:"exporter"` // stdout, otlp
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio" json:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, console
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:        "loginflow",
			Environment: "development",
		},
		Kafka: KafkaConfig{
			Brokers:         []string{"localhost:29092"},
			InputTopic:      "user-login",
			OutputTopic:     "processed-user-login",
			GroupID:         "user-login-group",
			AutoOffsetReset: "earliest",
			PollTimeout:     100 * time.Millisecond,
			MaxPollFailures: 10,
		},
		Producer: ProducerConfig{
			BatchSize:    16384,
			Linger:       5 * time.Millisecond,
			MaxRetries:   5,
			FlushTimeout: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			ChannelBuffer: 1024,
			Shards:        64,
			StatsInterval: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:     true,
			Address:     ":9091",
			SampleEvery: 100,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "stdout",
			SampleRatio: 1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyDefaults fills zero values with defaults.
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Application.Name == "" {
		config.Application.Name = defaults.Application.Name
	}
	if config.Application.Environment == "" {
		config.Application.Environment = defaults.Application.Environment
	}
	if len(config.Kafka.Brokers) == 0 {
		config.Kafka.Brokers = defaults.Kafka.Brokers
	}
	if config.Kafka.InputTopic == "" {
		config.Kafka.InputTopic = defaults.Kafka.InputTopic
	}
	if config.Kafka.OutputTopic == "" {
		config.Kafka.OutputTopic = defaults.Kafka.OutputTopic
	}
	if config.Kafka.GroupID == "" {
		config.Kafka.GroupID = defaults.Kafka.GroupID
	}
	if config.Kafka.AutoOffsetReset == "" {
		config.Kafka.AutoOffsetReset = defaults.Kafka.AutoOffsetReset
	}
	if config.Kafka.PollTimeout <= 0 {
		config.Kafka.PollTimeout = defaults.Kafka.PollTimeout
	}
	if config.Kafka.MaxPollFailures <= 0 {
		config.Kafka.MaxPollFailures = defaults.Kafka.MaxPollFailures
	}
	if config.Producer.BatchSize <= 0 {
		config.Producer.BatchSize = defaults.Producer.BatchSize
	}
	if config.Producer.Linger <= 0 {
		config.Producer.Linger = defaults.Producer.Linger
	}
	if config.Producer.MaxRetries <= 0 {
		config.Producer.MaxRetries = defaults.Producer.MaxRetries
	}
	if config.Producer.FlushTimeout <= 0 {
		config.Producer.FlushTimeout = defaults.Producer.FlushTimeout
	}
	if config.Pipeline.ChannelBuffer <= 0 {
		config.Pipeline.ChannelBuffer = defaults.Pipeline.ChannelBuffer
	}
	if config.Pipeline.Shards <= 0 {
		config.Pipeline.Shards = defaults.Pipeline.Shards
	}
	if config.Pipeline.StatsInterval <= 0 {
		config.Pipeline.StatsInterval = defaults.Pipeline.StatsInterval
	}
	if config.Metrics.Address == "" {
		config.Metrics.Address = defaults.Metrics.Address
	}
	if config.Metrics.SampleEvery <= 0 {
		config.Metrics.SampleEvery = defaults.Metrics.SampleEvery
	}
	if config.Tracing.Exporter == "" {
		config.Tracing.Exporter = defaults.Tracing.Exporter
	}
	if config.Tracing.SampleRatio <= 0 {
		config.Tracing.SampleRatio = defaults.Tracing.SampleRatio
	}
	if config.Logging.Level == "" {
		config.Logging.Level = defaults.Logging.Level
	}
	if config.Logging.Format == "" {
		config.Logging.Format = defaults.Logging.Format
	}
}

// Validate checks the configuration for values that would prevent startup.
func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must not be empty")
	}
	if c.Kafka.InputTopic == "" {
		return fmt.Errorf("kafka.input_topic must not be empty")
	}
	if c.Kafka.OutputTopic == "" {
		return fmt.Errorf("kafka.output_topic must not be empty")
	}
	if c.Kafka.InputTopic == c.Kafka.OutputTopic {
		return fmt.Errorf("input and output topics must differ")
	}
	switch c.Kafka.AutoOffsetReset {
	case "earliest", "latest":
	default:
		return fmt.Errorf("kafka.auto_offset_reset must be earliest or latest, got %q", c.Kafka.AutoOffsetReset)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be in [0, 1], got %v", c.Tracing.SampleRatio)
	}
	return nil
}
