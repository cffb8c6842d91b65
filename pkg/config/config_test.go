package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "loginflow", cfg.Application.Name)
	assert.Equal(t, []string{"localhost:29092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "user-login", cfg.Kafka.InputTopic)
	assert.Equal(t, "processed-user-login", cfg.Kafka.OutputTopic)
	assert.Equal(t, "user-login-group", cfg.Kafka.GroupID)
	assert.Equal(t, "earliest", cfg.Kafka.AutoOffsetReset)
	assert.Equal(t, 16384, cfg.Producer.BatchSize)
	assert.Equal(t, 5*time.Millisecond, cfg.Producer.Linger)
	assert.Equal(t, 64, cfg.Pipeline.Shards)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.StatsInterval)
	assert.Equal(t, 100, cfg.Metrics.SampleEvery)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAML(t *testing.T) {
	content := `
application:
  name: loginflow-test
  environment: staging
kafka:
  brokers:
    - kafka-1:9092
    - kafka-2:9092
  input_topic: logins
  output_topic: logins-enriched
  group_id: test-group
  auto_offset_reset: latest
producer:
  batch_size: 32768
pipeline:
  shards: 128
metrics:
  enabled: true
  address: ":9100"
logging:
  level: debug
  format: console
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "loginflow-test", cfg.Application.Name)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "logins", cfg.Kafka.InputTopic)
	assert.Equal(t, "logins-enriched", cfg.Kafka.OutputTopic)
	assert.Equal(t, "latest", cfg.Kafka.AutoOffsetReset)
	assert.Equal(t, 32768, cfg.Producer.BatchSize)
	assert.Equal(t, 128, cfg.Pipeline.Shards)
	assert.Equal(t, ":9100", cfg.Metrics.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "test-group", cfg.Kafka.GroupID)

	// Omitted fields pick up defaults.
	assert.Equal(t, 100*time.Millisecond, cfg.Kafka.PollTimeout)
	assert.Equal(t, 5*time.Millisecond, cfg.Producer.Linger)
	assert.Equal(t, 100, cfg.Metrics.SampleEvery)
}

func TestLoadConfig_JSON(t *testing.T) {
	content := `{"kafka": {"input_topic": "in", "output_topic": "out"}}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "in", cfg.Kafka.InputTopic)
	assert.Equal(t, "out", cfg.Kafka.OutputTopic)
}

func TestLoadConfig_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestApplyEnvOverrides_LegacyNames(t *testing.T) {
	t.Setenv("BOOTSTRAP_SERVERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_TOPIC", "raw-logins")
	t.Setenv("OUTPUT_TOPIC", "cooked-logins")
	t.Setenv("CONSUMER_GROUP", "legacy-group")
	t.Setenv("AUTO_OFFSET_RESET", "latest")

	cfg := DefaultConfig()
	require.NoError(t, ApplyEnvOverrides(cfg))

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "raw-logins", cfg.Kafka.InputTopic)
	assert.Equal(t, "cooked-logins", cfg.Kafka.OutputTopic)
	assert.Equal(t, "legacy-group", cfg.Kafka.GroupID)
	assert.Equal(t, "latest", cfg.Kafka.AutoOffsetReset)
}

func TestApplyEnvOverrides_PrefixedNamesWin(t *testing.T) {
	t.Setenv("KAFKA_TOPIC", "legacy-topic")
	t.Setenv("LOGINFLOW_KAFKA_INPUT_TOPIC", "prefixed-topic")
	t.Setenv("LOGINFLOW_PIPELINE_SHARDS", "256")
	t.Setenv("LOGINFLOW_PIPELINE_STATS_INTERVAL", "30s")
	t.Setenv("LOGINFLOW_METRICS_ENABLED", "false")
	t.Setenv("LOGINFLOW_PRODUCER_LINGER", "20ms")

	cfg := DefaultConfig()
	require.NoError(t, ApplyEnvOverrides(cfg))

	assert.Equal(t, "prefixed-topic", cfg.Kafka.InputTopic)
	assert.Equal(t, 256, cfg.Pipeline.Shards)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.StatsInterval)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 20*time.Millisecond, cfg.Producer.Linger)
}

func TestApplyEnvOverrides_InvalidValue(t *testing.T) {
	t.Setenv("LOGINFLOW_PIPELINE_SHARDS", "lots")

	cfg := DefaultConfig()
	assert.Error(t, ApplyEnvOverrides(cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }, true},
		{"no input topic", func(c *Config) { c.Kafka.InputTopic = "" }, true},
		{"no output topic", func(c *Config) { c.Kafka.OutputTopic = "" }, true},
		{"same topics", func(c *Config) {
			c.Kafka.InputTopic = "t"
			c.Kafka.OutputTopic = "t"
		}, true},
		{"bad offset reset", func(c *Config) { c.Kafka.AutoOffsetReset = "middle" }, true},
		{"latest is allowed", func(c *Config) { c.Kafka.AutoOffsetReset = "latest" }, false},
		{"sample ratio above one", func(c *Config) { c.Tracing.SampleRatio = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
