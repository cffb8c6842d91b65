package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewKafkaSource_Validation(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	_, err := NewKafkaSource(KafkaSourceConfig{Topic: "user-login"}, logger)
	assert.Error(t, err, "brokers are required")

	_, err = NewKafkaSource(KafkaSourceConfig{Brokers: []string{"localhost:29092"}}, logger)
	assert.Error(t, err, "topic is required")
}

func TestNewKafkaSource_Defaults(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	source, err := NewKafkaSource(KafkaSourceConfig{
		Brokers: []string{"localhost:29092"},
		Topic:   "user-login",
	}, logger)
	require.NoError(t, err)
	defer source.Stop()

	assert.Equal(t, "user-login-group", source.groupID)
	assert.Equal(t, "kafka-user-login", source.Name())
	assert.Equal(t, 10, source.retry.MaxAttempts)
}
