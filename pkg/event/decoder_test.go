package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/therealutkarshpriyadarshi/loginflow/pkg/pipeerr"
)

const validPayload = `{
	"user_id": "u1",
	"app_version": "2.3.0",
	"device_type": "Android",
	"ip": "1.2.3.4",
	"locale": "NC",
	"device_id": "d1",
	"timestamp": "1711302636"
}`

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	decoder, err := NewDecoder(logger)
	require.NoError(t, err)
	return decoder
}

func TestDecoder_ValidPayload(t *testing.T) {
	decoder := newTestDecoder(t)

	raw, err := decoder.Decode([]byte(validPayload))
	require.NoError(t, err)

	assert.Equal(t, "u1", raw.UserID)
	assert.Equal(t, "2.3.0", raw.AppVersion)
	assert.Equal(t, "Android", raw.DeviceType)
	assert.Equal(t, "1.2.3.4", raw.IP)
	assert.Equal(t, "NC", raw.Locale)
	assert.Equal(t, "d1", raw.DeviceID)
	assert.Equal(t, "1711302636", raw.Timestamp)
}

func TestDecoder_IgnoresUnknownFields(t *testing.T) {
	decoder := newTestDecoder(t)

	payload := `{"user_id":"u1","app_version":"1.0","device_type":"ios","ip":"1.1.1.1","locale":"US","device_id":"d1","timestamp":"100","session_id":"abc"}`
	raw, err := decoder.Decode([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "u1", raw.UserID)
	assert.Equal(t, "100", raw.Timestamp)
}

func TestDecoder_MalformedPayloads(t *testing.T) {
	decoder := newTestDecoder(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"invalid JSON", `{"user_id": "u1"`},
		{"not an object", `[1, 2, 3]`},
		{"empty payload", ``},
		{"missing user_id", `{"app_version":"1.0","device_type":"ios","ip":"1.1.1.1","locale":"US","device_id":"d1","timestamp":"100"}`},
		{"empty user_id", `{"user_id":"","app_version":"1.0","device_type":"ios","ip":"1.1.1.1","locale":"US","device_id":"d1","timestamp":"100"}`},
		{"missing timestamp", `{"user_id":"u1","app_version":"1.0","device_type":"ios","ip":"1.1.1.1","locale":"US","device_id":"d1"}`},
		{"numeric timestamp", `{"user_id":"u1","app_version":"1.0","device_type":"ios","ip":"1.1.1.1","locale":"US","device_id":"d1","timestamp":100}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := decoder.Decode([]byte(tt.payload))
			require.Error(t, err)
			assert.Nil(t, raw)

			kind, ok := pipeerr.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, pipeerr.KindMalformedPayload, kind)
			assert.True(t, pipeerr.IsDrop(err))
		})
	}
}
