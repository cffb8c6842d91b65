package pipeerr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_KindAndUnwrap(t *testing.T) {
	cause := errors.New("bad json")
	err := New(KindMalformedPayload, cause)

	assert.Equal(t, "malformed_payload: bad json", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(-1), err.Partition)
	assert.Equal(t, int64(-1), err.Offset)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformedPayload, kind)
}

func TestKindOf_WrappedChain(t *testing.T) {
	err := fmt.Errorf("stage failed: %w", New(KindTransportFailure, errors.New("produce")))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindTransportFailure, kind)
}

func TestKindOf_ForeignError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsDrop(errors.New("plain")))
}

func TestWithSource_TruncatesExcerpt(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), maxExcerptLen+100)
	err := New(KindInvalidTimestamp, errors.New("bad ts")).WithSource(3, 42, payload)

	assert.Equal(t, int32(3), err.Partition)
	assert.Equal(t, int64(42), err.Offset)
	assert.Len(t, err.Excerpt, maxExcerptLen)
}

func TestIsDrop(t *testing.T) {
	assert.True(t, IsDrop(New(KindMalformedPayload, errors.New("x"))))
	assert.True(t, IsDrop(New(KindInvalidTimestamp, errors.New("x"))))
	assert.True(t, IsDrop(New(KindFilteredOut, errors.New("x"))))
	assert.False(t, IsDrop(New(KindTransportFailure, errors.New("x"))))
	assert.False(t, IsDrop(New(KindBrokerUnavailable, errors.New("x"))))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "malformed_payload", KindMalformedPayload.String())
	assert.Equal(t, "invalid_timestamp", KindInvalidTimestamp.String())
	assert.Equal(t, "filtered_out", KindFilteredOut.String())
	assert.Equal(t, "transport_failure", KindTransportFailure.String())
	assert.Equal(t, "broker_unavailable", KindBrokerUnavailable.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryFatal},
		{"malformed payload drops", New(KindMalformedPayload, errors.New("x")), CategoryFatal},
		{"invalid timestamp drops", New(KindInvalidTimestamp, errors.New("x")), CategoryFatal},
		{"filtered out drops", New(KindFilteredOut, errors.New("x")), CategoryFatal},
		{"transport failure retries", New(KindTransportFailure, errors.New("x")), CategoryRetriable},
		{"broker unavailable retries", New(KindBrokerUnavailable, errors.New("x")), CategoryRetriable},
		{"kafka queue full is transient", kafka.NewError(kafka.ErrQueueFull, "queue full", false), CategoryTransient},
		{"kafka timeout retries", kafka.NewError(kafka.ErrTimedOut, "timed out", false), CategoryRetriable},
		{"kafka transport retries", kafka.NewError(kafka.ErrTransport, "broker down", false), CategoryRetriable},
		{"kafka all brokers down retries", kafka.NewError(kafka.ErrAllBrokersDown, "all down", false), CategoryRetriable},
		{"kafka fatal stays fatal", kafka.NewError(kafka.ErrFatal, "fenced", true), CategoryFatal},
		{"context canceled is fatal", context.Canceled, CategoryFatal},
		{"deadline exceeded retries", context.DeadlineExceeded, CategoryRetriable},
		{"connection refused retries", errors.New("dial tcp: connection refused"), CategoryRetriable},
		{"unmarshal error is fatal", errors.New("json unmarshal failed"), CategoryFatal},
		{"unknown defaults to retriable", errors.New("something odd"), CategoryRetriable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsRetriableAndIsFatal(t *testing.T) {
	assert.True(t, IsRetriable(New(KindTransportFailure, errors.New("x"))))
	assert.True(t, IsRetriable(kafka.NewError(kafka.ErrQueueFull, "full", false)))
	assert.False(t, IsRetriable(New(KindMalformedPayload, errors.New("x"))))

	assert.True(t, IsFatal(New(KindMalformedPayload, errors.New("x"))))
	assert.False(t, IsFatal(New(KindBrokerUnavailable, errors.New("x"))))
}
