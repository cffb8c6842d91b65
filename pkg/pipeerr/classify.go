package pipeerr

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryRetriable indicates the operation can be retried with exponential backoff
	CategoryRetriable Category = iota
	// CategoryFatal indicates the operation should not be retried
	CategoryFatal
	// CategoryTransient indicates the operation can be retried immediately or after brief delay
	CategoryTransient
)

func (c Category) String() string {
	switch c {
	case CategoryRetriable:
		return "retriable"
	case CategoryFatal:
		return "fatal"
	case CategoryTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Classify categorizes an error based on its type and characteristics.
// Pipeline errors classify by kind; Kafka errors by their retriability as
// reported by the client; everything else falls back to heuristics.
func Classify(err error) Category {
	if err == nil {
		return CategoryFatal
	}

	if kind, ok := KindOf(err); ok {
		switch kind {
		case KindMalformedPayload, KindInvalidTimestamp, KindFilteredOut:
			// Per-event drops. Retrying would re-decode the same bytes.
			return CategoryFatal
		case KindTransportFailure, KindBrokerUnavailable:
			return CategoryRetriable
		}
	}

	var kafkaErr kafka.Error
	if errors.As(err, &kafkaErr) {
		if kafkaErr.IsFatal() {
			return CategoryFatal
		}
		if kafkaErr.Code() == kafka.ErrQueueFull {
			return CategoryTransient
		}
		if kafkaErr.IsRetriable() || kafkaErr.Code() == kafka.ErrTimedOut || kafkaErr.Code() == kafka.ErrTransport || kafkaErr.Code() == kafka.ErrAllBrokersDown {
			return CategoryRetriable
		}
	}

	if errors.Is(err, context.Canceled) {
		return CategoryFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryRetriable
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return CategoryRetriable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryRetriable
		}
		return CategoryRetriable
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no route to host",
		"network is unreachable",
		"timeout",
	}) {
		return CategoryRetriable
	}
	if containsAny(msg, []string{
		"invalid argument",
		"invalid syntax",
		"parse error",
		"unmarshal",
		"marshal",
	}) {
		return CategoryFatal
	}

	return CategoryRetriable
}

// IsRetriable checks if an error can be retried.
func IsRetriable(err error) bool {
	category := Classify(err)
	return category == CategoryRetriable || category == CategoryTransient
}

// IsFatal checks if an error should not be retried.
func IsFatal(err error) bool {
	return Classify(err) == CategoryFatal
}

func containsAny(s string, substrings []string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
