package pipeerr

import (
	"errors"
	"fmt"
)

// Kind identifies where in the pipeline an error belongs and how it is
// disposed of.
type Kind int

const (
	// KindMalformedPayload marks input that could not be parsed or that
	// failed schema validation. Dropped, counted, non-fatal.
	KindMalformedPayload Kind = iota
	// KindInvalidTimestamp marks an unparseable or negative epoch value.
	// Same disposition as a malformed payload.
	KindInvalidTimestamp
	// KindFilteredOut marks a non-mobile device type. Dropped and counted,
	// but not an error condition.
	KindFilteredOut
	// KindTransportFailure marks a failed publish attempt. Retried with
	// backoff; exhaustion is fatal for that batch.
	KindTransportFailure
	// KindBrokerUnavailable marks a failed poll or connect. Retried with
	// backoff; exhaustion is fatal for the process.
	KindBrokerUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindMalformedPayload:
		return "malformed_payload"
	case KindInvalidTimestamp:
		return "invalid_timestamp"
	case KindFilteredOut:
		return "filtered_out"
	case KindTransportFailure:
		return "transport_failure"
	case KindBrokerUnavailable:
		return "broker_unavailable"
	default:
		return "unknown"
	}
}

// maxExcerptLen bounds the raw payload excerpt carried for manual replay.
const maxExcerptLen = 256

// Error is a pipeline error carrying its kind and, when known, enough
// source context (partition, offset, payload excerpt) to permit manual
// replay of the offending event.
type Error struct {
	Kind      Kind
	Err       error
	Partition int32
	Offset    int64
	Excerpt   string
}

// New wraps an underlying error with a pipeline kind.
func New(kind Kind, err error) *Error {
	return &Error{
		Kind:      kind,
		Err:       err,
		Partition: -1,
		Offset:    -1,
	}
}

// WithSource attaches consumption provenance and a bounded payload excerpt.
func (e *Error) WithSource(partition int32, offset int64, payload []byte) *Error {
	e.Partition = partition
	e.Offset = offset
	if len(payload) > maxExcerptLen {
		payload = payload[:maxExcerptLen]
	}
	e.Excerpt = string(payload)
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the pipeline kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// IsDrop reports whether the error disposes of a single event without
// affecting the rest of the pipeline.
func IsDrop(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case KindMalformedPayload, KindInvalidTimestamp, KindFilteredOut:
		return true
	default:
		return false
	}
}
