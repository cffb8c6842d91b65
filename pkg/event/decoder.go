package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/therealutkarshpriyadarshi/loginflow/pkg/pipeerr"
)

// rawEventSchema is the schema for the input topic. Every known field is
// required and must be a non-empty string; fields this pipeline does not
// know about are ignored, so a producer can add fields without breaking
// older consumers.
const rawEventSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "user_id":     {"type": "string", "minLength": 1},
    "app_version": {"type": "string", "minLength": 1},
    "device_type": {"type": "string", "minLength": 1},
    "ip":          {"type": "string", "minLength": 1},
    "locale":      {"type": "string", "minLength": 1},
    "device_id":   {"type": "string", "minLength": 1},
    "timestamp":   {"type": "string", "minLength": 1}
  },
  "required": ["user_id", "app_version", "device_type", "ip", "locale", "device_id", "timestamp"]
}`

// Decoder parses raw payloads from the input topic into typed RawEvents.
// A payload that is not valid JSON, or that fails schema validation, is a
// MalformedPayload; it never reaches the aggregator.
type Decoder struct {
	schema *jsonschema.Schema
	logger *zap.Logger
}

// NewDecoder compiles the input schema and returns a ready decoder.
func NewDecoder(logger *zap.Logger) (*Decoder, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource("schema://user-login", strings.NewReader(rawEventSchema)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("schema://user-login")
	if err != nil {
		return nil, fmt.Errorf("failed to compile input schema: %w", err)
	}

	return &Decoder{
		schema: schema,
		logger: logger,
	}, nil
}

// Decode validates a payload against the input schema and returns the typed
// record. The returned error is always a MalformedPayload pipeline error.
func (d *Decoder) Decode(payload []byte) (*RawEvent, error) {
	var untyped interface{}
	if err := json.Unmarshal(payload, &untyped); err != nil {
		return nil, pipeerr.New(pipeerr.KindMalformedPayload, fmt.Errorf("invalid JSON: %w", err))
	}

	if err := d.schema.Validate(untyped); err != nil {
		return nil, pipeerr.New(pipeerr.KindMalformedPayload, fmt.Errorf("schema validation failed: %w", err))
	}

	var raw RawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, pipeerr.New(pipeerr.KindMalformedPayload, fmt.Errorf("failed to unmarshal event: %w", err))
	}

	return &raw, nil
}
