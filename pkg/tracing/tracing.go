// Package tracing configures the OpenTelemetry tracer provider for the
// pipeline. Spans are exported to stdout during development or to an
// OTLP-HTTP collector in production.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/therealutkarshpriyadarshi/loginflow"

// Config holds tracing configuration.
type Config struct {
	Enabled     bool
	ServiceName string
	// Exporter selects the span exporter: "stdout" or "otlp".
	Exporter string
	// Endpoint is the OTLP-HTTP collector host:port (otlp exporter only).
	Endpoint string
	// SampleRatio is the trace sampling ratio in [0, 1].
	SampleRatio float64
}

// DefaultConfig returns default tracing configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     false,
		ServiceName: "loginflow",
		Exporter:    "stdout",
		SampleRatio: 1.0,
	}
}

// Init installs the global tracer provider and starts runtime
// instrumentation. The returned shutdown function flushes pending spans.
func Init(ctx context.Context, config *Config, logger *zap.Logger) (func(context.Context) error, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		logger.Info("Distributed tracing is disabled")
		return func(context.Context) error { return nil }, nil
	}

	var exporter sdktrace.SpanExporter
	var err error

	switch config.Exporter {
	case "stdout", "":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if config.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(config.Endpoint))
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown trace exporter: %s", config.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRatio))),
	)
	otel.SetTracerProvider(tp)

	if err := runtime.Start(); err != nil {
		logger.Warn("Failed to start runtime instrumentation", zap.Error(err))
	}

	logger.Info("Distributed tracing initialized",
		zap.String("service", config.ServiceName),
		zap.String("exporter", config.Exporter),
		zap.Float64("sample_ratio", config.SampleRatio))

	return tp.Shutdown, nil
}

// Tracer returns the pipeline tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
