package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/therealutkarshpriyadarshi/loginflow/pkg/aggregate"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/config"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/event"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/ingestion"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/pipeline"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/sink"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/tracing"
)

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")
	logLevel   = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		// Logger isn't up yet.
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger := initLogger(level, cfg.Logging.Format)
	defer logger.Sync()

	logger.Info("Starting loginflow pipeline",
		zap.String("input_topic", cfg.Kafka.InputTopic),
		zap.String("output_topic", cfg.Kafka.OutputTopic),
		zap.Strings("brokers", cfg.Kafka.Brokers))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, &tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Application.Name,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize tracing", zap.Error(err))
		os.Exit(1)
	}

	collector := metrics.NewCollector(logger)
	reporter := metrics.NewReporter(cfg.Metrics.SampleEvery, collector, logger)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Address, collector, logger)
		if err := metricsServer.Start(); err != nil {
			logger.Error("Failed to start metrics server", zap.Error(err))
		}

		runtimeCollector := metrics.NewRuntimeCollector(collector.Registry(), logger)
		runtimeCollector.Start(10 * time.Second)
		defer runtimeCollector.Stop()
	}

	decoder, err := event.NewDecoder(logger)
	if err != nil {
		logger.Error("Failed to build decoder", zap.Error(err))
		os.Exit(1)
	}

	store := aggregate.NewStore(&aggregate.Config{Shards: cfg.Pipeline.Shards}, logger)

	source, err := ingestion.NewKafkaSource(ingestion.KafkaSourceConfig{
		Brokers:         cfg.Kafka.Brokers,
		Topic:           cfg.Kafka.InputTopic,
		GroupID:         cfg.Kafka.GroupID,
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		PollTimeout:     cfg.Kafka.PollTimeout,
		MaxPollFailures: cfg.Kafka.MaxPollFailures,
	}, logger)
	if err != nil {
		logger.Error("Failed to create Kafka source", zap.Error(err))
		os.Exit(1)
	}

	publisher, err := sink.NewKafkaSink(sink.KafkaSinkConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.OutputTopic,
		BatchSize:    cfg.Producer.BatchSize,
		Linger:       cfg.Producer.Linger,
		MaxRetries:   cfg.Producer.MaxRetries,
		FlushTimeout: cfg.Producer.FlushTimeout,
	}, logger)
	if err != nil {
		logger.Error("Failed to create Kafka sink", zap.Error(err))
		os.Exit(1)
	}

	p := pipeline.New(source, publisher, decoder, store, collector, reporter, pipeline.Config{
		ChannelBuffer: cfg.Pipeline.ChannelBuffer,
		StatsInterval: cfg.Pipeline.StatsInterval,
	}, logger)

	runErr := p.Run(ctx)

	if metricsServer != nil {
		metricsServer.Stop()
	}
	publisher.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Failed to shut down tracing", zap.Error(err))
	}

	if runErr != nil {
		logger.Error("Pipeline terminated with error", zap.Error(runErr))
		os.Exit(1)
	}

	logger.Info("Shut down cleanly")
}

func initLogger(level, format string) *zap.Logger {
	var logLevel zap.AtomicLevel

	switch level {
	case "debug":
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		logLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		logLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = logLevel

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return logger
}
