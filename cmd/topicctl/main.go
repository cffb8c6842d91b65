// topicctl creates the Kafka topics the pipeline consumes and produces.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

var (
	brokers     = flag.String("brokers", "localhost:29092", "Comma-separated broker address list")
	topics      = flag.String("topics", "user-login,processed-user-login", "Comma-separated topics to create")
	partitions  = flag.Int("partitions", 1, "Number of partitions per topic")
	replication = flag.Int("replication", 1, "Replication factor per topic")
	timeout     = flag.Duration("timeout", 30*time.Second, "Admin operation timeout")
)

func main() {
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	adminClient, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": *brokers,
	})
	if err != nil {
		logger.Error("Failed to create admin client", zap.Error(err))
		os.Exit(1)
	}
	defer adminClient.Close()

	var specs []kafka.TopicSpecification
	for _, topic := range strings.Split(*topics, ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		specs = append(specs, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     *partitions,
			ReplicationFactor: *replication,
		})
	}
	if len(specs) == 0 {
		logger.Error("No topics specified")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	results, err := adminClient.CreateTopics(ctx, specs, kafka.SetAdminOperationTimeout(*timeout))
	if err != nil {
		logger.Error("Failed to create topics", zap.Error(err))
		os.Exit(1)
	}

	failed := false
	for _, result := range results {
		switch result.Error.Code() {
		case kafka.ErrNoError:
			logger.Info("Topic created",
				zap.String("topic", result.Topic),
				zap.Int("partitions", *partitions),
				zap.Int("replication", *replication))
		case kafka.ErrTopicAlreadyExists:
			logger.Warn("Topic already exists", zap.String("topic", result.Topic))
		default:
			logger.Error("Failed to create topic",
				zap.String("topic", result.Topic),
				zap.Error(result.Error))
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}
