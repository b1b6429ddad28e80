package kafka

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"samba-tours/internal/logger"
)

type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewBroadcastConsumer joins a consumer group of its own, so every instance
// receives every message on topic. It starts at the end of the topic.
func NewBroadcastConsumer(brokers []string, topic, groupPrefix string, log *logger.Logger) *Consumer {
	cfg := broadcastReaderConfig(brokers, topic, InstanceGroupID(groupPrefix))
	log.LogKafka("SUBSCRIBE", topic, "joining group "+cfg.GroupID)
	return &Consumer{reader: kafka.NewReader(cfg), logger: log}
}

func broadcastReaderConfig(brokers []string, topic, groupID string) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	}
}

// InstanceGroupID returns prefix-<hostname>-<random>, unique per process.
func InstanceGroupID(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "instance"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, host, uuid.NewString()[:8])
}

// Run fetches messages until ctx is cancelled. A handler error leaves that
// message uncommitted but does not stop the loop.
func (c *Consumer) Run(ctx context.Context, handle func(ctx context.Context, msg kafka.Message) error) error {
	topic := c.reader.Config().Topic
	c.logger.LogKafka("CONSUME", topic, "consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.LogKafka("CONSUME", topic, "consumer stopped")
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message from %s: %v", topic, err))
			continue
		}

		if err := handle(ctx, msg); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to handle message at offset %d: %v", msg.Offset, err))
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("KAFKA", fmt.Sprintf("Failed to commit offset %d: %v", msg.Offset, err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
