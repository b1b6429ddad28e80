package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"samba-tours/internal/logger"
)

// MessageSource is the consumer loop the change feed reads from.
type MessageSource interface {
	Run(ctx context.Context, handle func(ctx context.Context, msg kafka.Message) error) error
}

// ChangeFeedConsumer republishes change events read from Kafka into the hub.
// Each instance reads the topic through its own consumer group, so every
// instance's dashboards see every instance's writes.
type ChangeFeedConsumer struct {
	source MessageSource
	hub    *Hub
	logger *logger.Logger
}

func NewChangeFeedConsumer(source MessageSource, hub *Hub, log *logger.Logger) *ChangeFeedConsumer {
	return &ChangeFeedConsumer{source: source, hub: hub, logger: log}
}

func (c *ChangeFeedConsumer) Run(ctx context.Context) error {
	return c.source.Run(ctx, c.HandleMessage)
}

func (c *ChangeFeedConsumer) HandleMessage(_ context.Context, msg kafka.Message) error {
	var ev ChangeEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.logger.Warn("REALTIME", fmt.Sprintf("Skipping malformed change event at offset %d: %v", msg.Offset, err))
		return nil
	}
	if ev.Table == "" || ev.Type == "" {
		c.logger.Warn("REALTIME", fmt.Sprintf("Skipping change event without table or type at offset %d", msg.Offset))
		return nil
	}
	c.hub.Publish(ev)
	return nil
}
