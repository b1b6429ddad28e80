package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"samba-tours/internal/logger"
)

// Publisher is what services emit change events through.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// MessageWriter is the slice of the Kafka producer the publisher needs.
type MessageWriter interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// KafkaPublisher writes events to the change-feed topic keyed by table.
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
}

func NewKafkaPublisher(writer MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev ChangeEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	return p.writer.Publish(ctx, p.topic, ev.Table, value)
}

// LocalPublisher hands events straight to a hub when no broker is configured.
type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(_ context.Context, ev ChangeEvent) error {
	p.hub.Publish(ev)
	return nil
}

// Emitter wraps a Publisher for services: failures are logged, never returned.
type Emitter struct {
	publisher Publisher
	logger    *logger.Logger
}

func NewEmitter(p Publisher, log *logger.Logger) *Emitter {
	return &Emitter{publisher: p, logger: log}
}

func (e *Emitter) Emit(ctx context.Context, table, typ, recordID string, record interface{}) {
	if e == nil || e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, NewChangeEvent(table, typ, recordID, record)); err != nil {
		e.logger.Warn("REALTIME", fmt.Sprintf("Failed to publish %s %s %s: %v", table, typ, recordID, err))
	}
}
