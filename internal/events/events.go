// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers one order event.
type Publisher interface {
	Publish(ctx context.Context, event models.OrderEventPayload) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by order id, so every event of
// one order lands on the same partition in order.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: NewKafkaWriter(brokers, topic)}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.OrderEventPayload) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for order %d: %w", event.Type, event.OrderID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// LogPublisher logs events. Used when no brokers are configured.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(_ context.Context, event models.OrderEventPayload) error {
	p.Log.Info().
		Str("type", event.Type).
		Int64("order_id", event.OrderID).
		Str("status", event.Status).
		Msg("order event")
	return nil
}

func (LogPublisher) Close() error { return nil }

// New returns a Kafka publisher when brokers are set, a log publisher otherwise.
func New(brokers []string, topic string, log zerolog.Logger) Publisher {
	if len(brokers) == 0 || strings.TrimSpace(brokers[0]) == "" {
		return LogPublisher{Log: log}
	}
	return NewKafkaPublisher(brokers, topic)
}
