// Package events publishes order and payment domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Event types.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypePaymentUnmatched   = "payment.unmatched"
)

// Event is the envelope written to the broker.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id.
func NewEvent(eventType string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// OrderCreated is published after an order is committed.
type OrderCreated struct {
	OrderID          string          `json:"orderId"`
	UserID           *string         `json:"userId,omitempty"`
	Total            decimal.Decimal `json:"total"`
	PaymentReference *string         `json:"paymentReference,omitempty"`
	Status           string          `json:"status"`
	ItemCount        int             `json:"itemCount"`
}

// OrderStatusChanged is published after a status moves forward.
type OrderStatusChanged struct {
	OrderID          string  `json:"orderId"`
	From             string  `json:"from"`
	To               string  `json:"to"`
	PaymentReference *string `json:"paymentReference,omitempty"`
}

// PaymentUnmatched records a verified payment with no order to apply it to.
type PaymentUnmatched struct {
	NotificationID string `json:"notificationId"`
	Reference      string `json:"reference"`
	Kind           string `json:"kind"`
}

// Publisher sends events keyed for per-entity ordering.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
	Close() error
}

// Topics maps event families to broker topics.
type Topics struct {
	Orders   string
	Payments string
}

func (t Topics) forType(eventType string) string {
	if strings.HasPrefix(eventType, "payment.") {
		return t.Payments
	}
	return t.Orders
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaPublisher implements Publisher with a kafka-go writer.
type kafkaPublisher struct {
	writer messageWriter
	topics Topics
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to brokers.
func NewKafkaPublisher(brokers []string, topics Topics, logger zerolog.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		AllowAutoTopicCreation: true,
	}

	return newKafkaPublisher(writer, topics, logger)
}

func newKafkaPublisher(writer messageWriter, topics Topics, logger zerolog.Logger) *kafkaPublisher {
	return &kafkaPublisher{
		writer: writer,
		topics: topics,
		logger: logger.With().Str("component", "kafka-publisher").Logger(),
	}
}

// Publish writes event to the topic for its type.
func (p *kafkaPublisher) Publish(ctx context.Context, key string, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := p.topics.forType(event.Type)
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().
			Err(err).
			Str("topic", topic).
			Str("event_type", event.Type).
			Str("key", key).
			Msg("failed to publish event")
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.Debug().
		Str("topic", topic).
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Msg("event published")

	return nil
}

// Close flushes pending writes.
func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type nopPublisher struct{}

// NewNopPublisher returns a Publisher that discards events.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, string, Event) error { return nil }
func (nopPublisher) Close() error                                  { return nil }
