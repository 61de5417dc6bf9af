// Package kafka publishes ledger events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"governance-ledger/config"
	"governance-ledger/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher on a kafka-go Writer.
// Events are keyed by account or proposal id so that events of one
// aggregate land on the same partition in order.
type Publisher struct {
	writer messageWriter
	log    zerolog.Logger
}

// NewPublisher creates a Publisher writing to cfg.Topic.
func NewPublisher(cfg config.KafkaConfig, log zerolog.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka event publisher configured")

	return &Publisher{writer: w, log: log}
}

func (p *Publisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(eventKey(event)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
		Time: event.OccurredAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s event: %w", event.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func eventKey(e domain.LedgerEvent) string {
	if e.AccountID != "" {
		return e.AccountID
	}
	if e.ProposalID != "" {
		return e.ProposalID
	}
	return e.ID
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.LedgerEvent) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }
