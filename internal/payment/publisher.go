package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/segmentio/kafka-go"
)

// EventPublisher forwards verified payment events.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.PaymentEvent) error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.PaymentEvent) error {
	msg, err := messageFor(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write payment event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func messageFor(event *domain.PaymentEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal payment event: %w", err)
	}
	key := event.SessionID // keeps one session's events ordered
	if key == "" {
		key = event.IntentID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}
