// Package events announces finished checkout runs to downstream
// consumers over Kafka. Publishing is best-effort; a failed publish
// never fails the checkout it describes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/keshavthakur30/SweetShop/internal/domain"
)

// CheckoutEvent is the wire payload for one finished run.
type CheckoutEvent struct {
	RunID       string           `json:"run_id"`
	SessionID   string           `json:"session_id"`
	Outcomes    []domain.Outcome `json:"outcomes"`
	Total       float64          `json:"total"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Publisher is consumer-defined so the shop service can be tested
// with a recording fake.
type Publisher interface {
	PublishCheckout(ctx context.Context, ev CheckoutEvent) error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "checkout-results",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishCheckout(ctx context.Context, ev CheckoutEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.SessionID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish checkout event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop is used when no brokers are configured.
type Nop struct{}

func (Nop) PublishCheckout(context.Context, CheckoutEvent) error {
	return nil
}
