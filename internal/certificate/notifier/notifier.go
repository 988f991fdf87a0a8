// Package notifier publishes certificate creation events to Kafka.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"civreg/internal/certificate/models"
	"civreg/internal/platform/kafka/producer"
	"civreg/pkg/platform/circuit"
)

// Producer sends a message to the broker.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Notifier publishes CreationEvents keyed by the decimal certificate id.
type Notifier struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// Option configures the Notifier.
type Option func(*Notifier)

// WithLogger sets a logger for circuit transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// WithBreaker guards publishing with a circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(n *Notifier) {
		n.breaker = b
	}
}

func New(p Producer, topic string, opts ...Option) *Notifier {
	n := &Notifier{producer: p, topic: topic}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Publish sends the event synchronously. Every failure wraps
// models.ErrNotificationFailure; an open circuit fails without calling the broker.
func (n *Notifier) Publish(ctx context.Context, event models.CreationEvent) error {
	if n.breaker != nil && !n.breaker.Allow() {
		return fmt.Errorf("%w: circuit %s open", models.ErrNotificationFailure, n.breaker.Name())
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encode event: %w", models.ErrNotificationFailure, err)
	}

	err = n.producer.Produce(ctx, &producer.Message{
		Topic: n.topic,
		Key:   []byte(strconv.FormatInt(event.ID, 10)),
		Value: value,
		Headers: map[string]string{
			"event_type": models.EventTypeCertificateCreated,
		},
	})
	if err != nil {
		n.recordFailure(ctx)
		return fmt.Errorf("%w: certificate %d: %w", models.ErrNotificationFailure, event.ID, err)
	}
	n.recordSuccess(ctx)
	return nil
}

func (n *Notifier) recordFailure(ctx context.Context) {
	if n.breaker == nil {
		return
	}
	if change := n.breaker.RecordFailure(); change.Opened && n.logger != nil {
		n.logger.WarnContext(ctx, "notifier circuit opened, dropping creation events", "circuit", n.breaker.Name())
	}
}

func (n *Notifier) recordSuccess(ctx context.Context) {
	if n.breaker == nil {
		return
	}
	if change := n.breaker.RecordSuccess(); change.Closed && n.logger != nil {
		n.logger.InfoContext(ctx, "notifier circuit closed", "circuit", n.breaker.Name())
	}
}
