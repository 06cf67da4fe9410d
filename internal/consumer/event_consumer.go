package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vhvplatform/go-recovery-notifier/internal/domain"
	"github.com/vhvplatform/go-recovery-notifier/internal/shared/logger"
	"github.com/vhvplatform/go-recovery-notifier/internal/shared/rabbitmq"
)

const (
	authExchange   = "auth"
	authQueue      = "auth_events"
	authRoutingKey = "user.*"
	consumerTag    = "recovery-notifier"
	prefetchCount  = 10
)

// MessageSource is the subset of the RabbitMQ client the consumer needs
type MessageSource interface {
	DeclareExchange(name, kind string) error
	DeclareQueue(name string) error
	BindQueue(queue, routingKey, exchange string) error
	Consume(ctx context.Context, queue, consumerTag string, prefetch int) (<-chan rabbitmq.Message, error)
}

// Notifier sends a best-effort email and reports what happened
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) domain.Outcome
}

// EventConsumer turns auth events into notification emails
type EventConsumer struct {
	source   MessageSource
	notifier Notifier
	log      *logger.Logger
}

// NewEventConsumer creates a new event consumer
func NewEventConsumer(source MessageSource, notifier Notifier, log *logger.Logger) *EventConsumer {
	return &EventConsumer{
		source:   source,
		notifier: notifier,
		log:      log,
	}
}

// Start declares the topology and consumes until the channel closes or ctx ends
func (c *EventConsumer) Start(ctx context.Context) error {
	c.log.Info("Starting event consumer", "queue", authQueue)

	if err := c.source.DeclareExchange(authExchange, "topic"); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := c.source.DeclareQueue(authQueue); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := c.source.BindQueue(authQueue, authRoutingKey, authExchange); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	messages, err := c.source.Consume(ctx, authQueue, consumerTag, prefetchCount)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			c.log.Info("Stopping event consumer")
			return nil
		case msg, ok := <-messages:
			if !ok {
				c.log.Warn("Event channel closed")
				return nil
			}
			c.handle(ctx, &msg)
		}
	}
}

func (c *EventConsumer) handle(ctx context.Context, msg *rabbitmq.Message) {
	var event domain.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.log.Error("Failed to unmarshal event", "error", err, "routing_key", msg.RoutingKey)
		msg.Nack(false, false)
		return
	}

	c.ProcessEvent(ctx, &event)

	// Notification outcomes are fire-and-forget, so every parsed event is settled
	if err := msg.Ack(false); err != nil {
		c.log.Error("Failed to ack event", "error", err, "type", event.Type)
	}
}

// ProcessEvent sends the notice matching the event type, if any
func (c *EventConsumer) ProcessEvent(ctx context.Context, event *domain.Event) {
	var subject, body string

	switch event.Type {
	case domain.EventPasswordChanged:
		subject = "Your password was changed"
		body = "The password for your account was just changed. If you did not make this change, reset your password immediately and contact support."
	case domain.EventPasswordReset:
		subject = "Password reset requested"
		body = "A password reset was requested for your account. If you did not request it, you can ignore this email."
	default:
		c.log.Debug("Ignoring event", "type", event.Type)
		return
	}

	if event.Email == "" {
		c.log.Warn("Event has no email address", "type", event.Type, "user_id", event.UserID)
		return
	}

	outcome := c.notifier.SendEmail(ctx, event.Email, subject, body)
	c.log.Info("Processed event", "type", event.Type, "notification_id", outcome.ID, "status", outcome.Status)
}
