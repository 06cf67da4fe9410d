package rabbitmq

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// Acknowledger settles a delivery; amqp091.Delivery satisfies it
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Message represents a RabbitMQ message
type Message struct {
	Body       []byte
	RoutingKey string
	acker      Acknowledger
}

// NewMessage wraps a body and routing key with the acknowledger that settles it
func NewMessage(body []byte, routingKey string, acker Acknowledger) Message {
	return Message{Body: body, RoutingKey: routingKey, acker: acker}
}

// Ack acknowledges a message
func (m *Message) Ack(multiple bool) error {
	return m.acker.Ack(multiple)
}

// Nack negative acknowledges a message
func (m *Message) Nack(multiple, requeue bool) error {
	return m.acker.Nack(multiple, requeue)
}

// RabbitMQClient wraps the RabbitMQ connection
type RabbitMQClient struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewRabbitMQClient creates a new RabbitMQ client
func NewRabbitMQClient(url string) (*RabbitMQClient, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &RabbitMQClient{
		conn:    conn,
		channel: channel,
	}, nil
}

// DeclareExchange declares a durable exchange
func (c *RabbitMQClient) DeclareExchange(name, kind string) error {
	return c.channel.ExchangeDeclare(
		name,
		kind,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
}

// DeclareQueue declares a durable queue
func (c *RabbitMQClient) DeclareQueue(name string) error {
	_, err := c.channel.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	return err
}

// BindQueue binds a queue to an exchange
func (c *RabbitMQClient) BindQueue(queue, routingKey, exchange string) error {
	return c.channel.QueueBind(
		queue,
		routingKey,
		exchange,
		false, // no-wait
		nil,   // arguments
	)
}

// Consume starts consuming messages from a queue with manual acks. At most
// prefetch deliveries are unsettled at a time; zero leaves the broker default.
// The returned channel closes when ctx ends or the broker stops delivering.
func (c *RabbitMQClient) Consume(ctx context.Context, queue, consumerTag string, prefetch int) (<-chan Message, error) {
	if prefetch > 0 {
		if err := c.channel.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set prefetch: %w", err)
		}
	}

	msgs, err := c.channel.Consume(
		queue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}

	return forward(ctx, msgs), nil
}

// forward converts deliveries into messages until ctx ends or deliveries closes.
// Deliveries left unsettled are redelivered by the broker once the channel closes.
func forward(ctx context.Context, deliveries <-chan amqp091.Delivery) <-chan Message {
	messageChan := make(chan Message)
	go func() {
		defer close(messageChan)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				select {
				case messageChan <- NewMessage(d.Body, d.RoutingKey, d):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return messageChan
}

// Close closes the RabbitMQ connection
func (c *RabbitMQClient) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
