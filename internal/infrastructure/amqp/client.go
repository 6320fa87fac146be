// Package amqp carries notification events over RabbitMQ.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"pocketbook/internal/domain/notification"
)

const publishTimeout = 5 * time.Second

// Client publishes events to a durable direct exchange and consumes them
// from a queue bound with the queue name as routing key.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string

	mu sync.Mutex
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish implements notification.Publisher.
func (c *Client) Publish(ctx context.Context, e notification.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    e.ID,
			Type:         string(e.Kind),
			Timestamp:    e.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.DebugContext(ctx, "published event",
		"event_kind", e.Kind,
		"event_id", e.ID,
		"exchange", c.exchangeName,
	)
	return nil
}

// Consume delivers events to h until ctx is cancelled or the channel
// closes. Events are never requeued: a failed handler is logged and the
// message is dropped.
func (c *Client) Consume(ctx context.Context, h notification.Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "started consuming events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			if handleDelivery(ctx, delivery.Body, h) {
				delivery.Ack(false)
			} else {
				delivery.Nack(false, false)
			}
		}
	}
}

// handleDelivery reports whether the message should be acknowledged.
func handleDelivery(ctx context.Context, body []byte, h notification.Handler) bool {
	var e notification.Event
	if err := json.Unmarshal(body, &e); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal event", "error", err)
		return false
	}
	if e.Kind == "" || e.UserID <= 0 {
		slog.ErrorContext(ctx, "discarding malformed event", "event_id", e.ID)
		return false
	}

	if err := h.HandleEvent(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to handle event",
			"event_kind", e.Kind,
			"event_id", e.ID,
			"user_id", e.UserID,
			"error", err,
		)
		return false
	}
	return true
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
