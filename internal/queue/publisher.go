package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends claim events to RabbitMQ.  Each call dials, declares
// the queue and publishes; claim traffic is low enough that a pooled
// connection is not worth its reconnect handling.
type Publisher struct {
	url string
	log *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// Publish sends ev as a persistent JSON message.  Errors are logged and
// returned so callers can ignore them without losing the trace.
func (p *Publisher) Publish(ctx context.Context, ev ClaimEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.publish(ctx, body); err != nil {
		p.log.Warn("publish claim event failed",
			zap.String("event_id", ev.EventID), zap.String("type", ev.Type), zap.Error(err))
		return err
	}
	p.log.Debug("claim event published", zap.String("event_id", ev.EventID), zap.String("type", ev.Type))
	return nil
}

// defaultDialTimeout bounds the dial when ctx carries no deadline.
const defaultDialTimeout = 5 * time.Second

// dialTimeout is the time left on ctx, so a dead broker cannot hold the
// caller past its own deadline.
func dialTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return defaultDialTimeout
	}
	if left := time.Until(deadline); left > 0 {
		return left
	}
	return time.Millisecond
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout(ctx))})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(ClaimQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return ch.PublishWithContext(ctx, "", ClaimQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
