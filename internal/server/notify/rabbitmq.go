package notify

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitClient publishes persistent JSON messages to named queues.
type RabbitClient struct {
	conn *amqp.Connection
	chn  *amqp.Channel
}

// DialRabbit opens a connection and channel and declares queues as durable.
func DialRabbit(url string, queues ...string) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	chn, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c := &RabbitClient{conn: conn, chn: chn}
	for _, q := range queues {
		if _, err := chn.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	return c, nil
}

func (r *RabbitClient) Publish(ctx context.Context, queue string, body []byte) error {
	return r.chn.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (r *RabbitClient) Close() error {
	if err := r.chn.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}
