package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"meeting-scribe/internal/config"
	"meeting-scribe/internal/domain/model"
)

// JobHandler processes one job to a terminal outcome. Retries happen
// inside the handler; a returned error means the delivery should be
// requeued (broker-level redelivery, e.g. after a crash mid-job).
type JobHandler func(ctx context.Context, job model.ProcessingJob) error

// Consumer drains the processing queue and dispatches jobs to a handler.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   *zerolog.Logger
}

func NewConsumer(cfg *config.QueueConfig, log *zerolog.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue bind: %w", err)
	}
	// One unacked delivery per worker goroutine keeps long extractions
	// from starving other consumers.
	if err := ch.Qos(cfg.Workers, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}

	return &Consumer{conn: conn, ch: ch, queue: q.Name, log: log}, nil
}

// Run consumes until ctx is cancelled or the delivery channel closes.
// Each delivery is handed to submit, which blocks until a worker slot
// frees up.
func (c *Consumer) Run(ctx context.Context, submit func(task func()), handle JobHandler) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.dispatch(ctx, submit, handle, d)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, submit func(task func()), handle JobHandler, d amqp.Delivery) {
	var job model.ProcessingJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		c.log.Error().Err(err).Msg("malformed job payload, dropping")
		_ = d.Nack(false, false)
		return
	}

	submit(func() {
		if err := handle(ctx, job); err != nil {
			c.log.Error().Err(err).Str("meeting_id", job.MeetingID).Msg("job requeued")
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
	})
}

func (c *Consumer) Close() error {
	if err := c.ch.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}
