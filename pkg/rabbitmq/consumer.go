package rabbitmq

import (
	"context"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ju-ns/management-microsservices/pkg/broker"
)

// ConsumerConfig holds configuration for setting up a consumer.
type ConsumerConfig struct {
	QueueName    string
	ConsumerName string
	Workers      int
}

// SetupConsumer declares the queue, sets the prefetch to the worker count and
// processes deliveries until ctx is cancelled or the channel closes.
// Each delivery is acked, dropped or requeued according to broker.Resolve.
func SetupConsumer(ctx context.Context, conn *Connection, cfg ConsumerConfig, handler broker.Handler, log *logrus.Entry) error {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	if err := declareQueue(ch, cfg.QueueName); err != nil {
		return err
	}
	if err := ch.Qos(cfg.Workers, 0, false); err != nil {
		return errors.Wrap(err, "set prefetch")
	}

	msgs, err := ch.ConsumeWithContext(
		ctx,
		cfg.QueueName,
		cfg.ConsumerName,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Wrapf(err, "consume %s", cfg.QueueName)
	}

	log = log.WithFields(logrus.Fields{"queue": cfg.QueueName, "consumer": cfg.ConsumerName})
	log.WithField("workers", cfg.Workers).Info("consumer started")
	return dispatch(ctx, msgs, cfg.Workers, handler, log)
}

// dispatch fans deliveries out to at most workers concurrent handlers.
func dispatch(ctx context.Context, msgs <-chan amqp.Delivery, workers int, handler broker.Handler, log *logrus.Entry) error {
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return nil
		case d, ok := <-msgs:
			if !ok {
				_ = g.Wait()
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("delivery channel closed")
			}
			g.Go(func() error {
				settle(ctx, d, handler, log)
				return nil
			})
		}
	}
}

// settle runs the handler and acks on a context detached from the consume
// loop: a dequeued delivery always reaches a recorded outcome, even during
// shutdown.
func settle(ctx context.Context, d amqp.Delivery, handler broker.Handler, log *logrus.Entry) {
	ctx = context.WithoutCancel(ctx)
	msg := broker.Message{
		ID:            d.MessageId,
		Body:          d.Body,
		CorrelationID: d.CorrelationId,
		Redelivered:   d.Redelivered,
	}
	err := handler(ctx, msg)
	disposition := broker.Resolve(err)

	entry := log.WithFields(logrus.Fields{
		"message_id":     d.MessageId,
		"correlation_id": d.CorrelationId,
		"disposition":    disposition.String(),
	})
	if err != nil {
		entry = entry.WithError(err)
	}

	var ackErr error
	switch disposition {
	case broker.Ack:
		ackErr = d.Ack(false)
	case broker.Drop:
		entry.Warn("dropping unprocessable message")
		ackErr = d.Ack(false)
	case broker.Requeue:
		entry.Warn("processing failed, requeueing message")
		ackErr = d.Nack(false, true)
	}
	if ackErr != nil {
		entry.WithError(ackErr).Error("failed to settle delivery")
	}
}
