package rabbitmq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

// ErrPublishNotConfirmed is returned when the broker nacks a publish.
var ErrPublishNotConfirmed = errors.New("publish not confirmed by broker")

const publishTimeout = 10 * time.Second

// Publisher sends user.created events to a durable queue through the default
// exchange and waits for the broker confirm before returning.
// A closed channel (broker restart, channel exception) is reopened on the next
// Publish.
type Publisher struct {
	mu      sync.Mutex
	channel confirmChannel
	open    func() (confirmChannel, error)
	queue   string
	log     *logrus.Entry
}

// confirmChannel is the part of *amqp.Channel the publisher uses.
type confirmChannel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	IsClosed() bool
	Close() error
}

// NewPublisher opens a confirm-mode channel and declares queue.
func NewPublisher(conn *Connection, queue string, log *logrus.Entry) (*Publisher, error) {
	p := &Publisher{
		queue: queue,
		log:   log,
		open: func() (confirmChannel, error) {
			return openConfirmChannel(conn, queue)
		},
	}
	ch, err := p.open()
	if err != nil {
		return nil, err
	}
	p.channel = ch
	return p, nil
}

func openConfirmChannel(conn *Connection, queue string) (confirmChannel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	if err := declareQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, errors.Wrap(err, "enable publisher confirms")
	}
	return ch, nil
}

// Publish implements user.Publisher.
func (p *Publisher) Publish(ctx context.Context, event models.UserCreatedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	return p.publish(ctx, event.UserID, body)
}

func (p *Publisher) publish(ctx context.Context, correlationID string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:   "application/json",
		MessageId:     uuid.New().String(),
		CorrelationId: correlationID,
		Type:          string(models.EventUserCreated),
		Body:          body,
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		ch, err := p.open()
		if err != nil {
			return errors.Wrap(err, "reopen channel")
		}
		p.channel = ch
		p.log.Info("publisher channel reopened")
	}

	p.log.WithFields(logrus.Fields{
		"queue":          p.queue,
		"message_id":     msg.MessageId,
		"correlation_id": correlationID,
	}).Debug("publishing event")

	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx, "", p.queue, false, false, msg)
	if err != nil {
		return errors.Wrap(err, "publish")
	}
	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return errors.Wrap(err, "wait for publish confirm")
	}
	if !ok {
		return ErrPublishNotConfirmed
	}
	return nil
}

// Close closes the publisher channel.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
