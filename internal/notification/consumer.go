package notification

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ju-ns/management-microsservices/pkg/broker"
	"github.com/ju-ns/management-microsservices/pkg/models"
)

// Deliverer is the unit of work run for every decoded message.
type Deliverer interface {
	Deliver(ctx context.Context, req models.NotificationRequest) (models.NotificationRecord, error)
}

// Consumer maps user.created messages to delivery requests.
type Consumer struct {
	deliverer Deliverer
	log       *logrus.Entry
	now       func() time.Time
}

// NewConsumer creates a new notification consumer.
func NewConsumer(d Deliverer, log *logrus.Entry) *Consumer {
	return &Consumer{
		deliverer: d,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleMessage processes one user.created message. Undecodable payloads are
// logged and reported as poison so the transport drops them. Every decoded
// message is driven to a persisted record before this returns nil, whether or
// not ctx is cancelled meanwhile; duplicates from redelivery are not filtered.
func (c *Consumer) HandleMessage(ctx context.Context, msg broker.Message) error {
	// Cancellation of the caller must not stop a delivery halfway.
	ctx = context.WithoutCancel(ctx)
	log := c.log.WithFields(logrus.Fields{"message_id": msg.ID, "correlation_id": msg.CorrelationID})

	var event models.UserCreatedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.WithError(err).Warn("dropping undecodable message")
		return errors.Wrapf(broker.ErrPoisonMessage, "decode event: %v", err)
	}
	if strings.TrimSpace(event.EmailTo) == "" {
		log.Warn("dropping message without recipient")
		return errors.Wrap(broker.ErrPoisonMessage, "missing emailTo")
	}

	if msg.Redelivered {
		log.Info("processing redelivered message")
	}

	record, err := c.deliverer.Deliver(ctx, models.NewNotificationRequest(event, c.now()))
	if err != nil {
		log.WithError(err).Error("notification outcome not persisted")
		return err
	}

	log.WithFields(logrus.Fields{"record_id": record.ID, "status": record.Status}).Debug("message processed")
	return nil
}
