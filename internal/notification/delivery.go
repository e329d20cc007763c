package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ju-ns/management-microsservices/pkg/mailer"
	"github.com/ju-ns/management-microsservices/pkg/models"
)

// Mailer is the outbound mail transport.
type Mailer interface {
	Send(ctx context.Context, email mailer.Email) error
}

// Store persists notification outcome records. It is append-only.
type Store interface {
	Save(ctx context.Context, record models.NotificationRecord) error
	List(ctx context.Context, limit int) ([]models.NotificationRecord, error)
}

// DeliveryService makes exactly one send attempt per request and records its outcome.
type DeliveryService struct {
	mailer Mailer
	store  Store
	from   string
	log    *logrus.Entry
	now    func() time.Time
}

// NewDeliveryService creates a DeliveryService sending from the given address.
func NewDeliveryService(m Mailer, store Store, from string, log *logrus.Entry) *DeliveryService {
	return &DeliveryService{
		mailer: m,
		store:  store,
		from:   from,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Deliver sends the email and persists a SENT or ERROR record. Transport
// failures are folded into the record; the returned error is only ever a
// failure to persist it.
func (s *DeliveryService) Deliver(ctx context.Context, req models.NotificationRequest) (models.NotificationRecord, error) {
	email := mailer.Email{
		From:    s.from,
		To:      req.EmailTo,
		Subject: req.Subject,
		Text:    req.Text,
	}

	sendErr := s.mailer.Send(ctx, email)

	record := models.NotificationRecord{
		ID:            uuid.New().String(),
		CorrelationID: req.CorrelationID,
		EmailFrom:     email.From,
		EmailTo:       email.To,
		Subject:       email.Subject,
		Text:          email.Text,
		Status:        models.StatusSent,
		SentAt:        s.now(),
	}
	fields := logrus.Fields{"correlation_id": req.CorrelationID, "email_to": req.EmailTo}
	if sendErr != nil {
		record.Status = models.StatusError
		record.FailureReason = sendErr.Error()
		s.log.WithError(sendErr).WithFields(fields).Warn("email delivery failed")
	}

	if err := s.store.Save(ctx, record); err != nil {
		return record, errors.Wrap(err, "save notification record")
	}

	s.log.WithFields(fields).WithField("status", record.Status).Info("notification recorded")
	return record, nil
}
