package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

const notificationColumns = "id, correlation_id, email_from, email_to, subject, text, status, failure_reason, sent_at"

// NotificationStore appends delivery records to the notifications table.
type NotificationStore struct {
	db *sqlx.DB
}

func NewNotificationStore(db *sqlx.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Save(ctx context.Context, r models.NotificationRecord) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`)
		 VALUES (:id, :correlation_id, :email_from, :email_to, :subject, :text, :status, :failure_reason, :sent_at)`,
		r)
	return errors.Wrap(err, "insert notification")
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (s *NotificationStore) List(ctx context.Context, limit int) ([]models.NotificationRecord, error) {
	records := []models.NotificationRecord{}
	query := `SELECT ` + notificationColumns + ` FROM notifications ORDER BY sent_at DESC`
	var err error
	if limit > 0 {
		err = s.db.SelectContext(ctx, &records, query+` LIMIT $1`, limit)
	} else {
		err = s.db.SelectContext(ctx, &records, query)
	}
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	return records, nil
}

// ListByCorrelationID returns every attempt made for one user, oldest first.
func (s *NotificationStore) ListByCorrelationID(ctx context.Context, correlationID string) ([]models.NotificationRecord, error) {
	records := []models.NotificationRecord{}
	err := s.db.SelectContext(ctx, &records,
		`SELECT `+notificationColumns+` FROM notifications WHERE correlation_id = $1 ORDER BY sent_at`,
		correlationID)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications by correlation id")
	}
	return records, nil
}
