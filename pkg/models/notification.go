package models

import "time"

// NotificationStatus is the terminal outcome of a delivery attempt.
type NotificationStatus string

const (
	StatusSent  NotificationStatus = "SENT"
	StatusError NotificationStatus = "ERROR"
)

// NotificationRequest is the internal shape a consumed UserCreatedEvent is mapped to.
type NotificationRequest struct {
	CorrelationID string
	EmailTo       string
	Subject       string
	Text          string
	ReceivedAt    time.Time
}

// NotificationRecord is the append-only audit row written for every delivery attempt.
type NotificationRecord struct {
	ID            string             `json:"id" db:"id"`
	CorrelationID string             `json:"correlation_id" db:"correlation_id"`
	EmailFrom     string             `json:"email_from" db:"email_from"`
	EmailTo       string             `json:"email_to" db:"email_to"`
	Subject       string             `json:"subject" db:"subject"`
	Text          string             `json:"text" db:"text"`
	Status        NotificationStatus `json:"status" db:"status"`
	FailureReason string             `json:"failure_reason,omitempty" db:"failure_reason"`
	SentAt        time.Time          `json:"sent_at" db:"sent_at"`
}

// NewNotificationRequest maps a consumed event to a delivery request.
func NewNotificationRequest(e UserCreatedEvent, receivedAt time.Time) NotificationRequest {
	return NotificationRequest{
		CorrelationID: e.UserID,
		EmailTo:       e.EmailTo,
		Subject:       e.Subject,
		Text:          e.Text,
		ReceivedAt:    receivedAt,
	}
}
