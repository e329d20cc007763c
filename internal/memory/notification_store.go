package memory

import (
	"context"
	"sync"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

// NotificationStore is an append-only slice of records.
type NotificationStore struct {
	mu      sync.Mutex
	records []models.NotificationRecord

	// Err, when set, is returned by Save instead of storing the record.
	Err error
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

func (s *NotificationStore) Save(_ context.Context, r models.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.records = append(s.records, r)
	return nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (s *NotificationStore) List(_ context.Context, limit int) ([]models.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NotificationRecord, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		out = append(out, s.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ByCorrelationID returns every record for one originating user, oldest first.
func (s *NotificationStore) ByCorrelationID(id string) []models.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.NotificationRecord
	for _, r := range s.records {
		if r.CorrelationID == id {
			out = append(out, r)
		}
	}
	return out
}
