package redisstream

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

// Publisher appends user.created events to a stream.
type Publisher struct {
	client redis.Cmdable
	stream string
}

func NewPublisher(client redis.Cmdable, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

// Publish implements user.Publisher. XADD returns only after the entry is
// stored, so a nil error means the event is durable in the stream.
func (p *Publisher) Publish(ctx context.Context, event models.UserCreatedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: encode(uuid.New().String(), event.UserID, body),
	}
	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return errors.Wrapf(err, "xadd %s", p.stream)
	}
	return nil
}

func encode(messageID, correlationID string, body []byte) map[string]any {
	return map[string]any{
		fieldEvent:         string(body),
		fieldCorrelationID: correlationID,
		fieldMessageID:     messageID,
	}
}
