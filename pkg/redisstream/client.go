// Package redisstream carries user.created events over a Redis Stream with a
// consumer group. It is an alternative to the RabbitMQ transport with the
// same ack/drop/requeue contract.
package redisstream

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	fieldEvent         = "event"
	fieldCorrelationID = "correlation_id"
	fieldMessageID     = "message_id"
)

// Options configures the Redis client.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a client and pings the server.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", opts.Addr)
	}
	return client, nil
}
