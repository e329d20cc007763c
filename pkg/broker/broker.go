// Package broker holds the transport-neutral pieces shared by the RabbitMQ and
// Redis Streams transports.
package broker

import (
	"context"

	"github.com/pkg/errors"
)

// ErrPoisonMessage marks a message that can never be processed. Transports
// acknowledge and drop it instead of redelivering.
var ErrPoisonMessage = errors.New("poison message")

// Message is a single delivery handed to a Handler.
type Message struct {
	ID            string
	Body          []byte
	CorrelationID string
	Redelivered   bool
}

// Handler processes one delivered message.
// Return nil to ack, an error wrapping ErrPoisonMessage to drop, any other error to requeue.
type Handler func(ctx context.Context, msg Message) error

// Disposition is what a transport does with a message once its handler returned.
type Disposition int

const (
	Ack Disposition = iota
	Drop
	Requeue
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Drop:
		return "drop"
	default:
		return "requeue"
	}
}

// Resolve maps a handler result to a Disposition.
func Resolve(err error) Disposition {
	switch {
	case err == nil:
		return Ack
	case errors.Is(err, ErrPoisonMessage):
		return Drop
	default:
		return Requeue
	}
}
