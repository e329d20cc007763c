package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ju-ns/management-microsservices/pkg/broker"
	"github.com/ju-ns/management-microsservices/pkg/models"
)

// Queue is a single FIFO queue with at-least-once semantics: a message stays
// pending until its handler result resolves to Ack or Drop.
type Queue struct {
	mu      sync.Mutex
	pending []broker.Message
	acked   []broker.Message

	// PublishErr, when set, makes Publish fail without enqueueing.
	PublishErr error
}

func NewQueue() *Queue {
	return &Queue{}
}

// Publish implements user.Publisher.
func (q *Queue) Publish(_ context.Context, event models.UserCreatedEvent) error {
	if q.PublishErr != nil {
		return q.PublishErr
	}
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	q.Enqueue(broker.Message{ID: uuid.New().String(), Body: body, CorrelationID: event.UserID})
	return nil
}

// Enqueue appends a raw message.
func (q *Queue) Enqueue(msg broker.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, msg)
}

// DeliverNext hands the head message to h and settles it. It reports false
// when the queue is empty.
func (q *Queue) DeliverNext(ctx context.Context, h broker.Handler) (broker.Disposition, bool) {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return broker.Ack, false
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	q.mu.Unlock()

	d := broker.Resolve(h(ctx, msg))

	q.mu.Lock()
	defer q.mu.Unlock()
	if d == broker.Requeue {
		msg.Redelivered = true
		q.pending = append(q.pending, msg)
	} else {
		q.acked = append(q.acked, msg)
	}
	return d, true
}

// Drain delivers until the queue is empty or max deliveries were made.
func (q *Queue) Drain(ctx context.Context, h broker.Handler, max int) int {
	n := 0
	for n < max {
		if _, ok := q.DeliverNext(ctx, h); !ok {
			break
		}
		n++
	}
	return n
}

// CrashAfterDelivery hands the head message to h and then simulates a consumer
// crash before the ack: the message goes back to the queue flagged as redelivered.
func (q *Queue) CrashAfterDelivery(ctx context.Context, h broker.Handler) bool {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return false
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	q.mu.Unlock()

	_ = h(ctx, msg)

	msg.Redelivered = true
	q.Enqueue(msg)
	return true
}

// Pending returns the number of unacknowledged messages.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Published returns every message that was ever enqueued and is either pending or settled.
func (q *Queue) Published() []broker.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]broker.Message, 0, len(q.acked)+len(q.pending))
	out = append(out, q.acked...)
	out = append(out, q.pending...)
	return out
}
