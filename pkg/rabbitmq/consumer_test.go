package rabbitmq

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ju-ns/management-microsservices/pkg/broker"
)

type settlement struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	settled []settlement
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, settlement{tag: tag, ack: true})
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, settlement{tag: tag, requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func (f *fakeAcknowledger) byTag() map[uint64]settlement {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uint64]settlement, len(f.settled))
	for _, s := range f.settled {
		out[s.tag] = s
	}
	return out
}

func testLog() *logrus.Entry {
	l, _ := logtest.NewNullLogger()
	return logrus.NewEntry(l)
}

func delivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger:  ack,
		DeliveryTag:   tag,
		MessageId:     "msg",
		CorrelationId: "user-1",
		Body:          []byte(body),
	}
}

func TestDispatch_SettlesByHandlerResult(t *testing.T) {
	ack := &fakeAcknowledger{}
	msgs := make(chan amqp.Delivery, 3)
	msgs <- delivery(ack, 1, "ok")
	msgs <- delivery(ack, 2, "poison")
	msgs <- delivery(ack, 3, "fail")
	close(msgs)

	handler := func(_ context.Context, m broker.Message) error {
		switch string(m.Body) {
		case "poison":
			return errors.Wrap(broker.ErrPoisonMessage, "bad payload")
		case "fail":
			return errors.New("db down")
		}
		return nil
	}

	err := dispatch(context.Background(), msgs, 2, handler, testLog())
	require.Error(t, err, "closed channel without cancellation is reported")

	got := ack.byTag()
	require.Len(t, got, 3)
	assert.True(t, got[1].ack)
	assert.True(t, got[2].ack, "poison messages are acked and dropped")
	assert.False(t, got[3].ack)
	assert.True(t, got[3].requeue)
}

func TestDispatch_PassesDeliveryMetadata(t *testing.T) {
	ack := &fakeAcknowledger{}
	msgs := make(chan amqp.Delivery, 1)
	d := delivery(ack, 7, `{"userId":"u"}`)
	d.Redelivered = true
	msgs <- d
	close(msgs)

	var seen broker.Message
	_ = dispatch(context.Background(), msgs, 1, func(_ context.Context, m broker.Message) error {
		seen = m
		return nil
	}, testLog())

	assert.Equal(t, "msg", seen.ID)
	assert.Equal(t, "user-1", seen.CorrelationID)
	assert.True(t, seen.Redelivered)
	assert.Equal(t, `{"userId":"u"}`, string(seen.Body))
}

func TestDispatch_RespectsWorkerLimit(t *testing.T) {
	ack := &fakeAcknowledger{}
	const n = 12
	msgs := make(chan amqp.Delivery, n)
	for i := 0; i < n; i++ {
		msgs <- delivery(ack, uint64(i+1), "x")
	}
	close(msgs)

	var inFlight, peak int32
	handler := func(context.Context, broker.Message) error {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}

	_ = dispatch(context.Background(), msgs, 3, handler, testLog())

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Len(t, ack.byTag(), n)
}

func TestDispatch_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan amqp.Delivery)

	done := make(chan error, 1)
	go func() { done <- dispatch(ctx, msgs, 1, func(context.Context, broker.Message) error { return nil }, testLog()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatch did not return after cancel")
	}
}

func TestDispatch_HandlerOutlivesShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ack := &fakeAcknowledger{}
	msgs := make(chan amqp.Delivery, 1)
	msgs <- delivery(ack, 1, "x")

	var handlerCtxErr error
	handler := func(hctx context.Context, _ broker.Message) error {
		cancel()
		handlerCtxErr = hctx.Err()
		return nil
	}

	require.NoError(t, dispatch(ctx, msgs, 1, handler, testLog()))

	assert.NoError(t, handlerCtxErr)
	got := ack.byTag()
	require.Len(t, got, 1)
	assert.True(t, got[1].ack)
}
