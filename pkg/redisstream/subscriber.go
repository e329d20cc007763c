package redisstream

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ju-ns/management-microsservices/pkg/broker"
)

// SubscriberConfig configures a consumer-group reader.
type SubscriberConfig struct {
	Stream   string
	Group    string
	Consumer string
	Workers  int

	// BatchSize bounds one XREADGROUP call. Defaults to Workers.
	BatchSize int64
	// Block is how long XREADGROUP waits for new entries.
	Block time.Duration
	// ReclaimAfter is the idle time after which an unacked entry is claimed
	// again and redelivered.
	ReclaimAfter time.Duration
}

// Subscriber reads a stream through a consumer group. Entries whose handler
// result is Requeue stay pending and are reclaimed after ReclaimAfter.
type Subscriber struct {
	client  redis.Cmdable
	cfg     SubscriberConfig
	handler broker.Handler
	log     *logrus.Entry
}

func NewSubscriber(client redis.Cmdable, cfg SubscriberConfig, handler broker.Handler, log *logrus.Entry) *Subscriber {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = int64(cfg.Workers)
	}
	if cfg.Block == 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.ReclaimAfter == 0 {
		cfg.ReclaimAfter = 30 * time.Second
	}
	return &Subscriber{
		client:  client,
		cfg:     cfg,
		handler: handler,
		log: log.WithFields(logrus.Fields{
			"stream":   cfg.Stream,
			"group":    cfg.Group,
			"consumer": cfg.Consumer,
		}),
	}
}

// Start blocks until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return errors.Wrap(err, "create consumer group")
	}

	s.log.WithField("workers", s.cfg.Workers).Info("subscriber started")

	for {
		if ctx.Err() != nil {
			s.log.Info("subscriber stopping")
			return nil
		}

		if err := s.reclaim(ctx); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Warn("reclaim pending entries failed")
		}
		if err := s.readNew(ctx); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Error("read from stream failed")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (s *Subscriber) readNew(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, ">"},
		Count:    s.cfg.BatchSize,
		Block:    s.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, st := range streams {
		s.process(ctx, st.Messages, false)
	}
	return nil
}

func (s *Subscriber) reclaim(ctx context.Context) error {
	msgs, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   s.cfg.Stream,
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		MinIdle:  s.cfg.ReclaimAfter,
		Start:    "0-0",
		Count:    s.cfg.BatchSize,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	s.process(ctx, msgs, true)
	return nil
}

// process handles one batch with at most Workers handlers in flight.
func (s *Subscriber) process(ctx context.Context, msgs []redis.XMessage, redelivered bool) {
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Workers)
	for _, xm := range msgs {
		g.Go(func() error {
			s.settle(ctx, xm, redelivered)
			return nil
		})
	}
	_ = g.Wait()
}

// settle runs detached from the read loop's context so shutdown never cuts
// a delivery between send and record or between record and XACK.
func (s *Subscriber) settle(ctx context.Context, xm redis.XMessage, redelivered bool) {
	ctx = context.WithoutCancel(ctx)
	var err error
	msg, decodeErr := decode(xm)
	if decodeErr != nil {
		err = decodeErr
	} else {
		msg.Redelivered = redelivered
		err = s.handler(ctx, msg)
	}

	disposition := broker.Resolve(err)
	entry := s.log.WithFields(logrus.Fields{
		"entry_id":       xm.ID,
		"correlation_id": msg.CorrelationID,
		"disposition":    disposition.String(),
	})
	if err != nil {
		entry = entry.WithError(err)
	}

	switch disposition {
	case broker.Requeue:
		entry.Warn("processing failed, entry left pending for reclaim")
		return
	case broker.Drop:
		entry.Warn("dropping unprocessable entry")
	}
	if ackErr := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, xm.ID).Err(); ackErr != nil {
		entry.WithError(ackErr).Error("xack failed")
	}
}

// decode maps a stream entry to a broker.Message. Entries without an event
// payload are poison.
func decode(xm redis.XMessage) (broker.Message, error) {
	body, ok := xm.Values[fieldEvent].(string)
	if !ok {
		return broker.Message{ID: xm.ID}, errors.Wrap(broker.ErrPoisonMessage, "entry has no event field")
	}
	msg := broker.Message{ID: xm.ID, Body: []byte(body)}
	if id, ok := xm.Values[fieldMessageID].(string); ok && id != "" {
		msg.ID = id
	}
	if cid, ok := xm.Values[fieldCorrelationID].(string); ok {
		msg.CorrelationID = cid
	}
	return msg, nil
}
