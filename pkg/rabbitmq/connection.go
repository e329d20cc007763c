package rabbitmq

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	dialAttempts = 30
	dialBackoff  = 2 * time.Second
)

// Connection wraps an AMQP connection. Channel redials once when the
// underlying connection was closed by the broker.
type Connection struct {
	URL  string
	Conn *amqp.Connection

	mu sync.Mutex
}

// Connect dials RabbitMQ, retrying while the broker is still starting up.
func Connect(ctx context.Context, url string, log *logrus.Entry) (*Connection, error) {
	var err error
	for i := 1; i <= dialAttempts; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			log.Info("connected to RabbitMQ")
			return &Connection{URL: url, Conn: conn}, nil
		}
		log.WithError(err).WithField("attempt", i).Warn("RabbitMQ not reachable, retrying")

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "connect to RabbitMQ")
		case <-time.After(dialBackoff):
		}
	}
	return nil, errors.Wrapf(err, "could not connect to RabbitMQ after %d attempts", dialAttempts)
}

// Channel opens a new AMQP channel.
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Conn == nil || c.Conn.IsClosed() {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			return nil, errors.Wrap(err, "redial RabbitMQ")
		}
		c.Conn = conn
	}
	return c.Conn.Channel()
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Conn != nil {
		return c.Conn.Close()
	}
	return nil
}

// declareQueue declares the durable work queue. Publishers and consumers both
// call it so whichever side starts first creates the queue.
func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	return errors.Wrapf(err, "declare queue %s", name)
}
