package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ju-ns/management-microsservices/internal/notification"
	"github.com/ju-ns/management-microsservices/pkg/broker"
	"github.com/ju-ns/management-microsservices/pkg/config"
	"github.com/ju-ns/management-microsservices/pkg/logger"
	"github.com/ju-ns/management-microsservices/pkg/mailer"
	"github.com/ju-ns/management-microsservices/pkg/postgres"
	"github.com/ju-ns/management-microsservices/pkg/rabbitmq"
	"github.com/ju-ns/management-microsservices/pkg/redisstream"
)

const (
	consumerName = "notification-service"
	smtpTimeout  = 10 * time.Second
)

func main() {
	app := &cli.App{
		Name:   "notification-service",
		Usage:  "consumes user.created events and sends the welcome email",
		Action: run,
		Commands: []*cli.Command{
			{Name: "run", Usage: "run migrations and consume events", Action: run},
			{Name: "migrate", Usage: "apply database migrations and exit", Action: migrateOnly},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("notification-service failed")
	}
}

func migrateOnly(c *cli.Context) error {
	cfg, err := config.LoadForService(postgres.ServiceNotification)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	log := logger.New(consumerName, cfg.LogLevel, cfg.LogFormat)

	db, err := postgres.Connect(c.Context, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return postgres.RunMigrations(db, postgres.ServiceNotification, log)
}

func run(c *cli.Context) error {
	cfg, err := config.LoadForService(postgres.ServiceNotification)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	log := logger.New(consumerName, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, postgres.ServiceNotification, log); err != nil {
		return err
	}

	transport, err := newMailer(cfg, log)
	if err != nil {
		return err
	}
	delivery := notification.NewDeliveryService(transport, postgres.NewNotificationStore(db), cfg.MailFrom, log)
	consumer := notification.NewConsumer(delivery, log)

	err = consume(ctx, cfg, consumer.HandleMessage, log)
	log.Info("consumer stopped")
	return err
}

func newMailer(cfg *config.Config, log *logrus.Entry) (notification.Mailer, error) {
	switch cfg.MailTransport {
	case "smtp":
		return mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			Timeout:  smtpTimeout,
		}), nil
	case "log":
		return mailer.NewLogTransport(log), nil
	default:
		return nil, errors.Errorf("unknown mail transport %q", cfg.MailTransport)
	}
}

// consume blocks on the configured broker until ctx is cancelled.
func consume(ctx context.Context, cfg *config.Config, handler broker.Handler, log *logrus.Entry) error {
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		return rabbitmq.SetupConsumer(ctx, conn, rabbitmq.ConsumerConfig{
			QueueName:    cfg.EmailQueue,
			ConsumerName: consumerName,
			Workers:      cfg.ConsumerWorkers,
		}, handler, log)

	case config.BrokerRedis:
		client, err := redisstream.NewClient(ctx, redisstream.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer client.Close()

		hostname, _ := os.Hostname()
		sub := redisstream.NewSubscriber(client, redisstream.SubscriberConfig{
			Stream:   cfg.EmailQueue,
			Group:    consumerName,
			Consumer: consumerName + "-" + hostname,
			Workers:  cfg.ConsumerWorkers,
		}, handler, log)
		return sub.Start(ctx)

	default:
		return errors.Errorf("unknown broker %q", cfg.Broker)
	}
}
