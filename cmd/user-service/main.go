package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	_ "github.com/ju-ns/management-microsservices/docs"
	"github.com/ju-ns/management-microsservices/internal/api"
	"github.com/ju-ns/management-microsservices/internal/user"
	"github.com/ju-ns/management-microsservices/pkg/config"
	"github.com/ju-ns/management-microsservices/pkg/logger"
	"github.com/ju-ns/management-microsservices/pkg/postgres"
	"github.com/ju-ns/management-microsservices/pkg/rabbitmq"
	"github.com/ju-ns/management-microsservices/pkg/redisstream"
)

const shutdownTimeout = 10 * time.Second

// @title           User Management API
// @version         1.0
// @description     Creates and manages users. Each new user triggers an asynchronous welcome email handled by the notification service.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
func main() {
	app := &cli.App{
		Name:   "user-service",
		Usage:  "HTTP API for users; publishes user.created events",
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run migrations and serve the HTTP API", Action: serve},
			{Name: "migrate", Usage: "apply database migrations and exit", Action: migrateOnly},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("user-service failed")
	}
}

func migrateOnly(c *cli.Context) error {
	cfg, err := config.LoadForService(postgres.ServiceUser)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	log := logger.New("user-service", cfg.LogLevel, cfg.LogFormat)

	db, err := postgres.Connect(c.Context, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return postgres.RunMigrations(db, postgres.ServiceUser, log)
}

func serve(c *cli.Context) error {
	cfg, err := config.LoadForService(postgres.ServiceUser)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	log := logger.New("user-service", cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, postgres.ServiceUser, log); err != nil {
		return err
	}

	publisher, closePublisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	svc := user.NewService(postgres.NewUserStore(db), publisher, log)
	router := api.NewRouter(api.NewUserHandler(svc, log), log)

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.APIPort).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown")
	}
	log.Info("server exited gracefully")
	return nil
}

// newPublisher builds the configured broker publisher and its cleanup.
func newPublisher(ctx context.Context, cfg *config.Config, log *logrus.Entry) (user.Publisher, func(), error) {
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, log)
		if err != nil {
			return nil, nil, err
		}
		pub, err := rabbitmq.NewPublisher(conn, cfg.EmailQueue, log)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return pub, func() {
			_ = pub.Close()
			_ = conn.Close()
		}, nil

	case config.BrokerRedis:
		client, err := redisstream.NewClient(ctx, redisstream.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisstream.NewPublisher(client, cfg.EmailQueue), func() { _ = client.Close() }, nil

	default:
		return nil, nil, errors.Errorf("unknown broker %q", cfg.Broker)
	}
}
