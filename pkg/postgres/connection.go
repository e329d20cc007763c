package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	connectAttempts = 30
	connectBackoff  = 2 * time.Second
	pingTimeout     = 5 * time.Second
)

// Connect opens a PostgreSQL pool, retrying until the server answers a ping.
func Connect(ctx context.Context, databaseURL string, log *logrus.Entry) (*sqlx.DB, error) {
	var err error
	for i := 1; i <= connectAttempts; i++ {
		var db *sqlx.DB
		db, err = ping(ctx, databaseURL)
		if err == nil {
			log.Info("connected to PostgreSQL")
			return db, nil
		}
		log.WithError(err).WithField("attempt", i).Warn("PostgreSQL not reachable, retrying")

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "connect to PostgreSQL")
		case <-time.After(connectBackoff):
		}
	}
	return nil, errors.Wrapf(err, "could not connect to database after %d attempts", connectAttempts)
}

func ping(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
