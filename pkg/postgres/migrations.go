package postgres

import (
	"embed"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	ServiceUser         = "user"
	ServiceNotification = "notification"
)

//go:embed migrations/user/*.sql migrations/notification/*.sql
var migrationFiles embed.FS

// migrationSource returns the embedded migration directory of service.
func migrationSource(service string) (fs.FS, error) {
	switch service {
	case ServiceUser, ServiceNotification:
		return fs.Sub(migrationFiles, "migrations/"+service)
	default:
		return nil, errors.Errorf("unknown migration set %q", service)
	}
}

// migrationsTable keeps each service's schema version separate so both
// services can share one database.
func migrationsTable(service string) string {
	return service + "_schema_migrations"
}

// RunMigrations applies every pending up migration of service.
func RunMigrations(db *sqlx.DB, service string, log *logrus.Entry) error {
	src, err := migrationSource(service)
	if err != nil {
		return err
	}
	source, err := iofs.New(src, ".")
	if err != nil {
		return errors.Wrap(err, "open migration source")
	}

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{
		MigrationsTable: migrationsTable(service),
	})
	if err != nil {
		return errors.Wrap(err, "create migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, "create migrator")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrapf(err, "migrate %s", service)
	}

	version, dirty, _ := m.Version()
	log.WithFields(logrus.Fields{"service": service, "version": version, "dirty": dirty}).Info("migrations applied")
	return nil
}
