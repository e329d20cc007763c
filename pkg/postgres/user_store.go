package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/ju-ns/management-microsservices/internal/user"
	"github.com/ju-ns/management-microsservices/pkg/models"
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	userColumns            = "id, name, email, created_at, updated_at"
)

// UserStore implements user.Store on the users table.
type UserStore struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db, q: db}
}

func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, s.q, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
	return exists, errors.Wrap(err, "exists by email")
}

func (s *UserStore) ExistsByEmailExcept(ctx context.Context, email, id string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, s.q, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, id)
	return exists, errors.Wrap(err, "exists by email except")
}

func (s *UserStore) Create(ctx context.Context, u models.User) (models.User, error) {
	var saved models.User
	err := sqlx.GetContext(ctx, s.q, &saved,
		`INSERT INTO users (id, name, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return models.User{}, mapError(err, "insert user")
	}
	return saved, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := sqlx.GetContext(ctx, s.q, &u,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return models.User{}, mapError(err, "find user")
	}
	return u, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := sqlx.SelectContext(ctx, s.q, &users,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

func (s *UserStore) Update(ctx context.Context, u models.User) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET name = $2, email = $3, updated_at = $4 WHERE id = $1`,
		u.ID, u.Name, u.Email, u.UpdatedAt)
	if err != nil {
		return mapError(err, "update user")
	}
	return requireRow(res, "update user")
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete user")
	}
	return requireRow(res, "delete user")
}

// InTx runs fn in a serializable transaction. Nested calls reuse the open one.
func (s *UserStore) InTx(ctx context.Context, fn func(user.Store) error) error {
	if _, ok := s.q.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	if err := fn(&UserStore{db: s.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(err, "commit")
	}
	return nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

// mapError translates driver errors into the user package's sentinel errors.
func mapError(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return user.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return errors.Wrap(user.ErrConflict, pqErr.Message)
		case pqSerializationFailure:
			return errors.Wrap(user.ErrConflict, "concurrent write, retry the request")
		}
	}
	return errors.Wrap(err, op)
}
