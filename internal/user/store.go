package user

import (
	"context"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

// Store persists users. Implementations return ErrNotFound for unknown ids and
// ErrConflict when the unique email index rejects a write.
type Store interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByEmailExcept(ctx context.Context, email, id string) (bool, error)
	// Create inserts u and returns the row as persisted.
	Create(ctx context.Context, u models.User) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, u models.User) error
	Delete(ctx context.Context, id string) error
	// InTx runs fn inside one transaction; fn's Store is bound to it.
	InTx(ctx context.Context, fn func(Store) error) error
}

// Publisher hands a UserCreatedEvent to the broker.
type Publisher interface {
	Publish(ctx context.Context, event models.UserCreatedEvent) error
}
