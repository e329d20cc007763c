package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

// Service owns the user invariants: email uniqueness, field validation and
// publishing exactly one UserCreatedEvent per successful create.
type Service struct {
	store     Store
	publisher Publisher
	log       *logrus.Entry
	now       func() time.Time
	newID     func() string
}

// NewService creates a Service.
func NewService(store Store, publisher Publisher, log *logrus.Entry) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
}

// Create validates input, enforces email uniqueness, persists the user and
// publishes the welcome event. A publish failure is returned even though the
// user row is already committed.
func (s *Service) Create(ctx context.Context, name, email string) (models.User, error) {
	name, email, err := validateNew(name, email)
	if err != nil {
		return models.User{}, err
	}

	now := s.now()
	candidate := models.User{
		ID:        s.newID(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var saved models.User
	err = s.store.InTx(ctx, func(tx Store) error {
		exists, err := tx.ExistsByEmail(ctx, email)
		if err != nil {
			return errors.Wrap(err, "check email")
		}
		if exists {
			return errors.Wrapf(ErrConflict, "there's already a user with the email %s", email)
		}
		saved, err = tx.Create(ctx, candidate)
		return err
	})
	if err != nil {
		return models.User{}, err
	}

	if !complete(saved.ID, saved.Name, saved.Email) {
		s.log.WithField("user_id", saved.ID).Warn("persisted user is incomplete, event not published")
		return models.User{}, ErrInvalidState
	}

	if err := s.publisher.Publish(ctx, models.NewUserCreatedEvent(saved)); err != nil {
		s.log.WithError(err).WithField("user_id", saved.ID).Error("user committed but user.created was not published")
		return models.User{}, errors.Wrap(err, "publish user.created")
	}

	s.log.WithFields(logrus.Fields{"user_id": saved.ID, "email": saved.Email}).Info("user created")
	return saved, nil
}

// Update applies a partial change. Only supplied fields are validated and written.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (models.User, error) {
	patch = patch.normalize()

	var updated models.User
	err := s.store.InTx(ctx, func(tx Store) error {
		current, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if patch.Email != nil {
			if err := validatePatchEmail(*patch.Email); err != nil {
				return err
			}
			if *patch.Email != current.Email {
				taken, err := tx.ExistsByEmailExcept(ctx, *patch.Email, id)
				if err != nil {
					return errors.Wrap(err, "check email")
				}
				if taken {
					return errors.Wrapf(ErrConflict, "there's already a user with the email %s", *patch.Email)
				}
			}
		}
		if patch.Name != nil {
			if err := validatePatchName(*patch.Name); err != nil {
				return err
			}
		}

		if patch.empty() {
			updated = current
			return nil
		}

		updated = merge(current, patch)
		updated.UpdatedAt = s.now()
		return tx.Update(ctx, updated)
	})
	if err != nil {
		return models.User{}, err
	}

	s.log.WithField("user_id", updated.ID).Info("user updated")
	return updated, nil
}

// Delete removes an existing user. Notification records are left untouched.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.InTx(ctx, func(tx Store) error {
		if _, err := tx.FindByID(ctx, id); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}

// FindByID returns the user with id or ErrNotFound.
func (s *Service) FindByID(ctx context.Context, id string) (models.User, error) {
	return s.store.FindByID(ctx, id)
}

// ListAll returns every user.
func (s *Service) ListAll(ctx context.Context) ([]models.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}
