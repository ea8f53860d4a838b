package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

// UserService manages principals mirrored from the identity provider.
// Users synced by this process are remembered so repeat requests skip the
// upsert; Update refreshes and Delete forgets the remembered copy.
type UserService struct {
	store  store.Store
	synced sync.Map // user id -> models.User
}

// NewUserService creates a UserService backed by s.
func NewUserService(s store.Store) (*UserService, error) {
	if s == nil {
		return nil, ErrStoreNil
	}
	return &UserService{store: s}, nil
}

// Sync records the principal locally. Calling it again with the same id is safe.
func (s *UserService) Sync(ctx context.Context, id, email, name string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, models.NewFieldError("id", "user id is required")
	}
	if cached, ok := s.synced.Load(id); ok {
		user := cached.(models.User)
		return &user, nil
	}

	user := &models.User{ID: id, Email: email, Name: name}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, err
	}
	s.synced.Store(id, *user)
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, in models.UpdateUserInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		user.Email = strings.TrimSpace(*in.Email)
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, userNotFound(err)
	}
	if _, ok := s.synced.Load(id); ok {
		s.synced.Store(id, *user)
	}
	return user, nil
}

// Delete removes the user together with all of their tasks.
// The next Sync for id upserts again.
func (s *UserService) Delete(ctx context.Context, id string) error {
	err := s.store.DeleteUser(ctx, id)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		s.synced.Delete(id)
	}
	return userNotFound(err)
}

func userNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
