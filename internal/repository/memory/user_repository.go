// Package memory keeps users in process memory. It backs tests and local runs
// without a database file.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"account-service/internal/domain"
	"account-service/internal/repository"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) Init(context.Context) error { return nil }

func (r *UserRepository) Create(_ context.Context, user *domain.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findLocked(func(u *domain.User) bool { return u.Username == user.Username }) != nil {
		return "", repository.ErrUsernameTaken
	}
	if r.findLocked(func(u *domain.User) bool { return u.Email == user.Email }) != nil {
		return "", repository.ErrEmailTaken
	}

	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.users[stored.ID] = &stored
	return stored.ID, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.get(func(u *domain.User) bool { return u.Username == username })
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.get(func(u *domain.User) bool { return u.Email == email })
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.get(func(u *domain.User) bool { return u.ID == id })
}

func (r *UserRepository) Update(_ context.Context, username string, changes repository.UserChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target := r.findLocked(func(u *domain.User) bool { return u.Username == username })
	if target == nil {
		return repository.ErrNotFound
	}
	if changes.Username != nil && r.findLocked(func(u *domain.User) bool {
		return u.ID != target.ID && u.Username == *changes.Username
	}) != nil {
		return repository.ErrUsernameTaken
	}
	if changes.Email != nil && r.findLocked(func(u *domain.User) bool {
		return u.ID != target.ID && u.Email == *changes.Email
	}) != nil {
		return repository.ErrEmailTaken
	}

	if changes.Username != nil {
		target.Username = *changes.Username
	}
	if changes.Email != nil {
		target.Email = *changes.Email
	}
	if changes.FullName != nil {
		target.FullName = *changes.FullName
	}
	if changes.PasswordHash != nil {
		target.PasswordHash = *changes.PasswordHash
	}
	if changes.Disabled != nil {
		target.Disabled = *changes.Disabled
	}
	target.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) get(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u := r.findLocked(match)
	if u == nil {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *UserRepository) findLocked(match func(*domain.User) bool) *domain.User {
	for _, u := range r.users {
		if match(u) {
			return u
		}
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
