package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/pkg/errors"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[string]*entity.User
}

func NewUserRepository() repository.UserRepository {
	return &userRepository{users: make(map[string]*entity.User)}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	t := now()
	user.CreatedAt = t
	user.UpdatedAt = t

	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return cloneUser(u), nil
}
