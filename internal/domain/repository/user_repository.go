package repository

import (
	"context"

	"flatmate/internal/domain/entity"
)

// UserRepository is the read side of the profile service. Create exists for
// seeding and tests; profile editing lives elsewhere.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
}
