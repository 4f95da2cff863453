// Package cache resolves user display names, optionally through Redis.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"flatmate/internal/domain/repository"
)

const keyPrefix = "user:name:"

type UserDirectory struct {
	users  repository.UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewUserDirectory reads names from users. A nil client disables caching.
func NewUserDirectory(users repository.UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *UserDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserDirectory{
		users:  users,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// DisplayName returns the user's name, or "" when the user is unknown. Cache
// errors degrade to a repository read.
func (d *UserDirectory) DisplayName(ctx context.Context, userID string) string {
	if d.client != nil {
		name, err := d.client.Get(ctx, keyPrefix+userID).Result()
		if err == nil {
			return name
		}
		if err != redis.Nil {
			d.logger.Warn("user name cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}

	if d.client != nil {
		if err := d.client.Set(ctx, keyPrefix+userID, user.Name, d.ttl).Err(); err != nil {
			d.logger.Warn("user name cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return user.Name
}

// Invalidate drops userID's cached name.
func (d *UserDirectory) Invalidate(ctx context.Context, userID string) error {
	if d.client == nil {
		return nil
	}
	return d.client.Del(ctx, keyPrefix+userID).Err()
}
