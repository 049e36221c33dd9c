package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
	"gym-membership-billing/internal/infra/metrics"
	red "gym-membership-billing/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.UserRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &userRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func userKey(id string) string { return fmt.Sprintf("user:id:%s", id) }

// For write operations, we must invalidate the cached user.
func (d *userRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	_ = d.cache.Del(ctx, userKey(u.ID))
	return d.inner.Save(ctx, tx, u)
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := userKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var u model.User
		if json.Unmarshal([]byte(val), &u) == nil {
			metrics.IncCacheRequest("user", "hit")
			return &u, nil
		}
	} else if !red.IsMiss(err) {
		d.log.Warn().Err(err).Str("key", key).Msg("redis get failed")
	}

	metrics.IncCacheRequest("user", "miss")
	u, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(u); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return u, nil
}
