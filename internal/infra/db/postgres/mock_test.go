//go:build !integration

package postgres

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"gym-membership-billing/internal/config"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
	red "gym-membership-billing/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerUserRepo mocks the database repository that the User decorator wraps.
type mockInnerUserRepo struct {
	SaveFunc     func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
}

func (m *mockInnerUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	return m.SaveFunc(ctx, tx, u)
}
func (m *mockInnerUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return m.FindByIDFunc(ctx, tx, id)
}

// newTestRedis starts an in-process Redis and returns a connected client.
func newTestRedis(t *testing.T) (*miniredis.Miniredis, red.RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := red.NewClient(context.Background(), &config.RedisConfig{URL: mr.Addr()})
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
