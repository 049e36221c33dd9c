package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, full_name, phone, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET full_name=$2, phone=$3;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.FullName, u.Phone, u.CreatedAt)
	return mapWriteErr(err)
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT id, full_name, phone, created_at FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.ID, &u.FullName, &u.Phone, &u.CreatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	return &u, nil
}
