package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
)

var _ repository.TariffRepository = (*tariffRepo)(nil)

type tariffRepo struct{ pool *pgxpool.Pool }

func NewTariffRepo(pool *pgxpool.Pool) *tariffRepo {
	return &tariffRepo{pool: pool}
}

func (r *tariffRepo) Save(ctx context.Context, tx repository.Tx, t *model.Tariff) error {
	const q = `
INSERT INTO tariffs (id, name, price, duration_days, max_visits, created_at)
VALUES ($1,$2,$3::numeric,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price=$3::numeric, duration_days=$4, max_visits=$5;`
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.Name, t.Price.StringFixed(2), t.DurationDays, t.MaxVisits, t.CreatedAt)
	return mapWriteErr(err)
}

func (r *tariffRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tariff, error) {
	const q = `SELECT id, name, price::text, duration_days, max_visits, created_at FROM tariffs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var (
		t     model.Tariff
		price string
	)
	if err := row.Scan(&t.ID, &t.Name, &price, &t.DurationDays, &t.MaxVisits, &t.CreatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	if t.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("%w: price %q", domain.ErrReadDatabaseRow, price)
	}
	return &t, nil
}
