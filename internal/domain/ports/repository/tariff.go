package repository

import (
	"context"

	"gym-membership-billing/internal/domain/model"
)

// TariffRepository is the tariff lookup consumed by settlement.
type TariffRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Tariff) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Tariff, error)
}
