package model

import (
	"time"

	"github.com/shopspring/decimal"

	"gym-membership-billing/internal/domain"
)

// Tariff is a purchasable offer. Nil DurationDays or MaxVisits means unlimited.
type Tariff struct {
	ID           string
	Name         string
	Price        decimal.Decimal
	DurationDays *int
	MaxVisits    *int
	CreatedAt    time.Time
}

func (t *Tariff) IsZero() bool { return t == nil || t.ID == "" }

// NewTariff validates and constructs a tariff.
func NewTariff(id, name string, price decimal.Decimal, durationDays, maxVisits *int) (*Tariff, error) {
	if id == "" || name == "" || !price.IsPositive() {
		return nil, domain.ErrInvalidArgument
	}
	if durationDays != nil && *durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if maxVisits != nil && *maxVisits <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Tariff{
		ID:           id,
		Name:         name,
		Price:        price,
		DurationDays: durationDays,
		MaxVisits:    maxVisits,
		CreatedAt:    time.Now(),
	}, nil
}
