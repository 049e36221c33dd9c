package repository

import (
	"context"
	"time"

	"gym-membership-billing/internal/domain/model"
)

// MembershipRepository stores entitlements. Save returns domain.ErrAlreadyExists
// when a membership for the same payment is already present.
type MembershipRepository interface {
	Save(ctx context.Context, tx Tx, m *model.Membership) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Membership, error)
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Membership, error)
	// ExpireDue marks active memberships whose end date is not after now as expired.
	ExpireDue(ctx context.Context, tx Tx, now time.Time) (int, error)
}
