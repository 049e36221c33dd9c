package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
	"gym-membership-billing/internal/infra/logging"
)

// Compile-time check
var _ MembershipActivation = (*membershipUC)(nil)

// MembershipActivation grants the entitlement bought by a payment.
type MembershipActivation interface {
	// Activate creates an active membership for payment inside tx. A second
	// activation for the same payment returns domain.ErrAlreadyPaid.
	Activate(ctx context.Context, tx repository.Tx, payment *model.PaymentIntent, tariff *model.Tariff) (*model.Membership, error)
	// ExpireDue moves active memberships past their end date to expired.
	ExpireDue(ctx context.Context) (int, error)
}

type membershipUC struct {
	memberships repository.MembershipRepository
	log         *zerolog.Logger
	now         func() time.Time
}

func NewMembershipActivation(memberships repository.MembershipRepository, logger *zerolog.Logger, now func() time.Time) *membershipUC {
	if now == nil {
		now = time.Now
	}
	l := logger.With().Str("component", "MembershipActivation").Logger()
	return &membershipUC{memberships: memberships, log: &l, now: now}
}

func (u *membershipUC) Activate(ctx context.Context, tx repository.Tx, payment *model.PaymentIntent, tariff *model.Tariff) (*model.Membership, error) {
	m, err := model.NewMembership(uuid.NewString(), payment, tariff, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.memberships.Save(ctx, tx, m); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyPaid
		}
		return nil, err
	}

	ev := logging.With(ctx, u.log).Info().
		Str("membership_id", m.ID).
		Str("payment_id", payment.ID).
		Str("user_id", m.UserID).
		Str("tariff_id", m.TariffID)
	if m.EndDate != nil {
		ev = ev.Time("end_date", *m.EndDate)
	}
	if m.MaxVisits != nil {
		ev = ev.Int("max_visits", *m.MaxVisits)
	}
	ev.Msg("membership activated")
	return m, nil
}

func (u *membershipUC) ExpireDue(ctx context.Context) (int, error) {
	n, err := u.memberships.ExpireDue(ctx, repository.NoTX, u.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		u.log.Info().Int("count", n).Msg("memberships expired")
	}
	return n, nil
}
