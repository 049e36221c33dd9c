package model

import (
	"time"

	"gym-membership-billing/internal/domain"
)

type MembershipStatus string

const (
	MembershipStatusActive  MembershipStatus = "active"
	MembershipStatusExpired MembershipStatus = "expired"
	MembershipStatusFrozen  MembershipStatus = "frozen"
)

// Membership is the entitlement granted by a completed payment: a time window,
// a visit quota, or both. A nil EndDate or MaxVisits means unlimited.
type Membership struct {
	ID         string // UUID
	UserID     string // UUID
	TariffID   string // UUID
	PaymentID  string // UUID of the PaymentIntent that paid for it
	StartDate  time.Time
	EndDate    *time.Time
	MaxVisits  *int
	UsedVisits int
	Status     MembershipStatus
	CreatedAt  time.Time
}

// NewMembership derives the entitlement window and quota from the tariff.
func NewMembership(id string, payment *PaymentIntent, tariff *Tariff, now time.Time) (*Membership, error) {
	if id == "" || payment.IsZero() || tariff.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	if payment.TariffID != tariff.ID {
		return nil, domain.ErrInvalidArgument
	}
	m := &Membership{
		ID:        id,
		UserID:    payment.UserID,
		TariffID:  tariff.ID,
		PaymentID: payment.ID,
		StartDate: now,
		Status:    MembershipStatusActive,
		CreatedAt: now,
	}
	if tariff.DurationDays != nil && *tariff.DurationDays > 0 {
		end := now.AddDate(0, 0, *tariff.DurationDays)
		m.EndDate = &end
	}
	if tariff.MaxVisits != nil {
		v := *tariff.MaxVisits
		m.MaxVisits = &v
	}
	return m, nil
}

// ExpiredAt reports whether the time window has passed at t.
func (m *Membership) ExpiredAt(t time.Time) bool {
	return m.EndDate != nil && !t.Before(*m.EndDate)
}
