package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // created by checkout; may carry a prepare marker
	PaymentStatusCompleted PaymentStatus = "completed" // confirmed by the gateway; membership granted
	PaymentStatusFailed    PaymentStatus = "failed"    // cancelled or failed on the gateway side
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

type PaymentMethod string

const (
	PaymentMethodClick PaymentMethod = "click"
	PaymentMethodCash  PaymentMethod = "cash" // settled at the front desk, never goes through callbacks
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodClick || m == PaymentMethodCash
}

// transitions lists every allowed status change. pending -> pending is the
// prepare marker: ids are attached while the status stays the same.
var transitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed},
}

// CanTransition reports whether a payment may move from one status to another.
func CanTransition(from, to PaymentStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PaymentIntent is one payment attempt tracked by the ledger. Its ID is the
// merchant transaction reference handed to the gateway.
type PaymentIntent struct {
	ID                    string          // UUID, merchant_trans_id
	UserID                string          // UUID
	TariffID              string          // UUID
	Amount                decimal.Decimal // fixed at creation, never updated
	Method                PaymentMethod
	Status                PaymentStatus
	ExternalTransactionID *string // click_trans_id, set on Prepare
	PrepareID             *int64  // merchant_prepare_id, set on Prepare
	MembershipID          *string // set together with status=completed
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (p *PaymentIntent) IsZero() bool { return p == nil || p.ID == "" }

// Prepared reports whether a Prepare callback has been accepted for the intent.
func (p *PaymentIntent) Prepared() bool {
	return p != nil && p.PrepareID != nil && p.ExternalTransactionID != nil
}

// PreparedWith reports whether the intent carries the given prepare marker.
func (p *PaymentIntent) PreparedWith(externalTxID string, prepareID int64) bool {
	return p.Prepared() && *p.ExternalTransactionID == externalTxID && *p.PrepareID == prepareID
}
