package repository

import (
	"context"

	"gym-membership-billing/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

// PaymentRepository persists payment intents. Reads return domain.ErrNotFound
// when nothing matches. The conditional updates only touch rows that are still
// pending and report whether a row changed; callers re-read to learn why not.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PaymentIntent) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentIntent, error)
	FindByExternalTransactionID(ctx context.Context, tx Tx, externalTxID string) (*model.PaymentIntent, error)
	FindByPrepareID(ctx context.Context, tx Tx, prepareID int64, method model.PaymentMethod) (*model.PaymentIntent, error)
	FindCompleted(ctx context.Context, tx Tx, userID, tariffID string, method model.PaymentMethod) (*model.PaymentIntent, error)

	SetPrepareMarkerIfPending(ctx context.Context, tx Tx, id, externalTxID string, prepareID int64) (bool, error)
	CompleteIfPrepared(ctx context.Context, tx Tx, id, externalTxID, membershipID string) (bool, error)
	FailIfPending(ctx context.Context, tx Tx, id, externalTxID string) (bool, error)
}

// PaymentEventRepository is the append-only audit trail of ledger transitions.
type PaymentEventRepository interface {
	Append(ctx context.Context, tx Tx, e *model.PaymentEvent) error
	ListByPayment(ctx context.Context, tx Tx, paymentID string) ([]*model.PaymentEvent, error)
}
