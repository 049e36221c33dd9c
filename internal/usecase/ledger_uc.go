package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
	"gym-membership-billing/internal/infra/logging"
	"gym-membership-billing/internal/infra/metrics"
)

// Compile-time check
var _ PaymentLedger = (*ledgerUC)(nil)

// PaymentLedger owns every state change of a payment intent. Writes are
// conditional on the stored status, so a lost race surfaces as
// domain.ErrAlreadyPaid, domain.ErrPaymentCanceled or domain.ErrNotPrepared
// instead of a second transition.
type PaymentLedger interface {
	Create(ctx context.Context, userID, tariffID string, amount decimal.Decimal, method model.PaymentMethod) (*model.PaymentIntent, error)

	FindByMerchantTransactionID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error)
	FindByExternalTransactionID(ctx context.Context, tx repository.Tx, externalTxID string) (*model.PaymentIntent, error)
	FindByPrepareID(ctx context.Context, tx repository.Tx, prepareID int64, method model.PaymentMethod) (*model.PaymentIntent, error)
	FindCompleted(ctx context.Context, tx repository.Tx, userID, tariffID string, method model.PaymentMethod) (*model.PaymentIntent, error)

	MarkPrepared(ctx context.Context, tx repository.Tx, paymentID, externalTxID string, prepareID int64) (*model.PaymentIntent, error)
	TransitionToCompleted(ctx context.Context, tx repository.Tx, paymentID, externalTxID, membershipID string) error
	TransitionToFailed(ctx context.Context, tx repository.Tx, paymentID, externalTxID string) error

	Events(ctx context.Context, paymentID string) ([]*model.PaymentEvent, error)
}

type ledgerUC struct {
	payments repository.PaymentRepository
	events   repository.PaymentEventRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
	now      func() time.Time
}

func NewPaymentLedger(
	payments repository.PaymentRepository,
	events repository.PaymentEventRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *ledgerUC {
	l := logger.With().Str("component", "PaymentLedger").Logger()
	return &ledgerUC{
		payments: payments,
		events:   events,
		tm:       tm,
		log:      &l,
		now:      time.Now,
	}
}

// Create records a new pending intent. The amount is fixed here and never
// updated afterwards.
func (l *ledgerUC) Create(ctx context.Context, userID, tariffID string, amount decimal.Decimal, method model.PaymentMethod) (*model.PaymentIntent, error) {
	if userID == "" || tariffID == "" || !method.Valid() || !amount.IsPositive() {
		return nil, domain.ErrInvalidArgument
	}
	now := l.now()
	p := &model.PaymentIntent{
		ID:        uuid.NewString(),
		UserID:    userID,
		TariffID:  tariffID,
		Amount:    amount.Round(2),
		Method:    method,
		Status:    model.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := l.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := l.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		return l.appendEvent(ctx, tx, p.ID, model.PaymentEventCreated, "", model.PaymentStatusPending, nil, nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	metrics.IncPayment("created")
	l.log.Info().
		Str("payment_id", p.ID).
		Str("user_id", userID).
		Str("tariff_id", tariffID).
		Str("method", string(method)).
		Str("amount", p.Amount.StringFixed(2)).
		Msg("payment intent created")
	return p, nil
}

func (l *ledgerUC) FindByMerchantTransactionID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return l.payments.FindByID(ctx, tx, id)
}

func (l *ledgerUC) FindByExternalTransactionID(ctx context.Context, tx repository.Tx, externalTxID string) (*model.PaymentIntent, error) {
	return l.payments.FindByExternalTransactionID(ctx, tx, externalTxID)
}

func (l *ledgerUC) FindByPrepareID(ctx context.Context, tx repository.Tx, prepareID int64, method model.PaymentMethod) (*model.PaymentIntent, error) {
	return l.payments.FindByPrepareID(ctx, tx, prepareID, method)
}

func (l *ledgerUC) FindCompleted(ctx context.Context, tx repository.Tx, userID, tariffID string, method model.PaymentMethod) (*model.PaymentIntent, error) {
	return l.payments.FindCompleted(ctx, tx, userID, tariffID, method)
}

// MarkPrepared attaches the gateway transaction id and the prepare id to a
// pending intent. The status stays pending. The marker is written once: an
// intent already prepared for externalTxID is returned as stored, one prepared
// for another transaction yields domain.ErrPrepareConflict.
func (l *ledgerUC) MarkPrepared(ctx context.Context, tx repository.Tx, paymentID, externalTxID string, prepareID int64) (*model.PaymentIntent, error) {
	if paymentID == "" || externalTxID == "" || prepareID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	var (
		out    *model.PaymentIntent
		stored bool
	)
	err := l.inTx(ctx, tx, func(ctx context.Context, tx repository.Tx) error {
		ok, err := l.payments.SetPrepareMarkerIfPending(ctx, tx, paymentID, externalTxID, prepareID)
		if err != nil {
			return err
		}
		if !ok {
			cur, err := l.payments.FindByID(ctx, tx, paymentID)
			if err != nil {
				return err
			}
			if cur.Status != model.PaymentStatusPending || !cur.Prepared() {
				return l.rejected(ctx, tx, paymentID, model.PaymentStatusPending)
			}
			if *cur.ExternalTransactionID != externalTxID {
				return domain.ErrPrepareConflict
			}
			out, stored = cur, true
			return nil
		}
		pid := prepareID
		if err := l.appendEvent(ctx, tx, paymentID, model.PaymentEventPrepared,
			model.PaymentStatusPending, model.PaymentStatusPending, &externalTxID, &pid, nil); err != nil {
			return err
		}
		out, err = l.payments.FindByID(ctx, tx, paymentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if stored {
		logging.With(ctx, l.log).Info().
			Str("payment_id", paymentID).
			Str("external_transaction_id", externalTxID).
			Int64("prepare_id", *out.PrepareID).
			Msg("payment already prepared")
		return out, nil
	}

	metrics.IncPayment("prepared")
	logging.With(ctx, l.log).Info().
		Str("payment_id", paymentID).
		Str("external_transaction_id", externalTxID).
		Int64("prepare_id", prepareID).
		Msg("payment prepared")
	return out, nil
}

// TransitionToCompleted moves a prepared intent to completed and links the
// membership in the same statement. Callers pass the transaction that created
// the membership.
func (l *ledgerUC) TransitionToCompleted(ctx context.Context, tx repository.Tx, paymentID, externalTxID, membershipID string) error {
	if paymentID == "" || externalTxID == "" || membershipID == "" {
		return domain.ErrInvalidArgument
	}
	err := l.inTx(ctx, tx, func(ctx context.Context, tx repository.Tx) error {
		ok, err := l.payments.CompleteIfPrepared(ctx, tx, paymentID, externalTxID, membershipID)
		if err != nil {
			return err
		}
		if !ok {
			return l.rejected(ctx, tx, paymentID, model.PaymentStatusCompleted)
		}
		return l.appendEvent(ctx, tx, paymentID, model.PaymentEventCompleted,
			model.PaymentStatusPending, model.PaymentStatusCompleted, &externalTxID, nil, &membershipID)
	})
	if err != nil {
		return err
	}

	metrics.IncPayment("completed")
	logging.With(ctx, l.log).Info().
		Str("payment_id", paymentID).
		Str("external_transaction_id", externalTxID).
		Str("membership_id", membershipID).
		Msg("payment completed")
	return nil
}

// TransitionToFailed records a gateway side cancellation.
func (l *ledgerUC) TransitionToFailed(ctx context.Context, tx repository.Tx, paymentID, externalTxID string) error {
	if paymentID == "" || externalTxID == "" {
		return domain.ErrInvalidArgument
	}
	err := l.inTx(ctx, tx, func(ctx context.Context, tx repository.Tx) error {
		ok, err := l.payments.FailIfPending(ctx, tx, paymentID, externalTxID)
		if err != nil {
			return err
		}
		if !ok {
			return l.rejected(ctx, tx, paymentID, model.PaymentStatusFailed)
		}
		return l.appendEvent(ctx, tx, paymentID, model.PaymentEventFailed,
			model.PaymentStatusPending, model.PaymentStatusFailed, &externalTxID, nil, nil)
	})
	if err != nil {
		return err
	}

	metrics.IncPayment("failed")
	logging.With(ctx, l.log).Info().
		Str("payment_id", paymentID).
		Str("external_transaction_id", externalTxID).
		Msg("payment failed")
	return nil
}

func (l *ledgerUC) Events(ctx context.Context, paymentID string) ([]*model.PaymentEvent, error) {
	return l.events.ListByPayment(ctx, repository.NoTX, paymentID)
}

// rejected explains why a conditional update touched no row.
func (l *ledgerUC) rejected(ctx context.Context, tx repository.Tx, paymentID string, to model.PaymentStatus) error {
	cur, err := l.payments.FindByID(ctx, tx, paymentID)
	if err != nil {
		return err
	}
	if model.CanTransition(cur.Status, to) {
		// Status allows it, so the marker did not match.
		return domain.ErrNotPrepared
	}
	switch cur.Status {
	case model.PaymentStatusCompleted:
		return domain.ErrAlreadyPaid
	case model.PaymentStatusFailed:
		return domain.ErrPaymentCanceled
	default:
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, cur.Status, to)
	}
}

func (l *ledgerUC) appendEvent(
	ctx context.Context, tx repository.Tx, paymentID string, kind model.PaymentEventKind,
	from, to model.PaymentStatus, externalTxID *string, prepareID *int64, membershipID *string,
) error {
	now := l.now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return err
	}
	return l.events.Append(ctx, tx, &model.PaymentEvent{
		ID:                    id.String(),
		PaymentID:             paymentID,
		Kind:                  kind,
		FromStatus:            from,
		ToStatus:              to,
		ExternalTransactionID: externalTxID,
		PrepareID:             prepareID,
		MembershipID:          membershipID,
		CreatedAt:             now,
	})
}

// inTx reuses the caller's transaction or opens one so the state change and
// its audit event commit together.
func (l *ledgerUC) inTx(ctx context.Context, tx repository.Tx, fn func(ctx context.Context, tx repository.Tx) error) error {
	if tx != nil {
		return fn(ctx, tx)
	}
	return l.tm.WithTx(ctx, pgx.TxOptions{}, fn)
}
