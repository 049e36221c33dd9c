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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

// Constraint names from deploy/postgres/init.sql.
const (
	constraintOneCompleted = "payments_one_completed_uidx"
)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, tariff_id, amount::text, method, status, external_transaction_id, prepare_id, membership_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*model.PaymentIntent, error) {
	var (
		p              model.PaymentIntent
		amount         string
		method, status string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.TariffID, &amount, &method, &status,
		&p.ExternalTransactionID, &p.PrepareID, &p.MembershipID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", domain.ErrReadDatabaseRow, amount)
	}
	p.Amount = d
	p.Method = model.PaymentMethod(method)
	p.Status = model.PaymentStatus(status)
	return &p, nil
}

func (r *paymentRepo) findOne(ctx context.Context, tx repository.Tx, where string, args ...interface{}) (*model.PaymentIntent, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + where + ` LIMIT 1` + lockClause(tx) + `;`
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// Save inserts a new intent. Intents are never rewritten: the amount is
// immutable and status changes go through the conditional updates below.
func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	const q = `
INSERT INTO payments (
  id, user_id, tariff_id, amount, method, status, external_transaction_id, prepare_id, membership_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4::numeric,$5,$6,$7,$8,$9,$10,$11
);`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.TariffID, p.Amount.StringFixed(2), string(p.Method), string(p.Status),
		p.ExternalTransactionID, p.PrepareID, p.MembershipID, p.CreatedAt, p.UpdatedAt)
	return mapWriteErr(err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	return r.findOne(ctx, tx, `id=$1`, id)
}

func (r *paymentRepo) FindByExternalTransactionID(ctx context.Context, tx repository.Tx, externalTxID string) (*model.PaymentIntent, error) {
	return r.findOne(ctx, tx, `external_transaction_id=$1`, externalTxID)
}

func (r *paymentRepo) FindByPrepareID(ctx context.Context, tx repository.Tx, prepareID int64, method model.PaymentMethod) (*model.PaymentIntent, error) {
	return r.findOne(ctx, tx, `prepare_id=$1 AND method=$2`, prepareID, string(method))
}

func (r *paymentRepo) FindCompleted(ctx context.Context, tx repository.Tx, userID, tariffID string, method model.PaymentMethod) (*model.PaymentIntent, error) {
	return r.findOne(ctx, tx, `user_id=$1 AND tariff_id=$2 AND method=$3 AND status='completed'`, userID, tariffID, string(method))
}

// SetPrepareMarkerIfPending attaches the gateway ids while the intent is still
// pending and carries no marker yet. An existing marker is never overwritten.
func (r *paymentRepo) SetPrepareMarkerIfPending(ctx context.Context, tx repository.Tx, id, externalTxID string, prepareID int64) (bool, error) {
	const q = `
    UPDATE payments
       SET external_transaction_id = $2,
           prepare_id = $3,
           updated_at = NOW()
     WHERE id = $1
       AND status = 'pending'
       AND external_transaction_id IS NULL`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, externalTxID, prepareID)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

// CompleteIfPrepared flips a prepared pending intent to completed and links
// its membership. A second completed payment for the same user, tariff and
// method violates the partial unique index and reports domain.ErrAlreadyPaid.
func (r *paymentRepo) CompleteIfPrepared(ctx context.Context, tx repository.Tx, id, externalTxID, membershipID string) (bool, error) {
	const q = `
    UPDATE payments
       SET status = 'completed',
           membership_id = $3,
           updated_at = NOW()
     WHERE id = $1
       AND status = 'pending'
       AND prepare_id IS NOT NULL
       AND external_transaction_id = $2`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, externalTxID, membershipID)
	if err != nil {
		if uniqueViolationOn(err, constraintOneCompleted) {
			return false, fmt.Errorf("%w: %v", domain.ErrAlreadyPaid, err)
		}
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) FailIfPending(ctx context.Context, tx repository.Tx, id, externalTxID string) (bool, error) {
	const q = `
    UPDATE payments
       SET status = 'failed',
           external_transaction_id = $2,
           updated_at = NOW()
     WHERE id = $1
       AND status = 'pending'`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, externalTxID)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

// ---- audit trail ----

var _ repository.PaymentEventRepository = (*paymentEventRepo)(nil)

type paymentEventRepo struct{ pool *pgxpool.Pool }

func NewPaymentEventRepo(pool *pgxpool.Pool) *paymentEventRepo {
	return &paymentEventRepo{pool: pool}
}

func (r *paymentEventRepo) Append(ctx context.Context, tx repository.Tx, e *model.PaymentEvent) error {
	const q = `
INSERT INTO payment_events (
  id, payment_id, kind, from_status, to_status, external_transaction_id, prepare_id, membership_id, created_at
) VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9);`
	_, err := execSQL(ctx, r.pool, tx, q,
		e.ID, e.PaymentID, string(e.Kind), string(e.FromStatus), string(e.ToStatus),
		e.ExternalTransactionID, e.PrepareID, e.MembershipID, e.CreatedAt)
	return mapWriteErr(err)
}

func (r *paymentEventRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.PaymentEvent, error) {
	const q = `
SELECT id, payment_id, kind, COALESCE(from_status,''), to_status, external_transaction_id, prepare_id, membership_id, created_at
  FROM payment_events WHERE payment_id=$1 ORDER BY id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	defer rows.Close()

	var out []*model.PaymentEvent
	for rows.Next() {
		var (
			e              model.PaymentEvent
			kind, from, to string
		)
		if err := rows.Scan(&e.ID, &e.PaymentID, &kind, &from, &to,
			&e.ExternalTransactionID, &e.PrepareID, &e.MembershipID, &e.CreatedAt); err != nil {
			return nil, mapReadErr(err)
		}
		e.Kind = model.PaymentEventKind(kind)
		e.FromStatus = model.PaymentStatus(from)
		e.ToStatus = model.PaymentStatus(to)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapReadErr(err)
	}
	return out, nil
}
