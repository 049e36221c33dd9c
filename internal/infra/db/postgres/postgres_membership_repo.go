package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
)

var _ repository.MembershipRepository = (*membershipRepo)(nil)

type membershipRepo struct{ pool *pgxpool.Pool }

func NewMembershipRepo(pool *pgxpool.Pool) *membershipRepo {
	return &membershipRepo{pool: pool}
}

const membershipColumns = `id, user_id, tariff_id, payment_id, start_date, end_date, max_visits, used_visits, status, created_at`

func scanMembership(row rowScanner) (*model.Membership, error) {
	var (
		m      model.Membership
		status string
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.TariffID, &m.PaymentID, &m.StartDate, &m.EndDate,
		&m.MaxVisits, &m.UsedVisits, &status, &m.CreatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	m.Status = model.MembershipStatus(status)
	return &m, nil
}

// Save inserts the membership. The UNIQUE payment_id turns a second
// activation for the same payment into domain.ErrAlreadyExists.
func (r *membershipRepo) Save(ctx context.Context, tx repository.Tx, m *model.Membership) error {
	const q = `
INSERT INTO memberships (
  id, user_id, tariff_id, payment_id, start_date, end_date, max_visits, used_visits, status, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err := execSQL(ctx, r.pool, tx, q,
		m.ID, m.UserID, m.TariffID, m.PaymentID, m.StartDate, m.EndDate,
		m.MaxVisits, m.UsedVisits, string(m.Status), m.CreatedAt)
	return mapWriteErr(err)
}

func (r *membershipRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Membership, error) {
	q := `SELECT ` + membershipColumns + ` FROM memberships WHERE id=$1` + lockClause(tx) + `;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanMembership(row)
}

func (r *membershipRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Membership, error) {
	q := `SELECT ` + membershipColumns + ` FROM memberships WHERE payment_id=$1` + lockClause(tx) + `;`
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	return scanMembership(row)
}

func (r *membershipRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
    UPDATE memberships
       SET status = 'expired'
     WHERE status = 'active'
       AND end_date IS NOT NULL
       AND end_date <= $1`
	cmd, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return int(cmd.RowsAffected()), nil
}
