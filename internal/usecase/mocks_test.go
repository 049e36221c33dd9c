//go:build !integration

package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
)

// memDB is a small in-memory stand-in for the payments schema. It enforces the
// same uniqueness rules as the real tables and rolls back failed transactions.
type memDB struct {
	txMu sync.Mutex // one transaction at a time
	mu   sync.Mutex

	payments    map[string]*model.PaymentIntent
	events      []*model.PaymentEvent
	memberships map[string]*model.Membership
	tariffs     map[string]*model.Tariff
	users       map[string]*model.User

	// fail injects an error into the named operation, e.g. "memberships.Save".
	fail map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		payments:    make(map[string]*model.PaymentIntent),
		memberships: make(map[string]*model.Membership),
		tariffs:     make(map[string]*model.Tariff),
		users:       make(map[string]*model.User),
		fail:        make(map[string]error),
	}
}

type memSnapshot struct {
	payments    map[string]*model.PaymentIntent
	events      []*model.PaymentEvent
	memberships map[string]*model.Membership
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := memSnapshot{
		payments:    make(map[string]*model.PaymentIntent, len(db.payments)),
		events:      append([]*model.PaymentEvent(nil), db.events...),
		memberships: make(map[string]*model.Membership, len(db.memberships)),
	}
	for k, v := range db.payments {
		s.payments[k] = v
	}
	for k, v := range db.memberships {
		s.memberships[k] = v
	}
	return s
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.payments, db.events, db.memberships = s.payments, s.events, s.memberships
}

func (db *memDB) failure(op string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.fail[op]
}

// ---- TransactionManager ----

type memTx struct{}

type memTxManager struct{ db *memDB }

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.db.txMu.Lock()
	defer m.db.txMu.Unlock()
	snap := m.db.snapshot()
	if err := fn(ctx, &memTx{}); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}

// ---- Payments ----
// Stored intents are never mutated in place: updates replace the pointer so
// snapshots stay valid.

type memPaymentRepo struct{ db *memDB }

func (r *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	if err := r.db.failure("payments.Save"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *p
	r.db.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) find(match func(p *model.PaymentIntent) bool) (*model.PaymentIntent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := make([]string, 0, len(r.db.payments))
	for id := range r.db.payments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if p := r.db.payments[id]; match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	if err := r.db.failure("payments.FindByID"); err != nil {
		return nil, err
	}
	return r.find(func(p *model.PaymentIntent) bool { return p.ID == id })
}

func (r *memPaymentRepo) FindByExternalTransactionID(ctx context.Context, tx repository.Tx, externalTxID string) (*model.PaymentIntent, error) {
	return r.find(func(p *model.PaymentIntent) bool {
		return p.ExternalTransactionID != nil && *p.ExternalTransactionID == externalTxID
	})
}

func (r *memPaymentRepo) FindByPrepareID(ctx context.Context, tx repository.Tx, prepareID int64, method model.PaymentMethod) (*model.PaymentIntent, error) {
	return r.find(func(p *model.PaymentIntent) bool {
		return p.PrepareID != nil && *p.PrepareID == prepareID && p.Method == method
	})
}

func (r *memPaymentRepo) FindCompleted(ctx context.Context, tx repository.Tx, userID, tariffID string, method model.PaymentMethod) (*model.PaymentIntent, error) {
	return r.find(func(p *model.PaymentIntent) bool {
		return p.Status == model.PaymentStatusCompleted && p.UserID == userID && p.TariffID == tariffID && p.Method == method
	})
}

func (r *memPaymentRepo) SetPrepareMarkerIfPending(ctx context.Context, tx repository.Tx, id, externalTxID string, prepareID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok || p.Status != model.PaymentStatusPending || p.ExternalTransactionID != nil {
		return false, nil
	}
	for _, other := range r.db.payments {
		if other.ID == id {
			continue
		}
		if other.PrepareID != nil && *other.PrepareID == prepareID {
			return false, domain.ErrAlreadyExists
		}
		if other.ExternalTransactionID != nil && *other.ExternalTransactionID == externalTxID {
			return false, domain.ErrAlreadyExists
		}
	}
	cp := *p
	ext, pid := externalTxID, prepareID
	cp.ExternalTransactionID, cp.PrepareID = &ext, &pid
	cp.UpdatedAt = time.Now()
	r.db.payments[id] = &cp
	return true, nil
}

func (r *memPaymentRepo) CompleteIfPrepared(ctx context.Context, tx repository.Tx, id, externalTxID, membershipID string) (bool, error) {
	if err := r.db.failure("payments.CompleteIfPrepared"); err != nil {
		return false, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok || p.Status != model.PaymentStatusPending || p.PrepareID == nil ||
		p.ExternalTransactionID == nil || *p.ExternalTransactionID != externalTxID {
		return false, nil
	}
	for _, other := range r.db.payments {
		if other.ID != id && other.Status == model.PaymentStatusCompleted &&
			other.UserID == p.UserID && other.TariffID == p.TariffID && other.Method == p.Method {
			return false, domain.ErrAlreadyPaid
		}
	}
	cp := *p
	mid := membershipID
	cp.Status, cp.MembershipID, cp.UpdatedAt = model.PaymentStatusCompleted, &mid, time.Now()
	r.db.payments[id] = &cp
	return true, nil
}

func (r *memPaymentRepo) FailIfPending(ctx context.Context, tx repository.Tx, id, externalTxID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	cp := *p
	ext := externalTxID
	cp.Status, cp.ExternalTransactionID, cp.UpdatedAt = model.PaymentStatusFailed, &ext, time.Now()
	r.db.payments[id] = &cp
	return true, nil
}

// ---- Events ----

type memEventRepo struct{ db *memDB }

func (r *memEventRepo) Append(ctx context.Context, tx repository.Tx, e *model.PaymentEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *e
	r.db.events = append(r.db.events, &cp)
	return nil
}

func (r *memEventRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.PaymentEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.PaymentEvent
	for _, e := range r.db.events {
		if e.PaymentID == paymentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Memberships ----

type memMembershipRepo struct{ db *memDB }

func (r *memMembershipRepo) Save(ctx context.Context, tx repository.Tx, m *model.Membership) error {
	if err := r.db.failure("memberships.Save"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, other := range r.db.memberships {
		if other.PaymentID == m.PaymentID && other.ID != m.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *m
	r.db.memberships[m.ID] = &cp
	return nil
}

func (r *memMembershipRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.memberships[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMembershipRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.memberships {
		if m.PaymentID == paymentID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memMembershipRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for id, m := range r.db.memberships {
		if m.Status == model.MembershipStatusActive && m.ExpiredAt(now) {
			cp := *m
			cp.Status = model.MembershipStatusExpired
			r.db.memberships[id] = &cp
			n++
		}
	}
	return n, nil
}

func (db *memDB) membershipCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.memberships)
}

// ---- Tariffs / Users ----

type memTariffRepo struct{ db *memDB }

func (r *memTariffRepo) Save(ctx context.Context, tx repository.Tx, t *model.Tariff) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *t
	r.db.tariffs[t.ID] = &cp
	return nil
}

func (r *memTariffRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tariff, error) {
	if err := r.db.failure("tariffs.FindByID"); err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tariffs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

type memUserRepo struct{ db *memDB }

func (r *memUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *u
	r.db.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
