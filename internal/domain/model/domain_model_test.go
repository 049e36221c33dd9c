//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gym-membership-billing/internal/domain"
)

func intPtr(v int) *int { return &v }

// --- Payment status transitions ---

func TestCanTransition(t *testing.T) {
	statuses := []PaymentStatus{PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed}
	allowed := map[[2]PaymentStatus]bool{
		{PaymentStatusPending, PaymentStatusPending}:   true,
		{PaymentStatusPending, PaymentStatusCompleted}: true,
		{PaymentStatusPending, PaymentStatusFailed}:    true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]PaymentStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
	if !PaymentStatusCompleted.Terminal() || !PaymentStatusFailed.Terminal() || PaymentStatusPending.Terminal() {
		t.Error("terminal statuses misreported")
	}
}

func TestPaymentIntent_PreparedWith(t *testing.T) {
	ext, pid := "555", int64(1001)
	p := &PaymentIntent{ID: "p1", ExternalTransactionID: &ext, PrepareID: &pid}
	if !p.Prepared() || !p.PreparedWith("555", 1001) {
		t.Fatal("expected prepared intent to match its marker")
	}
	if p.PreparedWith("556", 1001) || p.PreparedWith("555", 1002) {
		t.Error("marker matched foreign ids")
	}
	var nilIntent *PaymentIntent
	if nilIntent.Prepared() || !nilIntent.IsZero() {
		t.Error("nil intent misreported")
	}
}

// --- Tariff Model Tests ---

func TestNewTariff(t *testing.T) {
	t.Run("should create a tariff successfully", func(t *testing.T) {
		tr, err := NewTariff("tariff-1", "Monthly", decimal.NewFromInt(150000), intPtr(30), nil)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if tr.Name != "Monthly" || *tr.DurationDays != 30 || tr.MaxVisits != nil {
			t.Errorf("unexpected tariff %+v", tr)
		}
	})

	t.Run("should fail with invalid arguments", func(t *testing.T) {
		testCases := []struct {
			name   string
			id     string
			tname  string
			price  decimal.Decimal
			days   *int
			visits *int
		}{
			{"empty id", "", "Monthly", decimal.NewFromInt(1), nil, nil},
			{"empty name", "t", "", decimal.NewFromInt(1), nil, nil},
			{"zero price", "t", "Monthly", decimal.Zero, nil, nil},
			{"zero duration", "t", "Monthly", decimal.NewFromInt(1), intPtr(0), nil},
			{"negative visits", "t", "Monthly", decimal.NewFromInt(1), nil, intPtr(-1)},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				tr, err := NewTariff(tc.id, tc.tname, tc.price, tc.days, tc.visits)
				if tr != nil {
					t.Errorf("expected tariff to be nil on error, but it was not")
				}
				if !errors.Is(err, domain.ErrInvalidArgument) {
					t.Errorf("expected error to be ErrInvalidArgument, but got %v", err)
				}
			})
		}
	})
}

// --- Membership Model Tests ---

func TestNewMembership(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	tariff := &Tariff{ID: "t1", Name: "10 visits", Price: decimal.NewFromInt(90000), DurationDays: intPtr(45), MaxVisits: intPtr(10)}
	pay := &PaymentIntent{ID: "p1", UserID: "u1", TariffID: "t1"}

	m, err := NewMembership("m1", pay, tariff, now)
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if m.EndDate == nil || !m.EndDate.Equal(now.AddDate(0, 0, 45)) {
		t.Errorf("end date = %v", m.EndDate)
	}
	if m.MaxVisits == nil || *m.MaxVisits != 10 {
		t.Errorf("max visits = %v", m.MaxVisits)
	}
	*tariff.MaxVisits = 99
	if *m.MaxVisits != 10 {
		t.Error("membership shares the tariff quota pointer")
	}
	if m.ExpiredAt(now.AddDate(0, 0, 44)) || !m.ExpiredAt(now.AddDate(0, 0, 45)) {
		t.Error("expiry boundary wrong")
	}

	if _, err := NewMembership("m2", &PaymentIntent{ID: "p2", TariffID: "other"}, tariff, now); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("tariff mismatch: %v", err)
	}
	if _, err := NewMembership("", pay, tariff, now); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("empty id: %v", err)
	}

	open, _ := NewMembership("m3", pay, &Tariff{ID: "t1", Name: "Open", Price: decimal.NewFromInt(1)}, now)
	if open.EndDate != nil || open.ExpiredAt(now.AddDate(100, 0, 0)) {
		t.Error("unlimited membership expired")
	}
}

// --- User Model Tests ---

func TestNewUser(t *testing.T) {
	t.Run("should create a new user successfully", func(t *testing.T) {
		user, err := NewUser("", "Aziz Karimov", "+998901234567")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if user.ID == "" {
			t.Error("expected user ID to be generated")
		}
		if time.Since(user.CreatedAt) > time.Second {
			t.Errorf("user.CreatedAt timestamp is too far from current time")
		}
	})

	t.Run("should fail without name or phone", func(t *testing.T) {
		if _, err := NewUser("", "", "+998901234567"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("empty name: %v", err)
		}
		if _, err := NewUser("", "Aziz", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("empty phone: %v", err)
		}
	})
}
