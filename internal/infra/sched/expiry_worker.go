package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"gym-membership-billing/internal/infra/metrics"
	"gym-membership-billing/internal/usecase"
)

// MembershipExpiryWorker periodically moves memberships whose end date has
// passed from active to expired. Payments are never touched.
type MembershipExpiryWorker struct {
	interval   time.Duration
	activation usecase.MembershipActivation
	log        *zerolog.Logger
}

func NewMembershipExpiryWorker(interval time.Duration, activation usecase.MembershipActivation, logger *zerolog.Logger) *MembershipExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	exprLog := logger.With().Str("component", "MembershipExpiryWorker").Logger()
	return &MembershipExpiryWorker{
		interval:   interval,
		activation: activation,
		log:        &exprLog,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *MembershipExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting membership expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping membership expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *MembershipExpiryWorker) sweep(ctx context.Context) int {
	n, err := w.activation.ExpireDue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("membership expiry sweep failed")
		return 0
	}
	if n > 0 {
		metrics.AddMembershipsExpired(n)
		w.log.Info().Int("count", n).Msg("memberships expired")
	}
	return n
}
