package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"gym-membership-billing/internal/config"

	"github.com/rs/zerolog"
)

const serviceName = "gym-billing"

// New builds the process logger writing to stdout. Console output is used for
// format "console" and in dev mode, JSON otherwise. Unknown levels fall back to info.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	l := newLogger(os.Stdout, cfg, dev)
	zerolog.SetGlobalLevel(l.GetLevel())
	return l
}

func newLogger(w io.Writer, cfg config.LogConfig, dev bool) *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if dev || strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(w).Level(level).With().Timestamp().Str("service", serviceName).Logger()
	if cfg.Sampling && !dev {
		// Settlement lines (info and above) are never sampled.
		l = l.Sample(zerolog.LevelSampler{
			TraceSampler: &zerolog.BasicSampler{N: 100},
			DebugSampler: &zerolog.BasicSampler{N: 10},
		})
	}
	return &l
}

type ctxKey int

const (
	traceIDKey ctxKey = iota
	paymentIDKey
	clickTransIDKey
)

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// WithPaymentID tags the context with the intent id (merchant_trans_id).
func WithPaymentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, paymentIDKey, id)
}

func WithClickTransID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, clickTransIDKey, id)
}

// With returns base enriched with whichever callback ids ctx carries.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	c := base.With()
	if id, ok := ctx.Value(traceIDKey).(string); ok && id != "" {
		c = c.Str("trace_id", id)
	}
	if id, ok := ctx.Value(paymentIDKey).(string); ok && id != "" {
		c = c.Str("payment_id", id)
	}
	if id, ok := ctx.Value(clickTransIDKey).(int64); ok {
		c = c.Int64("click_trans_id", id)
	}
	l := c.Logger()
	return &l
}

// TraceDuration logs the elapsed time of a callback step at trace level.
// Usage: defer logging.TraceDuration(logger, "ClickUC.Complete")()
func TraceDuration(logger *zerolog.Logger, op string) func() {
	start := time.Now()
	return func() {
		logger.Trace().Str("op", op).Dur("elapsed", time.Since(start)).Msg("done")
	}
}

// MaskPhone keeps the country prefix and the last two digits of a member
// phone number. Dev mode returns it unchanged.
func MaskPhone(phone string, dev bool) string {
	if dev {
		return phone
	}
	if len(phone) <= 6 {
		return "***"
	}
	return phone[:4] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-2:]
}
