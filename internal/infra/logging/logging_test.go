//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"gym-membership-billing/internal/config"
)

func TestWith_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "tr-1")
	ctx = WithPaymentID(ctx, "pay-1")
	ctx = WithClickTransID(ctx, 42)

	With(ctx, &base).Info().Msg("hello")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("bad log line %q: %v", buf.String(), err)
	}
	if got["trace_id"] != "tr-1" || got["payment_id"] != "pay-1" {
		t.Errorf("missing ids: %v", got)
	}
	if got["click_trans_id"] != float64(42) {
		t.Errorf("click_trans_id = %v", got["click_trans_id"])
	}
}

func TestWith_EmptyContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	With(WithTraceID(context.Background(), ""), &base).Info().Msg("x")
	if bytes.Contains(buf.Bytes(), []byte("trace_id")) {
		t.Errorf("unexpected trace_id in %q", buf.String())
	}
}

func TestNewLogger_LevelAndService(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, config.LogConfig{Level: "bogus", Format: "json"}, false)

	l.Debug().Msg("hidden")
	l.Info().Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q, want only the info line", lines)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("bad log line %q: %v", lines[0], err)
	}
	if got["service"] != serviceName || got["message"] != "shown" {
		t.Errorf("line = %v", got)
	}
}

func TestNewLogger_SamplingKeepsSettlementLines(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, config.LogConfig{Level: "debug", Sampling: true}, false)

	for i := 0; i < 20; i++ {
		l.Debug().Msg("noise")
		l.Warn().Msg("prepare rejected")
	}
	out := buf.String()
	if n := strings.Count(out, "prepare rejected"); n != 20 {
		t.Errorf("warn lines = %d, want 20", n)
	}
	if n := strings.Count(out, "noise"); n >= 20 {
		t.Errorf("debug lines = %d, want sampled", n)
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("+998901234567", false); got != "+998*******67" {
		t.Errorf("MaskPhone = %q", got)
	}
	if got := MaskPhone("12345", false); got != "***" {
		t.Errorf("MaskPhone short = %q", got)
	}
	if got := MaskPhone("+998901234567", true); got != "+998901234567" {
		t.Errorf("dev MaskPhone = %q", got)
	}
}
