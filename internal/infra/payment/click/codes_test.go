//go:build !integration

package click

import (
	"testing"

	"pgregory.net/rapid"

	"gym-membership-billing/internal/domain/model"
)

func TestCode_WireContract(t *testing.T) {
	cases := map[model.Outcome]int{
		model.OutcomeSuccess:             0,
		model.OutcomeSignFailed:          -1,
		model.OutcomeInvalidAmount:       -2,
		model.OutcomeActionNotFound:      -3,
		model.OutcomeAlreadyPaid:         -4,
		model.OutcomeUserNotFound:        -5,
		model.OutcomeTransactionNotFound: -6,
		model.OutcomeBadRequest:          -8,
		model.OutcomeTransactionCanceled: -9,
		model.OutcomeInternalError:       -9,
	}
	for o, want := range cases {
		if got := Code(o); got != want {
			t.Errorf("Code(%s) = %d, want %d", o, got, want)
		}
		if Note(o) == "" {
			t.Errorf("Note(%s) is empty", o)
		}
	}
}

func TestCode_UnknownOutcomeIsInternal(t *testing.T) {
	if got := Code(model.Outcome("nope")); got != CodeTransactionCanceled {
		t.Errorf("unknown outcome mapped to %d", got)
	}
	if got := Note(model.Outcome("nope")); got != "Internal error" {
		t.Errorf("unknown outcome note = %q", got)
	}
}

func TestOutcome_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		code := rapid.SampledFrom([]int{0, -1, -2, -3, -4, -5, -6, -8, -9}).Draw(t, "code")
		o, ok := Outcome(code)
		if !ok {
			t.Fatalf("code %d not decodable", code)
		}
		if o == model.OutcomeInternalError {
			t.Fatalf("code %d decoded to internal error", code)
		}
		if Code(o) != code {
			t.Fatalf("Code(Outcome(%d)) = %d", code, Code(o))
		}
	})

	if _, ok := Outcome(-7); ok {
		t.Error("-7 is not part of the contract")
	}
}
