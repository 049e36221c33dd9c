package adapter

import "gym-membership-billing/internal/domain/model"

// SignatureVerifier checks the gateway signature of a settlement callback.
// Prepare and Complete sign different field sets, so each has its own method.
type SignatureVerifier interface {
	VerifyPrepare(req *model.PrepareRequest) bool
	VerifyComplete(req *model.CompleteRequest) bool
}
