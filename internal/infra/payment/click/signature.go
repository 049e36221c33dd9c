package click

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"

	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
)

var _ adapter.SignatureVerifier = (*Verifier)(nil)

// Verifier recomputes Click's sign_string:
//
//	Prepare:  md5(click_trans_id + service_id + secret + merchant_trans_id + amount + action + sign_time)
//	Complete: md5(click_trans_id + service_id + secret + merchant_trans_id + merchant_prepare_id + amount + action + sign_time)
type Verifier struct {
	secret string
}

func NewVerifier(secretKey string) *Verifier {
	return &Verifier{secret: secretKey}
}

func (v *Verifier) VerifyPrepare(req *model.PrepareRequest) bool {
	return v.Verify(v.prepareFields(req), req.SignString)
}

func (v *Verifier) VerifyComplete(req *model.CompleteRequest) bool {
	return v.Verify(v.completeFields(req), req.SignString)
}

// Verify hashes fields in the given order and compares the hex digest with
// provided in constant time. An empty secret never verifies.
func (v *Verifier) Verify(fields []string, provided string) bool {
	if v.secret == "" || provided == "" {
		return false
	}
	expected := digest(fields)
	got := strings.ToLower(strings.TrimSpace(provided))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// SignPrepare and SignComplete produce the signature the gateway would send.
// Used by tooling and tests.
func (v *Verifier) SignPrepare(req *model.PrepareRequest) string {
	return digest(v.prepareFields(req))
}

func (v *Verifier) SignComplete(req *model.CompleteRequest) string {
	return digest(v.completeFields(req))
}

func (v *Verifier) prepareFields(req *model.PrepareRequest) []string {
	return []string{
		strconv.FormatInt(req.ClickTransID, 10),
		strconv.FormatInt(req.ServiceID, 10),
		v.secret,
		req.MerchantTransID,
		req.AmountRaw,
		strconv.Itoa(req.Action),
		req.SignTime,
	}
}

func (v *Verifier) completeFields(req *model.CompleteRequest) []string {
	return []string{
		strconv.FormatInt(req.ClickTransID, 10),
		strconv.FormatInt(req.ServiceID, 10),
		v.secret,
		req.MerchantTransID,
		strconv.FormatInt(req.MerchantPrepareID, 10),
		req.AmountRaw,
		strconv.Itoa(req.Action),
		req.SignTime,
	}
}

func digest(fields []string) string {
	h := md5.New()
	for _, f := range fields {
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}
