package model

import "github.com/shopspring/decimal"

// Click callback actions.
const (
	ClickActionPrepare  = 0
	ClickActionComplete = 1
)

// Outcome is the result of a settlement callback. It is translated to the
// gateway's numeric error codes at the transport edge.
type Outcome string

const (
	OutcomeSuccess             Outcome = "success"
	OutcomeSignFailed          Outcome = "sign_failed"
	OutcomeInvalidAmount       Outcome = "invalid_amount"
	OutcomeActionNotFound      Outcome = "action_not_found"
	OutcomeAlreadyPaid         Outcome = "already_paid"
	OutcomeUserNotFound        Outcome = "user_not_found"
	OutcomeTransactionNotFound Outcome = "transaction_not_found"
	OutcomeBadRequest          Outcome = "bad_request"
	OutcomeTransactionCanceled Outcome = "transaction_canceled"
	OutcomeInternalError       Outcome = "internal_error"
)

// PrepareRequest is a decoded and schema-validated Prepare callback. Integer
// fields were delivered in canonical form, so formatting them back reproduces
// the signed text. AmountRaw keeps the amount exactly as delivered.
type PrepareRequest struct {
	ClickTransID    int64
	ServiceID       int64
	ClickPaydocID   int64
	MerchantTransID string
	Amount          decimal.Decimal
	AmountRaw       string
	Action          int
	Error           int
	ErrorNote       string
	SignTime        string
	SignString      string
}

// CompleteRequest is a decoded Complete callback. Error < 0 means the gateway
// failed or cancelled the transaction on its side.
type CompleteRequest struct {
	PrepareRequest
	MerchantPrepareID int64
}

type PrepareResult struct {
	Outcome           Outcome
	ClickTransID      int64
	MerchantTransID   string
	MerchantPrepareID int64
}

type CompleteResult struct {
	Outcome           Outcome
	ClickTransID      int64
	MerchantTransID   string
	MerchantConfirmID int64
}
