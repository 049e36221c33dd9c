package click

import "gym-membership-billing/internal/domain/model"

// Click error codes. The gateway drives its retry behaviour from these values,
// so they must never change.
const (
	CodeSuccess             = 0
	CodeSignFailed          = -1
	CodeInvalidAmount       = -2
	CodeActionNotFound      = -3
	CodeAlreadyPaid         = -4
	CodeUserNotFound        = -5
	CodeTransactionNotFound = -6
	CodeBadRequest          = -8
	CodeTransactionCanceled = -9
)

type codeEntry struct {
	code int
	note string
}

var outcomeCodes = map[model.Outcome]codeEntry{
	model.OutcomeSuccess:             {CodeSuccess, "Success"},
	model.OutcomeSignFailed:          {CodeSignFailed, "SIGN CHECK FAILED!"},
	model.OutcomeInvalidAmount:       {CodeInvalidAmount, "Incorrect parameter amount"},
	model.OutcomeActionNotFound:      {CodeActionNotFound, "Action not found"},
	model.OutcomeAlreadyPaid:         {CodeAlreadyPaid, "Already paid"},
	model.OutcomeUserNotFound:        {CodeUserNotFound, "User does not exist"},
	model.OutcomeTransactionNotFound: {CodeTransactionNotFound, "Transaction does not exist"},
	model.OutcomeBadRequest:          {CodeBadRequest, "Error in request from click"},
	model.OutcomeTransactionCanceled: {CodeTransactionCanceled, "Transaction cancelled"},
	// Unexpected faults share -9 with cancellation; decoding -9 yields TransactionCanceled.
	model.OutcomeInternalError: {CodeTransactionCanceled, "Internal error"},
}

var codeOutcomes = map[int]model.Outcome{}

func init() {
	for o, e := range outcomeCodes {
		if o == model.OutcomeInternalError {
			continue
		}
		codeOutcomes[e.code] = o
	}
}

// Code returns the wire code for an outcome. Unknown outcomes are reported as
// internal errors.
func Code(o model.Outcome) int {
	if e, ok := outcomeCodes[o]; ok {
		return e.code
	}
	return outcomeCodes[model.OutcomeInternalError].code
}

// Note returns the error_note sent alongside the code.
func Note(o model.Outcome) string {
	if e, ok := outcomeCodes[o]; ok {
		return e.note
	}
	return outcomeCodes[model.OutcomeInternalError].note
}

// Outcome decodes a wire code.
func Outcome(code int) (model.Outcome, bool) {
	o, ok := codeOutcomes[code]
	return o, ok
}
