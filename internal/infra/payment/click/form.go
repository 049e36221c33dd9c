package click

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"gym-membership-billing/internal/domain/model"
)

// SignTimeLayout is the format of the sign_time field.
const SignTimeLayout = "2006-01-02 15:04:05"

// Form field names.
const (
	FieldClickTransID      = "click_trans_id"
	FieldServiceID         = "service_id"
	FieldClickPaydocID     = "click_paydoc_id"
	FieldMerchantTransID   = "merchant_trans_id"
	FieldMerchantPrepareID = "merchant_prepare_id"
	FieldMerchantConfirmID = "merchant_confirm_id"
	FieldAmount            = "amount"
	FieldAction            = "action"
	FieldError             = "error"
	FieldErrorNote         = "error_note"
	FieldSignTime          = "sign_time"
	FieldSignString        = "sign_string"
)

var ErrMalformedRequest = errors.New("malformed click request")

// SchemaError names the field that failed validation.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("click: field %q: %s", e.Field, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrMalformedRequest }

type fieldRule struct {
	required bool
}

var prepareSchema = map[string]fieldRule{
	FieldClickTransID:    {required: true},
	FieldServiceID:       {required: true},
	FieldClickPaydocID:   {},
	FieldMerchantTransID: {required: true},
	FieldAmount:          {required: true},
	FieldAction:          {required: true},
	FieldError:           {},
	FieldErrorNote:       {},
	FieldSignTime:        {required: true},
	FieldSignString:      {required: true},
}

var completeSchema = func() map[string]fieldRule {
	s := make(map[string]fieldRule, len(prepareSchema)+1)
	for k, v := range prepareSchema {
		s[k] = v
	}
	s[FieldMerchantPrepareID] = fieldRule{required: true}
	s[FieldError] = fieldRule{required: true}
	return s
}()

// DecodePrepare validates a Prepare form against its schema. serviceID is the
// merchant's configured service; a callback for another service is rejected.
func DecodePrepare(form url.Values, serviceID int64) (*model.PrepareRequest, error) {
	if err := checkSchema(form, prepareSchema); err != nil {
		return nil, err
	}
	return decodeCommon(form, serviceID)
}

// DecodeComplete validates a Complete form against its schema.
func DecodeComplete(form url.Values, serviceID int64) (*model.CompleteRequest, error) {
	if err := checkSchema(form, completeSchema); err != nil {
		return nil, err
	}
	base, err := decodeCommon(form, serviceID)
	if err != nil {
		return nil, err
	}
	prepareID, err := canonicalInt(form, FieldMerchantPrepareID)
	if err != nil {
		return nil, err
	}
	if prepareID <= 0 {
		return nil, &SchemaError{Field: FieldMerchantPrepareID, Reason: "must be positive"}
	}
	return &model.CompleteRequest{PrepareRequest: *base, MerchantPrepareID: prepareID}, nil
}

func checkSchema(form url.Values, schema map[string]fieldRule) error {
	for name, vals := range form {
		if _, ok := schema[name]; !ok {
			return &SchemaError{Field: name, Reason: "unknown field"}
		}
		if len(vals) != 1 {
			return &SchemaError{Field: name, Reason: "repeated field"}
		}
	}
	for name, rule := range schema {
		if rule.required && form.Get(name) == "" {
			return &SchemaError{Field: name, Reason: "missing"}
		}
	}
	return nil
}

func decodeCommon(form url.Values, serviceID int64) (*model.PrepareRequest, error) {
	req := &model.PrepareRequest{
		MerchantTransID: form.Get(FieldMerchantTransID),
		AmountRaw:       form.Get(FieldAmount),
		ErrorNote:       form.Get(FieldErrorNote),
		SignTime:        form.Get(FieldSignTime),
		SignString:      form.Get(FieldSignString),
	}
	var err error
	if req.ClickTransID, err = canonicalInt(form, FieldClickTransID); err != nil {
		return nil, err
	}
	if req.ServiceID, err = canonicalInt(form, FieldServiceID); err != nil {
		return nil, err
	}
	if req.ServiceID != serviceID {
		return nil, &SchemaError{Field: FieldServiceID, Reason: "unexpected service"}
	}
	if form.Get(FieldClickPaydocID) != "" {
		if req.ClickPaydocID, err = canonicalInt(form, FieldClickPaydocID); err != nil {
			return nil, err
		}
	}
	action, err := canonicalInt(form, FieldAction)
	if err != nil {
		return nil, err
	}
	req.Action = int(action)
	if form.Get(FieldError) != "" {
		code, err := canonicalInt(form, FieldError)
		if err != nil {
			return nil, err
		}
		req.Error = int(code)
	}
	if req.Amount, err = parseAmount(req.AmountRaw); err != nil {
		return nil, err
	}
	if _, err := time.Parse(SignTimeLayout, req.SignTime); err != nil {
		return nil, &SchemaError{Field: FieldSignTime, Reason: "bad format"}
	}
	return req, nil
}

// canonicalInt parses an integer field and rejects forms such as "007" or "+7"
// whose re-formatting would not match the signed text.
func canonicalInt(form url.Values, field string) (int64, error) {
	raw := form.Get(field)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != raw {
		return 0, &SchemaError{Field: field, Reason: "not an integer"}
	}
	return n, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &SchemaError{Field: FieldAmount, Reason: "not a number"}
	}
	if !d.IsPositive() {
		return decimal.Zero, &SchemaError{Field: FieldAmount, Reason: "must be positive"}
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, &SchemaError{Field: FieldAmount, Reason: "more than two decimal places"}
	}
	return d, nil
}

// EchoIDs extracts the transaction ids from a form that failed validation so
// the rejection can still echo them back.
func EchoIDs(form url.Values) (clickTransID int64, merchantTransID string) {
	clickTransID, _ = strconv.ParseInt(form.Get(FieldClickTransID), 10, 64)
	return clickTransID, form.Get(FieldMerchantTransID)
}

// EncodePrepare renders a Prepare response body.
func EncodePrepare(res *model.PrepareResult) url.Values {
	v := url.Values{}
	v.Set(FieldClickTransID, strconv.FormatInt(res.ClickTransID, 10))
	v.Set(FieldMerchantTransID, res.MerchantTransID)
	v.Set(FieldMerchantPrepareID, strconv.FormatInt(res.MerchantPrepareID, 10))
	v.Set(FieldError, strconv.Itoa(Code(res.Outcome)))
	v.Set(FieldErrorNote, Note(res.Outcome))
	return v
}

// EncodeComplete renders a Complete response body.
func EncodeComplete(res *model.CompleteResult) url.Values {
	v := url.Values{}
	v.Set(FieldClickTransID, strconv.FormatInt(res.ClickTransID, 10))
	v.Set(FieldMerchantTransID, res.MerchantTransID)
	v.Set(FieldMerchantConfirmID, strconv.FormatInt(res.MerchantConfirmID, 10))
	v.Set(FieldError, strconv.Itoa(Code(res.Outcome)))
	v.Set(FieldErrorNote, Note(res.Outcome))
	return v
}
