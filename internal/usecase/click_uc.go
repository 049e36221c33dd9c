package usecase

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
	"gym-membership-billing/internal/domain/ports/repository"
	"gym-membership-billing/internal/infra/logging"
	"gym-membership-billing/internal/infra/metrics"
)

// Compile-time check
var _ ClickUseCase = (*clickUC)(nil)

// ClickUseCase settles Click Prepare/Complete callbacks against the ledger.
// Every business rejection is an Outcome on the result; the error return is
// reserved for infrastructure faults.
type ClickUseCase interface {
	Prepare(ctx context.Context, req *model.PrepareRequest) (*model.PrepareResult, error)
	Complete(ctx context.Context, req *model.CompleteRequest) (*model.CompleteResult, error)
}

// prepareAttempts bounds retries after a prepare id collision.
const prepareAttempts = 3

type clickUC struct {
	ledger     PaymentLedger
	activation MembershipActivation
	users      repository.UserRepository
	tariffs    repository.TariffRepository
	verifier   adapter.SignatureVerifier
	tm         repository.TransactionManager
	ids        *PrepareIDSource
	log        *zerolog.Logger
}

func NewClickUseCase(
	ledger PaymentLedger,
	activation MembershipActivation,
	users repository.UserRepository,
	tariffs repository.TariffRepository,
	verifier adapter.SignatureVerifier,
	tm repository.TransactionManager,
	ids *PrepareIDSource,
	logger *zerolog.Logger,
) *clickUC {
	if ids == nil {
		ids = NewPrepareIDSource(nil)
	}
	l := logger.With().Str("component", "ClickUseCase").Logger()
	return &clickUC{
		ledger:     ledger,
		activation: activation,
		users:      users,
		tariffs:    tariffs,
		verifier:   verifier,
		tm:         tm,
		ids:        ids,
		log:        &l,
	}
}

func (c *clickUC) Prepare(ctx context.Context, req *model.PrepareRequest) (*model.PrepareResult, error) {
	defer logging.TraceDuration(c.log, "ClickUC.Prepare")()
	ctx = logging.WithClickTransID(ctx, req.ClickTransID)

	res := &model.PrepareResult{ClickTransID: req.ClickTransID, MerchantTransID: req.MerchantTransID}
	reject := func(o model.Outcome, reason string) (*model.PrepareResult, error) {
		res.Outcome = o
		logging.With(ctx, c.log).Warn().Str("outcome", string(o)).Str("reason", reason).Msg("prepare rejected")
		return res, nil
	}

	intent, out, err := c.resolveIntent(ctx, req.MerchantTransID)
	if err != nil {
		return nil, err
	}
	if out != "" {
		return reject(out, "merchant transaction not found")
	}
	ctx = logging.WithPaymentID(ctx, intent.ID)

	if !c.verifier.VerifyPrepare(req) {
		return reject(model.OutcomeSignFailed, "signature mismatch")
	}
	if req.Action != model.ClickActionPrepare {
		return reject(model.OutcomeActionNotFound, "unexpected action "+strconv.Itoa(req.Action))
	}
	if out, err := c.checkCompleted(ctx, intent); err != nil || out != "" {
		if err != nil {
			return nil, err
		}
		return reject(out, "tariff already paid")
	}
	tariff, out, err := c.resolveParties(ctx, intent)
	if err != nil {
		return nil, err
	}
	if out != "" {
		return reject(out, "user or tariff missing")
	}
	if !sameAmount(req.Amount, tariff.Price) {
		return reject(model.OutcomeInvalidAmount, "amount "+req.AmountRaw+" != price "+tariff.Price.StringFixed(2))
	}

	ext := strconv.FormatInt(req.ClickTransID, 10)
	if out, err := c.checkCanceled(ctx, intent, ext); err != nil || out != "" {
		if err != nil {
			return nil, err
		}
		return reject(out, "transaction cancelled")
	}

	// Replay of an accepted Prepare: answer with the stored marker.
	if intent.Prepared() {
		if *intent.ExternalTransactionID != ext {
			return reject(model.OutcomeBadRequest, "prepared for transaction "+*intent.ExternalTransactionID)
		}
		res.Outcome = model.OutcomeSuccess
		res.MerchantPrepareID = *intent.PrepareID
		logging.With(ctx, c.log).Info().Int64("prepare_id", res.MerchantPrepareID).Msg("prepare replayed")
		return res, nil
	}

	for attempt := 1; ; attempt++ {
		prepareID := c.ids.Next()
		p, err := c.ledger.MarkPrepared(ctx, repository.NoTX, intent.ID, ext, prepareID)
		switch {
		case err == nil:
			res.Outcome = model.OutcomeSuccess
			res.MerchantPrepareID = *p.PrepareID
			return res, nil
		case errors.Is(err, domain.ErrAlreadyExists) && attempt < prepareAttempts:
			logging.With(ctx, c.log).Warn().Int64("prepare_id", prepareID).Msg("prepare id taken, retrying")
		case errors.Is(err, domain.ErrAlreadyPaid):
			return reject(model.OutcomeAlreadyPaid, "completed concurrently")
		case errors.Is(err, domain.ErrPaymentCanceled):
			return reject(model.OutcomeTransactionCanceled, "failed concurrently")
		case errors.Is(err, domain.ErrPrepareConflict):
			return reject(model.OutcomeBadRequest, "prepared concurrently for another transaction")
		default:
			return nil, err
		}
	}
}

func (c *clickUC) Complete(ctx context.Context, req *model.CompleteRequest) (*model.CompleteResult, error) {
	defer logging.TraceDuration(c.log, "ClickUC.Complete")()
	ctx = logging.WithClickTransID(ctx, req.ClickTransID)

	res := &model.CompleteResult{ClickTransID: req.ClickTransID, MerchantTransID: req.MerchantTransID}
	reject := func(o model.Outcome, reason string) (*model.CompleteResult, error) {
		res.Outcome = o
		logging.With(ctx, c.log).Warn().Str("outcome", string(o)).Str("reason", reason).Msg("complete rejected")
		return res, nil
	}

	intent, out, err := c.resolveIntent(ctx, req.MerchantTransID)
	if err != nil {
		return nil, err
	}
	if out != "" {
		return reject(out, "merchant transaction not found")
	}
	ctx = logging.WithPaymentID(ctx, intent.ID)

	if !c.verifier.VerifyComplete(req) {
		return reject(model.OutcomeSignFailed, "signature mismatch")
	}
	if req.Action != model.ClickActionComplete {
		return reject(model.OutcomeActionNotFound, "unexpected action "+strconv.Itoa(req.Action))
	}
	tariff, out, err := c.resolveParties(ctx, intent)
	if err != nil {
		return nil, err
	}
	if out != "" {
		return reject(out, "user or tariff missing")
	}

	ext := strconv.FormatInt(req.ClickTransID, 10)
	byPrepare, err := c.ledger.FindByPrepareID(ctx, repository.NoTX, req.MerchantPrepareID, model.PaymentMethodClick)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return reject(model.OutcomeTransactionNotFound, "unknown prepare id")
	case err != nil:
		return nil, err
	case byPrepare.ID != intent.ID || !byPrepare.PreparedWith(ext, req.MerchantPrepareID):
		return reject(model.OutcomeTransactionNotFound, "prepare id belongs to another transaction")
	}

	if out, err := c.checkCompleted(ctx, intent); err != nil || out != "" {
		if err != nil {
			return nil, err
		}
		return reject(out, "tariff already paid")
	}
	if !sameAmount(req.Amount, tariff.Price) {
		return reject(model.OutcomeInvalidAmount, "amount "+req.AmountRaw+" != price "+tariff.Price.StringFixed(2))
	}
	if out, err := c.checkCanceled(ctx, intent, ext); err != nil || out != "" {
		if err != nil {
			return nil, err
		}
		return reject(out, "transaction cancelled")
	}

	if req.Error < 0 {
		err := c.ledger.TransitionToFailed(ctx, repository.NoTX, intent.ID, ext)
		switch {
		case err == nil, errors.Is(err, domain.ErrPaymentCanceled):
			logging.With(ctx, c.log).Info().Int("gateway_error", req.Error).Str("error_note", req.ErrorNote).Msg("gateway cancelled payment")
			return reject(model.OutcomeTransactionCanceled, "gateway reported failure")
		case errors.Is(err, domain.ErrAlreadyPaid):
			return reject(model.OutcomeAlreadyPaid, "completed concurrently")
		default:
			return nil, err
		}
	}

	if intent.Status != model.PaymentStatusPending {
		return reject(terminalOutcome(intent.Status), "intent is "+string(intent.Status))
	}
	if !sameAmount(req.Amount, intent.Amount) {
		return reject(model.OutcomeInvalidAmount, "amount differs from stored intent")
	}

	var membership *model.Membership
	err = c.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		locked, err := c.ledger.FindByMerchantTransactionID(ctx, tx, intent.ID)
		if err != nil {
			return err
		}
		switch {
		case locked.Status == model.PaymentStatusCompleted:
			return domain.ErrAlreadyPaid
		case locked.Status == model.PaymentStatusFailed:
			return domain.ErrPaymentCanceled
		case !locked.PreparedWith(ext, req.MerchantPrepareID):
			return domain.ErrNotPrepared
		}
		m, err := c.activation.Activate(ctx, tx, locked, tariff)
		if err != nil {
			return err
		}
		if err := c.ledger.TransitionToCompleted(ctx, tx, locked.ID, ext, m.ID); err != nil {
			return err
		}
		membership = m
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAlreadyPaid):
		return reject(model.OutcomeAlreadyPaid, "completed concurrently")
	case errors.Is(err, domain.ErrPaymentCanceled):
		return reject(model.OutcomeTransactionCanceled, "failed concurrently")
	case errors.Is(err, domain.ErrNotPrepared):
		return reject(model.OutcomeTransactionNotFound, "prepare marker changed")
	default:
		return nil, err
	}

	metrics.IncMembershipActivated()
	metrics.AddPaymentRevenue("UZS", intent.Amount)
	logging.With(ctx, c.log).Info().
		Str("membership_id", membership.ID).
		Int64("confirm_id", req.MerchantPrepareID).
		Msg("payment settled")

	res.Outcome = model.OutcomeSuccess
	res.MerchantConfirmID = req.MerchantPrepareID
	return res, nil
}

// resolveIntent finds the Click intent for a merchant transaction id. Cash
// intents never go through callbacks and are reported as unknown.
func (c *clickUC) resolveIntent(ctx context.Context, merchantTransID string) (*model.PaymentIntent, model.Outcome, error) {
	intent, err := c.ledger.FindByMerchantTransactionID(ctx, repository.NoTX, merchantTransID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, model.OutcomeTransactionNotFound, nil
	}
	if err != nil {
		return nil, "", err
	}
	if intent.Method != model.PaymentMethodClick {
		return nil, model.OutcomeTransactionNotFound, nil
	}
	return intent, "", nil
}

func (c *clickUC) resolveParties(ctx context.Context, intent *model.PaymentIntent) (*model.Tariff, model.Outcome, error) {
	if _, err := c.users.FindByID(ctx, repository.NoTX, intent.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, model.OutcomeUserNotFound, nil
		}
		return nil, "", err
	}
	tariff, err := c.tariffs.FindByID(ctx, repository.NoTX, intent.TariffID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, model.OutcomeBadRequest, nil
		}
		return nil, "", err
	}
	return tariff, "", nil
}

func (c *clickUC) checkCompleted(ctx context.Context, intent *model.PaymentIntent) (model.Outcome, error) {
	_, err := c.ledger.FindCompleted(ctx, repository.NoTX, intent.UserID, intent.TariffID, intent.Method)
	switch {
	case err == nil:
		return model.OutcomeAlreadyPaid, nil
	case errors.Is(err, domain.ErrNotFound):
		return "", nil
	default:
		return "", err
	}
}

// checkCanceled rejects callbacks for a failed intent, for a click
// transaction already failed on another intent, and for a click transaction
// id that is bound to a different live intent.
func (c *clickUC) checkCanceled(ctx context.Context, intent *model.PaymentIntent, ext string) (model.Outcome, error) {
	if intent.Status == model.PaymentStatusFailed {
		return model.OutcomeTransactionCanceled, nil
	}
	prior, err := c.ledger.FindByExternalTransactionID(ctx, repository.NoTX, ext)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "", nil
	case err != nil:
		return "", err
	case prior.Status == model.PaymentStatusFailed:
		return model.OutcomeTransactionCanceled, nil
	case prior.ID != intent.ID:
		return model.OutcomeBadRequest, nil
	}
	return "", nil
}

func terminalOutcome(s model.PaymentStatus) model.Outcome {
	if s == model.PaymentStatusCompleted {
		return model.OutcomeAlreadyPaid
	}
	return model.OutcomeTransactionCanceled
}

// sameAmount compares two sums in tiyin.
func sameAmount(a, b decimal.Decimal) bool {
	return a.Round(2).Equal(b.Round(2))
}
