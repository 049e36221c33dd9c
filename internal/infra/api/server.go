package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"gym-membership-billing/internal/config"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/infra/logging"
	"gym-membership-billing/internal/infra/metrics"
	"gym-membership-billing/internal/infra/payment/click"
	"gym-membership-billing/internal/usecase"
)

const (
	formContentType = "application/x-www-form-urlencoded; charset=utf-8"
	maxFormBytes    = 16 << 10
)

// Server exposes the Click Prepare and Complete callbacks. Every decoded
// callback is answered with HTTP 200 and a form body; the outcome travels in
// the error field.
type Server struct {
	uc           usecase.ClickUseCase
	serviceID    int64
	preparePath  string
	completePath string
	log          *zerolog.Logger
}

// NewServer constructs the HTTP layer for the settlement callbacks. serviceID
// is the merchant's Click service; callbacks for any other service are
// rejected before they reach the use case.
func NewServer(uc usecase.ClickUseCase, httpCfg config.HTTPConfig, serviceID int64, logger *zerolog.Logger) *Server {
	if httpCfg.PreparePath == "" {
		httpCfg.PreparePath = "/click/prepare"
	}
	if httpCfg.CompletePath == "" {
		httpCfg.CompletePath = "/click/complete"
	}
	l := logger.With().Str("component", "ClickServer").Logger()
	return &Server{
		uc:           uc,
		serviceID:    serviceID,
		preparePath:  httpCfg.PreparePath,
		completePath: httpCfg.CompletePath,
		log:          &l,
	}
}

// Routes builds the router. mws wrap the callback routes only; health and
// metrics stay outside the limiter.
func (s *Server) Routes(mws ...Middleware) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		for _, mw := range mws {
			r.Use(mw)
		}
		r.Post(s.preparePath, s.handlePrepare)
		r.Post(s.completePath, s.handleComplete)
	})
	return r
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	const action = "prepare"
	start := time.Now()
	ctx := r.Context()

	form, err := readForm(w, r)
	if err != nil {
		s.rejectMalformed(w, r, action, err, form, true)
		return
	}
	req, err := click.DecodePrepare(form, s.serviceID)
	if err != nil {
		s.rejectMalformed(w, r, action, err, form, true)
		return
	}

	res, err := s.uc.Prepare(ctx, req)
	if err != nil {
		logging.With(logging.WithClickTransID(ctx, req.ClickTransID), s.log).Error().Err(err).
			Str("merchant_trans_id", req.MerchantTransID).
			Msg("prepare failed")
		res = &model.PrepareResult{
			Outcome:         model.OutcomeInternalError,
			ClickTransID:    req.ClickTransID,
			MerchantTransID: req.MerchantTransID,
		}
	}
	writeForm(w, click.EncodePrepare(res))
	metrics.IncClickCallback(action, string(res.Outcome))
	metrics.ObserveClickCallback(action, time.Since(start))
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	const action = "complete"
	start := time.Now()
	ctx := r.Context()

	form, err := readForm(w, r)
	if err != nil {
		s.rejectMalformed(w, r, action, err, form, false)
		return
	}
	req, err := click.DecodeComplete(form, s.serviceID)
	if err != nil {
		s.rejectMalformed(w, r, action, err, form, false)
		return
	}

	res, err := s.uc.Complete(ctx, req)
	if err != nil {
		logging.With(logging.WithClickTransID(ctx, req.ClickTransID), s.log).Error().Err(err).
			Str("merchant_trans_id", req.MerchantTransID).
			Int64("merchant_prepare_id", req.MerchantPrepareID).
			Msg("complete failed")
		res = &model.CompleteResult{
			Outcome:         model.OutcomeInternalError,
			ClickTransID:    req.ClickTransID,
			MerchantTransID: req.MerchantTransID,
		}
	}
	writeForm(w, click.EncodeComplete(res))
	metrics.IncClickCallback(action, string(res.Outcome))
	metrics.ObserveClickCallback(action, time.Since(start))
}

// rejectMalformed answers a callback that failed schema validation with
// BadRequest, echoing whatever ids could be read.
func (s *Server) rejectMalformed(w http.ResponseWriter, r *http.Request, action string, err error, form url.Values, prepare bool) {
	clickTransID, merchantTransID := click.EchoIDs(form)

	ev := logging.With(r.Context(), s.log).Warn().Err(err).Str("action", action)
	var se *click.SchemaError
	if errors.As(err, &se) {
		ev = ev.Str("field", se.Field)
	}
	ev.Int64("click_trans_id", clickTransID).Msg("malformed callback")

	if prepare {
		writeForm(w, click.EncodePrepare(&model.PrepareResult{
			Outcome:         model.OutcomeBadRequest,
			ClickTransID:    clickTransID,
			MerchantTransID: merchantTransID,
		}))
	} else {
		writeForm(w, click.EncodeComplete(&model.CompleteResult{
			Outcome:         model.OutcomeBadRequest,
			ClickTransID:    clickTransID,
			MerchantTransID: merchantTransID,
		}))
	}
	metrics.IncClickCallback(action, string(model.OutcomeBadRequest))
}

// readForm parses the urlencoded body. Query parameters are ignored.
func readForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return url.Values{}, &click.SchemaError{Field: "body", Reason: err.Error()}
	}
	return r.PostForm, nil
}

func writeForm(w http.ResponseWriter, v url.Values) {
	w.Header().Set("Content-Type", formContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(v.Encode()))
}
