package handler

import (
	"context"
	"errors"
	"net/http"

	"luxe-store/internal/cart"
	"luxe-store/internal/checkout"
	"luxe-store/internal/middleware"
	"luxe-store/internal/model"
	"luxe-store/internal/payment"

	"github.com/rs/zerolog"
)

// Checkouter runs a checkout for one cart session, reading the cart from storage.
type Checkouter interface {
	Checkout(ctx context.Context, session string, storage cart.Storage, req checkout.Request) (*checkout.Result, error)
}

// CheckoutHandler handles POST /api/checkout.
type CheckoutHandler struct {
	orchestrator Checkouter
	storage      cart.Storage
	logger       zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(orchestrator Checkouter, storage cart.Storage, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		orchestrator: orchestrator,
		storage:      storage,
		logger:       logger.With().Str("handler", "checkout").Logger(),
	}
}

type checkoutRequest struct {
	Shipping        model.Shipping `json:"shipping"`
	PaymentMethodID string         `json:"paymentMethodId"`
}

// Checkout handles POST /api/checkout requests. The session header is
// required; a checkout never falls back to a shared cart.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get(SessionHeader)
	if session == "" {
		writeDomainError(w, model.ErrMissingSession, "checkout failed", h.logger)
		return
	}

	var body checkoutRequest
	if !decodeJSON(w, r, &body, h.logger) {
		return
	}

	req := checkout.Request{
		Shipping:        body.Shipping,
		PaymentMethodID: body.PaymentMethodID,
	}
	if id := middleware.IdentityFrom(r.Context()); id.UserID != "" {
		userID := id.UserID
		req.UserID = &userID
	}

	result, err := h.orchestrator.Checkout(r.Context(), session, h.storage, req)
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// writeCheckoutError maps a failed checkout to a response tagged with the
// failing step.
func (h *CheckoutHandler) writeCheckoutError(w http.ResponseWriter, err error) {
	if errors.Is(err, checkout.ErrCartUnavailable) {
		h.logger.Error().Err(err).Msg("checkout failed")
		writeJSON(w, http.StatusServiceUnavailable, model.ErrorResponse{
			Error: "cart storage unavailable",
			Code:  model.ErrCodeInternalError,
		})
		return
	}

	var stepErr *checkout.StepError
	if !errors.As(err, &stepErr) {
		writeDomainError(w, err, "checkout failed", h.logger)
		return
	}

	var decline *payment.DeclineError
	if errors.As(err, &decline) {
		writeJSON(w, http.StatusPaymentRequired, model.ErrorResponse{
			Error:   "payment declined",
			Code:    model.ErrCodePaymentDeclined,
			Step:    string(stepErr.Step),
			Message: decline.Message,
		})
		return
	}

	if errors.Is(err, payment.ErrPaymentIncomplete) {
		h.logger.Warn().Err(err).Msg("checkout payment not completed")
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{
			Error:   "payment has not completed",
			Code:    model.ErrCodePaymentIncomplete,
			Step:    string(stepErr.Step),
			Message: "the payment needs further action or is still processing; the cart was kept",
		})
		return
	}

	message := "payment could not be processed"
	if stepErr.Step == checkout.StepOrderCreate {
		message = "payment succeeded but the order could not be recorded"
	}

	h.logger.Error().Err(err).Str("step", string(stepErr.Step)).Msg("checkout failed")
	writeJSON(w, http.StatusBadGateway, model.ErrorResponse{
		Error: message,
		Code:  model.ErrCodeInternalError,
		Step:  string(stepErr.Step),
	})
}
