package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"luxe-store/internal/model"
	"luxe-store/internal/payment"
	"luxe-store/internal/reconcile"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SignatureHeader carries the payment processor's webhook signature.
const SignatureHeader = "Stripe-Signature"

// maxWebhookBytes caps webhook payloads.
const maxWebhookBytes = 64 << 10

// WebhookHandler reconciles one signed payment notification.
type WebhookHandler interface {
	Handle(ctx context.Context, payload []byte, signature string) (reconcile.Outcome, error)
}

// PaymentHandler handles payment intent and webhook requests.
type PaymentHandler struct {
	gateway    payment.Gateway
	reconciler WebhookHandler
	currency   string
	logger     zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(gateway payment.Gateway, reconciler WebhookHandler, currency string, logger zerolog.Logger) *PaymentHandler {
	if currency == "" {
		currency = payment.DefaultCurrency
	}
	return &PaymentHandler{
		gateway:    gateway,
		reconciler: reconciler,
		currency:   currency,
		logger:     logger.With().Str("handler", "payment").Logger(),
	}
}

type intentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// CreateIntent handles POST /api/payments/intents requests. amount is in
// major units.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	amountMinor := payment.MinorUnits(req.Amount)
	if amountMinor <= 0 {
		writeDomainError(w, model.ErrInvalidAmount, "invalid amount", h.logger)
		return
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.currency
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = "intent-" + uuid.NewString()
	}

	intent, err := h.gateway.CreatePaymentIntent(r.Context(), amountMinor, currency, key)
	if err != nil {
		h.logger.Error().Err(err).Int64("amount", amountMinor).Msg("failed to create payment intent")
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{
			Error: "failed to create payment intent",
			Code:  model.ErrCodeInternalError,
		})
		return
	}

	writeJSON(w, http.StatusCreated, intentResponse{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.AmountMinor,
		Currency:     intent.Currency,
	})
}

// Webhook handles POST /api/payments/webhook requests. Every verified
// notification is acknowledged; only a bad signature is refused.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", h.logger)
		return
	}

	outcome, err := h.reconciler.Handle(r.Context(), payload, r.Header.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			h.logger.Warn().Err(err).Msg("rejected webhook")
			writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "invalid signature"})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process webhook", h.logger)
		return
	}

	h.logger.Debug().Str("outcome", string(outcome)).Msg("webhook processed")
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
