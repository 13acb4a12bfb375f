// Package checkout drives a cart through payment and order creation.
//
// The flow spans two systems with no shared transaction: the payment
// processor and the order store. A failure before payment succeeds leaves
// nothing behind. A failure after it leaves a paid intent with no order; that
// case is logged in full and left to webhook reconciliation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"luxe-store/internal/cart"
	"luxe-store/internal/metrics"
	"luxe-store/internal/model"
	"luxe-store/internal/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Step names the stage a checkout failed in.
type Step string

// Checkout steps that can fail after validation.
const (
	StepPaymentInit    Step = "payment-init"
	StepPaymentConfirm Step = "payment-confirm"
	StepOrderCreate    Step = "order-create"
)

var (
	// FreeShippingThreshold is the subtotal from which shipping is free.
	FreeShippingThreshold = decimal.NewFromInt(100)

	// FlatShippingFee applies below FreeShippingThreshold.
	FlatShippingFee = decimal.RequireFromString("9.99")
)

// ErrCartUnavailable is returned when the session cart cannot be read.
var ErrCartUnavailable = errors.New("cart storage unavailable")

// StepError tags the first failing step of a checkout.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ShippingFee returns the fee charged on top of subtotal.
func ShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatShippingFee
}

// OrderCreator persists a paid order.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error)
}

// Request carries the buyer input for one checkout.
type Request struct {
	Shipping        model.Shipping
	PaymentMethodID string
	UserID          *string
}

// Result describes a completed checkout.
type Result struct {
	Order            *model.Order    `json:"order"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingFee      decimal.Decimal `json:"shippingFee"`
	Total            decimal.Decimal `json:"total"`
	PaymentReference string          `json:"paymentReference"`
}

// Orchestrator runs checkouts.
type Orchestrator struct {
	gateway  payment.Gateway
	orders   OrderCreator
	guard    Guard
	currency string
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewOrchestrator creates a checkout orchestrator.
func NewOrchestrator(gateway payment.Gateway, orders OrderCreator, guard Guard, currency string, logger zerolog.Logger) *Orchestrator {
	if currency == "" {
		currency = payment.DefaultCurrency
	}
	return &Orchestrator{
		gateway:  gateway,
		orders:   orders,
		guard:    guard,
		currency: currency,
		logger:   logger.With().Str("service", "checkout").Logger(),
		tracer:   otel.Tracer("luxe-store/checkout"),
	}
}

// Checkout turns the cart stored for session into a paid order.
//
// Only one checkout per session runs at a time; a concurrent call returns
// model.ErrCheckoutInProgress. The cart is read from storage after the
// session guard is taken, so a checkout never charges lines that an earlier
// checkout already paid for and cleared. An empty cart returns
// model.ErrEmptyCart before any remote call. Remote failures are returned as
// *StepError and leave the cart untouched. Nothing is retried.
func (o *Orchestrator) Checkout(ctx context.Context, session string, storage cart.Storage, req Request) (result *Result, err error) {
	ctx, span := o.tracer.Start(ctx, "checkout.Checkout", trace.WithAttributes(attribute.String("cart.session", session)))
	start := time.Now()
	outcome := metrics.CheckoutSuccess
	defer func() {
		metrics.CheckoutsTotal.WithLabelValues(outcome).Inc()
		metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	release, err := o.guard.Acquire(ctx, session)
	if err != nil {
		if errors.Is(err, model.ErrCheckoutInProgress) {
			outcome = metrics.CheckoutInProgress
			o.logger.Warn().Str("session", session).Msg("checkout already in progress")
		} else {
			outcome = metrics.CheckoutPaymentInit
			o.logger.Error().Err(err).Str("session", session).Msg("failed to acquire checkout guard")
		}
		return nil, err
	}
	defer release()

	store, err := cart.Load(ctx, storage, cart.SessionKey(session), o.logger)
	if err != nil {
		outcome = metrics.CheckoutCartUnavailable
		return nil, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}

	snapshot := store.Cart()
	if snapshot.IsEmpty() {
		outcome = metrics.CheckoutEmptyCart
		return nil, model.ErrEmptyCart
	}

	if err := validateRequest(req); err != nil {
		outcome = metrics.CheckoutInvalid
		return nil, err
	}

	subtotal := snapshot.Total()
	fee := ShippingFee(subtotal)
	total := subtotal.Add(fee)
	amountMinor := payment.MinorUnits(total)
	span.SetAttributes(
		attribute.String("checkout.total", total.StringFixed(2)),
		attribute.Int("checkout.lines", len(snapshot.Lines)),
	)

	log := o.logger.With().
		Str("session", session).
		Str("total", total.StringFixed(2)).
		Logger()

	// 1. payment handle
	intent, err := o.gateway.CreatePaymentIntent(ctx, amountMinor, o.currency, "checkout-"+uuid.NewString())
	if err != nil {
		outcome = metrics.CheckoutPaymentInit
		log.Error().Err(err).Msg("failed to create payment intent")
		return nil, &StepError{Step: StepPaymentInit, Err: err}
	}
	span.SetAttributes(attribute.String("payment.reference", intent.ID))

	// 2. confirmation
	confirmation, err := o.gateway.Confirm(ctx, intent, payment.BillingDetails{
		Name:          req.Shipping.Name,
		Email:         req.Shipping.Email,
		Phone:         req.Shipping.Phone,
		Address:       req.Shipping.Address,
		PaymentMethod: req.PaymentMethodID,
	})
	if err != nil {
		var decline *payment.DeclineError
		switch {
		case errors.As(err, &decline):
			outcome = metrics.CheckoutDeclined
			log.Info().Str("payment_reference", intent.ID).Str("reason", decline.Message).Msg("payment declined")
		case errors.Is(err, payment.ErrPaymentIncomplete):
			// Settles later through the webhook, which finds no order and
			// reports the payment as unmatched.
			outcome = metrics.CheckoutPaymentIncomplete
			log.Warn().
				Err(err).
				Str("payment_reference", intent.ID).
				Interface("cart", snapshot.Lines).
				Msg("payment not completed at confirmation")
		default:
			outcome = metrics.CheckoutPaymentConfirm
			log.Error().Err(err).Str("payment_reference", intent.ID).Msg("failed to confirm payment")
		}
		return nil, &StepError{Step: StepPaymentConfirm, Err: err}
	}

	reference := confirmation.Reference
	if reference == "" {
		reference = intent.ID
	}

	// 3. order write
	orderReq := &model.OrderRequest{
		UserID:           req.UserID,
		Items:            orderItems(snapshot),
		Shipping:         req.Shipping,
		Total:            total,
		PaymentReference: &reference,
		Status:           model.OrderStatusPaid,
	}

	order, err := o.orders.CreateOrder(ctx, orderReq)
	if err != nil {
		outcome = metrics.CheckoutOrderCreate
		metrics.PaidUnrecordedTotal.Inc()
		log.Error().
			Err(err).
			Str("payment_reference", reference).
			Interface("cart", snapshot.Lines).
			Interface("shipping", req.Shipping).
			Msg("payment captured but order was not recorded")
		return nil, &StepError{Step: StepOrderCreate, Err: err}
	}

	// 4. cart clear; the order stands even if this fails
	if err := store.Clear(ctx); err != nil {
		metrics.CartClearFailuresTotal.Inc()
		log.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("order recorded but cart could not be cleared")
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("payment_reference", reference).
		Msg("checkout completed")

	return &Result{
		Order:            order,
		Subtotal:         subtotal,
		ShippingFee:      fee,
		Total:            total,
		PaymentReference: reference,
	}, nil
}

// validateRequest rejects input the order store would refuse after the
// payment is already taken.
func validateRequest(req Request) error {
	switch {
	case strings.TrimSpace(req.Shipping.Name) == "":
		return model.NewDomainError(model.ErrCodeMissingField, "Shipping name is required")
	case strings.TrimSpace(req.Shipping.Address) == "":
		return model.NewDomainError(model.ErrCodeMissingField, "Shipping address is required")
	case strings.TrimSpace(req.Shipping.Email) == "":
		return model.NewDomainError(model.ErrCodeMissingField, "Shipping email is required")
	case req.PaymentMethodID == "":
		return model.NewDomainError(model.ErrCodeMissingField, "Payment method is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Shipping.Email)); err != nil {
		return model.NewDomainError(model.ErrCodeMissingField, "Shipping email is invalid")
	}
	return nil
}

func orderItems(c cart.Cart) []model.OrderItemRequest {
	items := make([]model.OrderItemRequest, len(c.Lines))
	for i, l := range c.Lines {
		items[i] = model.OrderItemRequest{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.UnitPrice,
			Quantity:  l.Quantity,
			Size:      l.Size,
		}
	}
	return items
}
