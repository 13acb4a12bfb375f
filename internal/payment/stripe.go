package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// stripeGateway implements Gateway on the Stripe PaymentIntents API.
type stripeGateway struct {
	api    *client.API
	logger zerolog.Logger
}

// NewStripeGateway creates a Stripe-backed gateway. A nil backends value
// uses the default Stripe endpoints.
func NewStripeGateway(secretKey string, backends *stripe.Backends, logger zerolog.Logger) Gateway {
	return &stripeGateway{
		api:    client.New(secretKey, backends),
		logger: logger.With().Str("gateway", "stripe").Logger(),
	}
}

// CreatePaymentIntent requests a handle for amountMinor units of currency.
func (g *stripeGateway) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*Intent, error) {
	if currency == "" {
		currency = DefaultCurrency
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.logger.Error().Err(err).Int64("amount", amountMinor).Str("currency", currency).Msg("failed to create payment intent")
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	g.logger.Debug().
		Str("payment_intent", pi.ID).
		Int64("amount", pi.Amount).
		Msg("payment intent created")

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// Confirm confirms intent with the billing payment method.
func (g *stripeGateway) Confirm(ctx context.Context, intent *Intent, billing BillingDetails) (*Confirmation, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(billing.PaymentMethod),
	}
	if billing.Email != "" {
		params.ReceiptEmail = stripe.String(billing.Email)
	}
	if billing.Address != "" {
		params.Shipping = &stripe.ShippingDetailsParams{
			Name:    stripe.String(billing.Name),
			Phone:   billing.Phone,
			Address: &stripe.AddressParams{Line1: stripe.String(billing.Address)},
		}
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Confirm(intent.ID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			g.logger.Info().
				Str("payment_intent", intent.ID).
				Str("code", string(stripeErr.Code)).
				Msg("payment declined")
			return nil, &DeclineError{Code: string(stripeErr.Code), Message: stripeErr.Msg}
		}
		g.logger.Error().Err(err).Str("payment_intent", intent.ID).Msg("failed to confirm payment intent")
		return nil, fmt.Errorf("failed to confirm payment intent: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return &Confirmation{Reference: pi.ID, Status: string(pi.Status)}, nil
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		// The attempt failed and the intent wants a new payment method.
		if pi.LastPaymentError != nil {
			return nil, &DeclineError{Code: string(pi.LastPaymentError.Code), Message: pi.LastPaymentError.Msg}
		}
		return nil, &DeclineError{Code: string(pi.Status), Message: "payment method was refused"}
	default:
		g.logger.Warn().
			Str("payment_intent", pi.ID).
			Str("status", string(pi.Status)).
			Msg("payment intent not completed after confirmation")
		return nil, fmt.Errorf("%w: payment intent %s is %s", ErrPaymentIncomplete, pi.ID, pi.Status)
	}
}

// stripeVerifier implements Verifier with Stripe webhook signatures.
type stripeVerifier struct {
	secret string
}

// NewStripeVerifier creates a Verifier for the given webhook signing secret.
func NewStripeVerifier(secret string) Verifier {
	return &stripeVerifier{secret: secret}
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
// The signature is checked before the body is parsed, so a signed body that
// does not decode is reported as malformed rather than forged.
func (v *stripeVerifier) ConstructEvent(payload []byte, signature string) (*Event, error) {
	if err := webhook.ValidatePayloadWithTolerance(payload, signature, v.secret, webhook.DefaultTolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	out := &Event{ID: event.ID, Kind: string(event.Type)}
	if event.Data != nil && len(event.Data.Raw) > 0 {
		var object struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
			return nil, fmt.Errorf("%w: event %s: %v", ErrMalformedEvent, event.ID, err)
		}
		out.Reference = object.ID
	}

	return out, nil
}
