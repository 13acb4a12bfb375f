// Package payment is the boundary to the card payment processor.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// EventPaymentSucceeded is the notification kind that marks an intent as captured.
const EventPaymentSucceeded = "payment_intent.succeeded"

// DefaultCurrency is used when a caller does not name one.
const DefaultCurrency = "usd"

var (
	// ErrInvalidSignature is returned when a notification fails verification.
	ErrInvalidSignature = errors.New("invalid payment notification signature")

	// ErrMalformedEvent is returned for a correctly signed notification whose
	// body cannot be decoded.
	ErrMalformedEvent = errors.New("malformed payment notification")

	// ErrPaymentIncomplete is returned when confirmation ends without a
	// terminal result, for example while the payment is still processing or
	// waits on customer action. The payment may still succeed later.
	ErrPaymentIncomplete = errors.New("payment not completed")
)

// Intent is a client-confirmable payment handle.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	AmountMinor  int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// BillingDetails accompanies a confirmation request.
type BillingDetails struct {
	Name          string
	Email         string
	Phone         *string
	Address       string
	PaymentMethod string
}

// Confirmation is the terminal success of a payment attempt.
type Confirmation struct {
	Reference string
	Status    string
}

// Event is a verified asynchronous notification from the processor.
type Event struct {
	ID        string
	Kind      string
	Reference string
}

// DeclineError carries the processor's message for a refused payment.
type DeclineError struct {
	Code    string
	Message string
}

func (e *DeclineError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Gateway creates and confirms payment intents.
type Gateway interface {
	// CreatePaymentIntent requests a handle for amountMinor units of currency.
	// Requests sharing idempotencyKey return the same intent.
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*Intent, error)

	// Confirm blocks until the processor reports a result for intent.
	// A refused payment is returned as *DeclineError; a payment that has not
	// reached a terminal state wraps ErrPaymentIncomplete.
	Confirm(ctx context.Context, intent *Intent, billing BillingDetails) (*Confirmation, error)
}

// Verifier authenticates raw notification payloads.
type Verifier interface {
	// ConstructEvent verifies signature against payload and decodes the event.
	// Verification failures wrap ErrInvalidSignature; a verified payload that
	// cannot be decoded wraps ErrMalformedEvent.
	ConstructEvent(payload []byte, signature string) (*Event, error)
}

// MinorUnits converts a decimal amount into cents, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
