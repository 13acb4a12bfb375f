// Package reconcile applies asynchronous payment notifications to orders.
//
// Notifications race with the order write made at checkout. They may arrive
// before the order exists, after it, or more than once. Every verified
// notification is acknowledged so the processor does not redeliver; only a
// failed signature check is reported back as an error.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"luxe-store/internal/events"
	"luxe-store/internal/metrics"
	"luxe-store/internal/model"
	"luxe-store/internal/payment"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcome describes what a notification did.
type Outcome string

// Reconciliation outcomes.
const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyApplied Outcome = "already_applied"
	OutcomeUnmatched      Outcome = "unmatched"
	OutcomeIgnored        Outcome = "ignored"
	OutcomeMalformed      Outcome = "malformed"
	OutcomeFailed         Outcome = "failed"
	OutcomeRejected       Outcome = "rejected"
)

// StatusUpdater advances an order located by payment reference. The bool
// result reports whether the status changed.
type StatusUpdater interface {
	UpdateStatusByPaymentReference(ctx context.Context, reference string, status model.OrderStatus) (*model.Order, bool, error)
}

// Reconciler verifies notifications and updates matching orders.
type Reconciler struct {
	verifier  payment.Verifier
	orders    StatusUpdater
	publisher events.Publisher
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewReconciler creates a Reconciler.
func NewReconciler(verifier payment.Verifier, orders StatusUpdater, publisher events.Publisher, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		verifier:  verifier,
		orders:    orders,
		publisher: publisher,
		logger:    logger.With().Str("service", "reconcile").Logger(),
		tracer:    otel.Tracer("luxe-store/reconcile"),
	}
}

// Handle processes one raw notification. The returned error is non-nil only
// when the signature does not verify; it wraps payment.ErrInvalidSignature.
// A verified notification that cannot be decoded is logged and acknowledged.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signature string) (outcome Outcome, err error) {
	ctx, span := r.tracer.Start(ctx, "reconcile.Handle")
	defer func() {
		metrics.ReconcileEventsTotal.WithLabelValues(string(outcome)).Inc()
		span.SetAttributes(attribute.String("reconcile.outcome", string(outcome)))
		span.End()
	}()

	event, err := r.verifier.ConstructEvent(payload, signature)
	if errors.Is(err, payment.ErrMalformedEvent) {
		// Signed by the processor, so redelivery would not help.
		r.logger.Error().Err(err).Int("payload_bytes", len(payload)).Msg("discarding undecodable payment notification")
		return OutcomeMalformed, nil
	}
	if err != nil {
		r.logger.Warn().Err(err).Int("payload_bytes", len(payload)).Msg("rejected payment notification")
		if !errors.Is(err, payment.ErrInvalidSignature) {
			err = fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
		}
		return OutcomeRejected, err
	}

	span.SetAttributes(
		attribute.String("payment.event_id", event.ID),
		attribute.String("payment.event_kind", event.Kind),
		attribute.String("payment.reference", event.Reference),
	)
	log := r.logger.With().
		Str("event_id", event.ID).
		Str("event_kind", event.Kind).
		Str("payment_reference", event.Reference).
		Logger()

	if event.Kind != payment.EventPaymentSucceeded {
		log.Debug().Msg("ignoring payment notification")
		return OutcomeIgnored, nil
	}
	if event.Reference == "" {
		log.Warn().Msg("payment notification has no reference")
		return OutcomeIgnored, nil
	}

	order, changed, err := r.orders.UpdateStatusByPaymentReference(ctx, event.Reference, model.OrderStatusPaid)
	switch {
	case errors.Is(err, model.ErrOrderNotFound):
		metrics.UnmatchedPaymentsTotal.Inc()
		log.Warn().Msg("no order matches payment notification")
		r.publishUnmatched(ctx, event)
		return OutcomeUnmatched, nil
	case errors.Is(err, model.ErrInvalidStatusTransition):
		log.Debug().Msg("order already past paid")
		return OutcomeAlreadyApplied, nil
	case err != nil:
		log.Error().Err(err).Msg("failed to apply payment notification")
		return OutcomeFailed, nil
	}

	if !changed {
		log.Debug().Str("order_id", order.ID.String()).Str("status", string(order.Status)).Msg("payment notification already applied")
		return OutcomeAlreadyApplied, nil
	}

	log.Info().Str("order_id", order.ID.String()).Msg("order marked paid from payment notification")
	return OutcomeApplied, nil
}

func (r *Reconciler) publishUnmatched(ctx context.Context, event *payment.Event) {
	evt := events.NewEvent(events.TypePaymentUnmatched, events.PaymentUnmatched{
		NotificationID: event.ID,
		Reference:      event.Reference,
		Kind:           event.Kind,
	})
	if err := r.publisher.Publish(ctx, event.Reference, evt); err != nil {
		r.logger.Error().Err(err).Str("payment_reference", event.Reference).Msg("failed to publish unmatched payment")
	}
}
