package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"luxe-store/internal/events"
	"luxe-store/internal/metrics"
	"luxe-store/internal/model"
	"luxe-store/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	publisher events.Publisher,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		publisher: publisher,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder stores a new order with its item snapshots.
func (s *orderService) CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error) {
	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.OrderStatusPending
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	now := time.Now().UTC()
	order := &model.Order{
		ID:               uuid.New(),
		UserID:           req.UserID,
		Shipping:         trimShipping(req.Shipping),
		Total:            req.Total,
		PaymentReference: req.PaymentReference,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	inserted, err := s.orderRepo.CreateOrder(ctx, tx, order)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if !inserted {
		// A previous attempt with the same payment reference already wrote the order.
		existing, err := s.orderRepo.GetByPaymentReference(ctx, *req.PaymentReference)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing order: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("failed to load existing order: %w", model.ErrOrderNotFound)
		}
		s.logger.Info().
			Str("order_id", existing.ID.String()).
			Str("payment_reference", *req.PaymentReference).
			Msg("order already recorded for payment reference")
		return existing, nil
	}

	items := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Size:      item.Size,
		}
	}

	if err := s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	committed = true
	order.Items = items

	metrics.OrdersCreatedTotal.Inc()
	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("status", string(order.Status)).
		Str("total", order.Total.StringFixed(2)).
		Int("item_count", len(items)).
		Msg("order created successfully")

	s.publish(ctx, order.ID.String(), events.NewEvent(events.TypeOrderCreated, events.OrderCreated{
		OrderID:          order.ID.String(),
		UserID:           order.UserID,
		Total:            order.Total,
		PaymentReference: order.PaymentReference,
		Status:           string(order.Status),
		ItemCount:        len(items),
	}))

	return order, nil
}

// GetByID retrieves an order visible to scope.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID, scope model.OrderScope) (*model.Order, error) {
	if !scope.All && scope.OwnerUserID == "" {
		return nil, model.ErrUnauthorised
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	if !scope.All && (order.UserID == nil || *order.UserID != scope.OwnerUserID) {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("user_id", scope.OwnerUserID).
			Msg("order requested by non-owner")
		return nil, model.ErrForbidden
	}

	return order, nil
}

// GetOrders lists orders visible to scope, newest first.
func (s *orderService) GetOrders(ctx context.Context, scope model.OrderScope) ([]model.Order, error) {
	if !scope.All && scope.OwnerUserID == "" {
		return nil, model.ErrUnauthorised
	}

	orders, err := s.orderRepo.List(ctx, scope)
	if err != nil {
		s.logger.Error().Err(err).Bool("all", scope.All).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	s.logger.Debug().Int("count", len(orders)).Bool("all", scope.All).Msg("retrieved orders")
	return orders, nil
}

// UpdateStatus moves an order forward. Setting the current status again is a
// no-op; moving backwards is rejected.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	defer func() {
		// Rollback after Commit is a no-op.
		_ = tx.Rollback(ctx)
	}()

	current, err := s.orderRepo.LockByID(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if current == nil {
		return nil, model.ErrOrderNotFound
	}

	if current.Status == status {
		return s.orderRepo.GetByID(ctx, id)
	}
	if status.Before(current.Status) {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("from", string(current.Status)).
			Str("to", string(status)).
			Msg("rejected backward status transition")
		return nil, model.ErrInvalidStatusTransition
	}

	if err := s.applyStatus(ctx, tx, current, status); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// UpdateStatusByPaymentReference advances the order paid with reference.
// An order already at or past status is returned unchanged. The returned
// order does not carry items.
func (s *orderService) UpdateStatusByPaymentReference(ctx context.Context, reference string, status model.OrderStatus) (*model.Order, bool, error) {
	if !status.Valid() {
		return nil, false, model.ErrInvalidStatus
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, false, fmt.Errorf("failed to update order status: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	current, err := s.orderRepo.LockByPaymentReference(ctx, tx, reference)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update order status: %w", err)
	}
	if current == nil {
		return nil, false, model.ErrOrderNotFound
	}

	if !current.Status.Before(status) {
		s.logger.Debug().
			Str("order_id", current.ID.String()).
			Str("payment_reference", reference).
			Str("status", string(current.Status)).
			Msg("order status already applied")
		return current, false, nil
	}

	if err := s.applyStatus(ctx, tx, current, status); err != nil {
		return nil, false, err
	}
	return current, true, nil
}

// applyStatus writes status for the locked order, commits tx and announces
// the change. order is updated in place.
func (s *orderService) applyStatus(ctx context.Context, tx pgx.Tx, order *model.Order, status model.OrderStatus) error {
	from := order.Status
	now := time.Now().UTC()

	if err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, status, now); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	order.Status = status
	order.UpdatedAt = now

	metrics.OrderStatusChangesTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(from)).
		Str("to", string(status)).
		Msg("order status updated")

	s.publish(ctx, order.ID.String(), events.NewEvent(events.TypeOrderStatusChanged, events.OrderStatusChanged{
		OrderID:          order.ID.String(),
		From:             string(from),
		To:               string(status),
		PaymentReference: order.PaymentReference,
	}))
	return nil
}

// publish sends event and logs failures. The order write has already
// committed, so a broker outage must not fail the request.
func (s *orderService) publish(ctx context.Context, key string, event events.Event) {
	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.Warn().
			Err(err).
			Str("event_type", event.Type).
			Str("key", key).
			Msg("failed to publish order event")
	}
}

// validateOrderRequest validates the order request.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil {
		return model.NewDomainError(model.ErrCodeMissingField, "Order request is required")
	}

	if len(req.Items) == 0 {
		return model.NewDomainError(model.ErrCodeMissingField, "Order must contain at least one item")
	}

	for i, item := range req.Items {
		if item.ProductID == "" {
			return model.NewDomainError(model.ErrCodeMissingField, fmt.Sprintf("Item %d: product ID is required", i))
		}

		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}

		if !model.IsValidSize(item.Size) {
			return model.ErrInvalidSize
		}

		if item.Price.IsNegative() {
			return model.ErrInvalidPrice
		}
	}

	shipping := trimShipping(req.Shipping)
	switch {
	case shipping.Name == "":
		return model.NewDomainError(model.ErrCodeMissingField, "Shipping name is required")
	case shipping.Address == "":
		return model.NewDomainError(model.ErrCodeMissingField, "Shipping address is required")
	case shipping.Email == "":
		return model.NewDomainError(model.ErrCodeMissingField, "Shipping email is required")
	}
	if _, err := mail.ParseAddress(shipping.Email); err != nil {
		return model.NewDomainError(model.ErrCodeMissingField, "Shipping email is invalid")
	}

	if req.Total.IsNegative() {
		return model.ErrInvalidPrice
	}

	if req.Status != "" && !req.Status.Valid() {
		return model.ErrInvalidStatus
	}

	if req.PaymentReference != nil && *req.PaymentReference == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "Payment reference must not be empty")
	}

	return nil
}

func trimShipping(s model.Shipping) model.Shipping {
	out := model.Shipping{
		Name:    strings.TrimSpace(s.Name),
		Email:   strings.TrimSpace(s.Email),
		Address: strings.TrimSpace(s.Address),
	}
	if s.Phone != nil {
		if phone := strings.TrimSpace(*s.Phone); phone != "" {
			out.Phone = &phone
		}
	}
	return out
}
