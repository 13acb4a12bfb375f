package repository

import (
	"context"
	"time"

	"luxe-store/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves products matching filter, newest first.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil when missing.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// Create inserts a new product.
	Create(ctx context.Context, product *model.Product) error

	// Update replaces the mutable fields of a product. Returns false when missing.
	Update(ctx context.Context, product *model.Product) (bool, error)

	// Delete removes a product. Returns false when missing.
	Delete(ctx context.Context, id string) (bool, error)

	// UpsertMany inserts or replaces products in one batch.
	UpsertMany(ctx context.Context, products []model.Product) (int, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	// Returns false without error when an order with the same payment
	// reference already exists.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) (bool, error)

	// CreateOrderItems inserts order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items. Returns nil when missing.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByPaymentReference retrieves an order with its items. Returns nil when missing.
	GetByPaymentReference(ctx context.Context, reference string) (*model.Order, error)

	// LockByID loads an order row FOR UPDATE within tx. Items are not loaded.
	LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// LockByPaymentReference loads an order row FOR UPDATE within tx. Items are not loaded.
	LockByPaymentReference(ctx context.Context, tx pgx.Tx, reference string) (*model.Order, error)

	// UpdateStatus sets the status of an order within tx.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus, at time.Time) error

	// List retrieves orders with items visible to scope, newest first.
	List(ctx context.Context, scope model.OrderScope) ([]model.Order, error)
}
