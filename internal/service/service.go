package service

import (
	"context"

	"luxe-store/internal/model"

	"github.com/google/uuid"
)

// ProductService defines operations for catalogue management.
type ProductService interface {
	// List retrieves products matching filter, newest first.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// Create validates req and stores it as a new product.
	Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error)

	// Update replaces the product identified by id.
	Update(ctx context.Context, id string, req *model.ProductRequest) (*model.Product, error)

	// Delete removes a product.
	Delete(ctx context.Context, id string) error

	// Import validates and upserts a batch of products.
	Import(ctx context.Context, products []model.Product) (int, error)
}

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder stores a new order. A request whose payment reference
	// already has an order returns that order instead.
	CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error)

	// GetByID retrieves an order visible to scope.
	GetByID(ctx context.Context, id uuid.UUID, scope model.OrderScope) (*model.Order, error)

	// GetOrders lists orders visible to scope, newest first.
	GetOrders(ctx context.Context, scope model.OrderScope) ([]model.Order, error)

	// UpdateStatus moves an order forward in its lifecycle.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error)

	// UpdateStatusByPaymentReference advances the order paid with reference to
	// status. The bool reports whether the stored status changed.
	UpdateStatusByPaymentReference(ctx context.Context, reference string, status model.OrderStatus) (*model.Order, bool, error)
}
