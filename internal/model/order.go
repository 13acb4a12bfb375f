package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// Order statuses, in lifecycle order.
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

var statusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusPaid:      1,
	OrderStatusShipped:   2,
	OrderStatusDelivered: 3,
}

// Valid reports whether s is part of the status vocabulary.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Before reports whether s comes strictly earlier in the lifecycle than other.
func (s OrderStatus) Before(other OrderStatus) bool {
	return statusRank[s] < statusRank[other]
}

// Order represents a customer order.
type Order struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	UserID           *string         `json:"userId,omitempty" db:"user_id"`
	Items            []OrderItem     `json:"items"`
	Shipping         Shipping        `json:"shipping"`
	Total            decimal.Decimal `json:"total" db:"total"`
	PaymentReference *string         `json:"paymentReference,omitempty" db:"payment_reference"`
	Status           OrderStatus     `json:"status" db:"status"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem is an immutable snapshot of a purchased cart line.
type OrderItem struct {
	ID        uuid.UUID       `json:"-" db:"id"`
	OrderID   uuid.UUID       `json:"-" db:"order_id"`
	ProductID string          `json:"productId" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Size      string          `json:"size" db:"size"`
}

// Shipping holds the delivery details captured at checkout.
type Shipping struct {
	Name    string  `json:"name" db:"shipping_name"`
	Email   string  `json:"email" db:"shipping_email"`
	Phone   *string `json:"phone,omitempty" db:"shipping_phone"`
	Address string  `json:"address" db:"shipping_address"`
}

// OrderRequest represents the request payload for creating an order.
type OrderRequest struct {
	UserID           *string            `json:"-"`
	Items            []OrderItemRequest `json:"items"`
	Shipping         Shipping           `json:"shipping"`
	Total            decimal.Decimal    `json:"total"`
	PaymentReference *string            `json:"paymentReference,omitempty"`
	Status           OrderStatus        `json:"status,omitempty"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size"`
}

// OrderScope selects which orders a caller may list.
type OrderScope struct {
	OwnerUserID string
	All         bool
}

// StatusUpdateRequest is the admin payload for moving an order forward.
type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}
