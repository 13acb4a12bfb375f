package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeMissingSession     = "MISSING_SESSION"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeInvalidSize        = "INVALID_SIZE"
	ErrCodeInvalidCategory    = "INVALID_CATEGORY"
	ErrCodeInvalidPrice       = "INVALID_PRICE"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeCheckoutInProgress = "CHECKOUT_IN_PROGRESS"
	ErrCodePaymentDeclined    = "PAYMENT_DECLINED"
	ErrCodePaymentIncomplete  = "PAYMENT_INCOMPLETE"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrProductNotFound         = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound           = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidQuantity         = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidSize             = NewDomainError(ErrCodeInvalidSize, "Size is not available for this product")
	ErrInvalidCategory         = NewDomainError(ErrCodeInvalidCategory, "Category must be Men, Women or New Arrivals")
	ErrInvalidPrice            = NewDomainError(ErrCodeInvalidPrice, "Price must not be negative")
	ErrInvalidStatus           = NewDomainError(ErrCodeInvalidStatus, "Status must be pending, paid, shipped or delivered")
	ErrInvalidStatusTransition = NewDomainError(ErrCodeInvalidTransition, "Order status cannot move backwards")
	ErrInvalidAmount           = NewDomainError(ErrCodeInvalidAmount, "Amount must be greater than zero")
	ErrEmptyCart               = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrCheckoutInProgress      = NewDomainError(ErrCodeCheckoutInProgress, "A checkout is already in progress for this cart")
	ErrMissingSession          = NewDomainError(ErrCodeMissingSession, "X-Cart-Session header is required")
	ErrUnauthorised            = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrForbidden               = NewDomainError(ErrCodeForbidden, "Not allowed")
)
