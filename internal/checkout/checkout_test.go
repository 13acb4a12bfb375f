package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"luxe-store/internal/cart"
	"luxe-store/internal/model"
	"luxe-store/internal/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGateway is a mock implementation of payment.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*payment.Intent, error) {
	args := m.Called(ctx, amountMinor, currency, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

func (m *MockGateway) Confirm(ctx context.Context, intent *payment.Intent, billing payment.BillingDetails) (*payment.Confirmation, error) {
	args := m.Called(ctx, intent, billing)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Confirmation), args.Error(1)
}

// MockOrderCreator is a mock implementation of OrderCreator.
type MockOrderCreator struct {
	mock.Mock
}

func (m *MockOrderCreator) CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// readOnlyStorage serves stored carts but refuses every write.
type readOnlyStorage struct {
	cart.Storage
}

func (readOnlyStorage) Set(context.Context, string, []byte) error {
	return errors.New("storage offline")
}

// unreachableStorage fails every call.
type unreachableStorage struct{}

func (unreachableStorage) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (unreachableStorage) Set(context.Context, string, []byte) error { return errors.New("connection refused") }
func (unreachableStorage) Delete(context.Context, string) error      { return errors.New("connection refused") }

var testShipping = model.Shipping{
	Name:    "Ada Lovelace",
	Email:   "ada@example.com",
	Address: "1 Analytical Way, London",
}

// seedCart persists lines as the cart of session in fresh memory storage.
func seedCart(t *testing.T, session string, lines ...cart.Line) cart.Storage {
	t.Helper()

	ctx := context.Background()
	storage := cart.NewMemoryStorage()
	store, err := cart.Load(ctx, storage, cart.SessionKey(session), zerolog.Nop())
	require.NoError(t, err)

	for _, l := range lines {
		p := &model.Product{ID: l.ProductID, Name: l.Name, Price: l.UnitPrice}
		_, err := store.AddLine(ctx, p, l.Size, l.Quantity)
		require.NoError(t, err)
	}
	return storage
}

// storedCart reloads the persisted cart of session.
func storedCart(t *testing.T, storage cart.Storage, session string) cart.Cart {
	t.Helper()

	store, err := cart.Load(context.Background(), storage, cart.SessionKey(session), zerolog.Nop())
	require.NoError(t, err)
	return store.Cart()
}

func line(productID, size, price string, qty int) cart.Line {
	return cart.Line{ProductID: productID, Name: "Item " + productID, UnitPrice: decimal.RequireFromString(price), Size: size, Quantity: qty}
}

func paidOrder(req *model.OrderRequest) *model.Order {
	items := make([]model.OrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = model.OrderItem{ProductID: it.ProductID, Name: it.Name, Price: it.Price, Quantity: it.Quantity, Size: it.Size}
	}
	return &model.Order{
		ID:               uuid.New(),
		UserID:           req.UserID,
		Items:            items,
		Shipping:         req.Shipping,
		Total:            req.Total,
		PaymentReference: req.PaymentReference,
		Status:           req.Status,
		CreatedAt:        time.Now(),
	}
}

func TestShippingFee(t *testing.T) {
	tests := []struct {
		name          string
		subtotal      string
		expectedFee   string
		expectedTotal string
	}{
		{name: "Below threshold", subtotal: "85.00", expectedFee: "9.99", expectedTotal: "94.99"},
		{name: "At threshold", subtotal: "100.00", expectedFee: "0", expectedTotal: "100.00"},
		{name: "Above threshold", subtotal: "120.00", expectedFee: "0", expectedTotal: "120.00"},
		{name: "Just below threshold", subtotal: "99.99", expectedFee: "9.99", expectedTotal: "109.98"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal := decimal.RequireFromString(tt.subtotal)
			fee := ShippingFee(subtotal)

			assert.True(t, decimal.RequireFromString(tt.expectedFee).Equal(fee), "fee was %s", fee)
			assert.True(t, decimal.RequireFromString(tt.expectedTotal).Equal(subtotal.Add(fee)))
		})
	}
}

func TestOrchestrator_Checkout_Success(t *testing.T) {
	ctx := context.Background()
	storage := seedCart(t, "session-b", line("p1", "M", "40.00", 2), line("p1", "L", "40.00", 1))

	gateway := new(MockGateway)
	orders := new(MockOrderCreator)
	intent := &payment.Intent{ID: "pi_123", ClientSecret: "secret", AmountMinor: 12000, Currency: "usd"}

	gateway.On("CreatePaymentIntent", mock.Anything, int64(12000), "usd", mock.AnythingOfType("string")).Return(intent, nil)
	gateway.On("Confirm", mock.Anything, intent, mock.MatchedBy(func(b payment.BillingDetails) bool {
		return b.Name == testShipping.Name && b.Email == testShipping.Email && b.PaymentMethod == "pm_card_visa"
	})).Return(&payment.Confirmation{Reference: "pi_123", Status: "succeeded"}, nil)

	var captured *model.OrderRequest
	orders.On("CreateOrder", mock.Anything, mock.AnythingOfType("*model.OrderRequest")).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*model.OrderRequest) }).
		Return(paidOrder(&model.OrderRequest{Status: model.OrderStatusPaid, Total: decimal.RequireFromString("120.00")}), nil)

	o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "", zerolog.Nop())
	result, err := o.Checkout(ctx, "session-b", storage, Request{Shipping: testShipping, PaymentMethodID: "pm_card_visa"})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, decimal.RequireFromString("120.00").Equal(result.Total))
	assert.True(t, result.ShippingFee.IsZero())
	assert.Equal(t, "pi_123", result.PaymentReference)

	require.NotNil(t, captured)
	assert.Len(t, captured.Items, 2)
	assert.True(t, decimal.RequireFromString("120.00").Equal(captured.Total))
	assert.Equal(t, model.OrderStatusPaid, captured.Status)
	require.NotNil(t, captured.PaymentReference)
	assert.Equal(t, "pi_123", *captured.PaymentReference)
	assert.Equal(t, testShipping, captured.Shipping)

	assert.Equal(t, 0, storedCart(t, storage, "session-b").Count())
	gateway.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestOrchestrator_Checkout_AmountIncludesShipping(t *testing.T) {
	tests := []struct {
		name          string
		lines         []cart.Line
		expectedMinor int64
		expectedTotal string
	}{
		{name: "Subtotal 85 pays flat fee", lines: []cart.Line{line("p1", "M", "42.50", 2)}, expectedMinor: 9499, expectedTotal: "94.99"},
		{name: "Subtotal 100 ships free", lines: []cart.Line{line("p1", "M", "25.00", 4)}, expectedMinor: 10000, expectedTotal: "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := seedCart(t, "s", tt.lines...)
			gateway := new(MockGateway)
			orders := new(MockOrderCreator)
			intent := &payment.Intent{ID: "pi_fee"}

			gateway.On("CreatePaymentIntent", mock.Anything, tt.expectedMinor, "usd", mock.Anything).Return(intent, nil)
			gateway.On("Confirm", mock.Anything, intent, mock.Anything).Return(&payment.Confirmation{Reference: "pi_fee"}, nil)
			orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(r *model.OrderRequest) bool {
				return r.Total.Equal(decimal.RequireFromString(tt.expectedTotal))
			})).Return(paidOrder(&model.OrderRequest{}), nil)

			o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "usd", zerolog.Nop())
			result, err := o.Checkout(context.Background(), "s", storage, Request{Shipping: testShipping, PaymentMethodID: "pm"})

			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.expectedTotal).Equal(result.Total))
			gateway.AssertExpectations(t)
			orders.AssertExpectations(t)
		})
	}
}

func TestOrchestrator_Checkout_PaymentDeclined(t *testing.T) {
	ctx := context.Background()
	storage := seedCart(t, "session-c", line("p1", "M", "40.00", 2), line("p1", "L", "40.00", 1))
	before := storedCart(t, storage, "session-c")

	gateway := new(MockGateway)
	orders := new(MockOrderCreator)
	intent := &payment.Intent{ID: "pi_declined"}

	gateway.On("CreatePaymentIntent", mock.Anything, int64(12000), "usd", mock.Anything).Return(intent, nil)
	gateway.On("Confirm", mock.Anything, intent, mock.Anything).Return(nil, &payment.DeclineError{Message: "card declined"})

	o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "usd", zerolog.Nop())
	result, err := o.Checkout(ctx, "session-c", storage, Request{Shipping: testShipping, PaymentMethodID: "pm_card_chargeDeclined"})

	require.Error(t, err)
	assert.Nil(t, result)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepPaymentConfirm, stepErr.Step)

	var decline *payment.DeclineError
	require.True(t, errors.As(err, &decline))
	assert.Equal(t, "card declined", decline.Message)

	assert.Equal(t, before, storedCart(t, storage, "session-c"))
	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	gateway.AssertExpectations(t)
}

func TestOrchestrator_Checkout_StepFailures(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(g *MockGateway, o *MockOrderCreator)
		expectedStep Step
	}{
		{
			name: "Intent creation fails",
			setup: func(g *MockGateway, o *MockOrderCreator) {
				g.On("CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("gateway timeout"))
			},
			expectedStep: StepPaymentInit,
		},
		{
			name: "Confirmation transport error",
			setup: func(g *MockGateway, o *MockOrderCreator) {
				g.On("CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&payment.Intent{ID: "pi_1"}, nil)
				g.On("Confirm", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
			},
			expectedStep: StepPaymentConfirm,
		},
		{
			name: "Order write fails after payment",
			setup: func(g *MockGateway, o *MockOrderCreator) {
				g.On("CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&payment.Intent{ID: "pi_1"}, nil)
				g.On("Confirm", mock.Anything, mock.Anything, mock.Anything).Return(&payment.Confirmation{Reference: "pi_1"}, nil)
				o.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, errors.New("database unavailable"))
			},
			expectedStep: StepOrderCreate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := seedCart(t, "s", line("p1", "M", "30.00", 1))
			before := storedCart(t, storage, "s")
			gateway := new(MockGateway)
			orders := new(MockOrderCreator)
			tt.setup(gateway, orders)

			o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "usd", zerolog.Nop())
			_, err := o.Checkout(context.Background(), "s", storage, Request{Shipping: testShipping, PaymentMethodID: "pm"})

			var stepErr *StepError
			require.True(t, errors.As(err, &stepErr), "expected step error, got %v", err)
			assert.Equal(t, tt.expectedStep, stepErr.Step)
			assert.Equal(t, before, storedCart(t, storage, "s"), "cart must survive a failed checkout")
			gateway.AssertExpectations(t)
			orders.AssertExpectations(t)
		})
	}
}

func TestOrchestrator_Checkout_EmptyCart(t *testing.T) {
	storage := seedCart(t, "s")
	gateway := new(MockGateway)
	orders := new(MockOrderCreator)

	o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "usd", zerolog.Nop())
	_, err := o.Checkout(context.Background(), "s", storage, Request{Shipping: testShipping})

	assert.ErrorIs(t, err, model.ErrEmptyCart)
	gateway.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_Checkout_RejectsReentry(t *testing.T) {
	storage := seedCart(t, "same-session", line("p1", "M", "30.00", 1))
	gateway := new(MockGateway)
	orders := new(MockOrderCreator)

	confirming := make(chan struct{})
	proceed := make(chan struct{})
	intent := &payment.Intent{ID: "pi_slow"}

	gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(intent, nil).Once()
	gateway.On("Confirm", mock.Anything, intent, mock.Anything).
		Run(func(mock.Arguments) {
			close(confirming)
			<-proceed
		}).
		Return(&payment.Confirmation{Reference: "pi_slow"}, nil).Once()
	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(paidOrder(&model.OrderRequest{}), nil).Once()

	o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "usd", zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := o.Checkout(context.Background(), "same-session", storage, Request{Shipping: testShipping, PaymentMethodID: "pm"})
		done <- err
	}()

	<-confirming
	_, err := o.Checkout(context.Background(), "same-session", storage, Request{Shipping: testShipping, PaymentMethodID: "pm"})
	assert.ErrorIs(t, err, model.ErrCheckoutInProgress)

	close(proceed)
	require.NoError(t, <-done)

	gateway.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestOrchestrator_Checkout_ClearFailureStillSucceeds(t *testing.T) {
	storage := readOnlyStorage{Storage: seedCart(t, "s", line("p1", "M", "30.00", 1))}
	gateway := new(MockGateway)
	orders := new(MockOrderCreator)

	gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&payment.Intent{ID: "pi_1"}, nil)
	gateway.On("Confirm", mock.Anything, mock.Anything, mock.Anything).Return(&payment.Confirmation{Reference: "pi_1"}, nil)
	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(paidOrder(&model.OrderRequest{}), nil)

	o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "usd", zerolog.Nop())
	result, err := o.Checkout(context.Background(), "s", storage, Request{Shipping: testShipping, PaymentMethodID: "pm"})

	require.NoError(t, err)
	assert.NotNil(t, result.Order)
}

func TestOrchestrator_Checkout_SequentialAttemptsChargeOnce(t *testing.T) {
	storage := seedCart(t, "session-d", line("p1", "M", "40.00", 1))
	gateway := new(MockGateway)
	orders := new(MockOrderCreator)

	intent := &payment.Intent{ID: "pi_once"}
	gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(intent, nil).Once()
	gateway.On("Confirm", mock.Anything, intent, mock.Anything).Return(&payment.Confirmation{Reference: "pi_once"}, nil).Once()
	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(paidOrder(&model.OrderRequest{}), nil).Once()

	o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "usd", zerolog.Nop())
	req := Request{Shipping: testShipping, PaymentMethodID: "pm"}

	_, err := o.Checkout(context.Background(), "session-d", storage, req)
	require.NoError(t, err)

	_, err = o.Checkout(context.Background(), "session-d", storage, req)
	assert.ErrorIs(t, err, model.ErrEmptyCart)

	gateway.AssertNumberOfCalls(t, "CreatePaymentIntent", 1)
	orders.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestOrchestrator_Checkout_ConcurrentAttemptsChargeOnce(t *testing.T) {
	storage := seedCart(t, "session-e", line("p1", "M", "40.00", 1))
	gateway := new(MockGateway)
	orders := new(MockOrderCreator)

	gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&payment.Intent{ID: "pi_race"}, nil).Maybe()
	gateway.On("Confirm", mock.Anything, mock.Anything, mock.Anything).Return(&payment.Confirmation{Reference: "pi_race"}, nil).Maybe()
	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(paidOrder(&model.OrderRequest{}), nil).Maybe()

	o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "usd", zerolog.Nop())
	req := Request{Shipping: testShipping, PaymentMethodID: "pm"}

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Checkout(context.Background(), "session-e", storage, req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, model.ErrCheckoutInProgress) || errors.Is(err, model.ErrEmptyCart), "unexpected error %v", err)
	}

	assert.Equal(t, 1, succeeded)
	gateway.AssertNumberOfCalls(t, "CreatePaymentIntent", 1)
	orders.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestOrchestrator_Checkout_CartUnavailable(t *testing.T) {
	gateway := new(MockGateway)
	orders := new(MockOrderCreator)

	o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "usd", zerolog.Nop())
	_, err := o.Checkout(context.Background(), "s", unreachableStorage{}, Request{Shipping: testShipping, PaymentMethodID: "pm"})

	assert.ErrorIs(t, err, ErrCartUnavailable)
	gateway.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestOrchestrator_Checkout_PaymentIncomplete(t *testing.T) {
	storage := seedCart(t, "s", line("p1", "M", "30.00", 1))
	before := storedCart(t, storage, "s")
	gateway := new(MockGateway)
	orders := new(MockOrderCreator)

	gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&payment.Intent{ID: "pi_3ds"}, nil)
	gateway.On("Confirm", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: payment intent pi_3ds is requires_action", payment.ErrPaymentIncomplete))

	o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "usd", zerolog.Nop())
	_, err := o.Checkout(context.Background(), "s", storage, Request{Shipping: testShipping, PaymentMethodID: "pm"})

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepPaymentConfirm, stepErr.Step)
	assert.ErrorIs(t, err, payment.ErrPaymentIncomplete)

	var decline *payment.DeclineError
	assert.False(t, errors.As(err, &decline), "an unfinished payment is not a decline")
	assert.Equal(t, before, storedCart(t, storage, "s"))
	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestMemoryGuard(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "a")
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "a")
	assert.ErrorIs(t, err, model.ErrCheckoutInProgress)

	other, err := g.Acquire(ctx, "b")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := g.Acquire(ctx, "a")
	require.NoError(t, err)
	again()
}

func TestOrchestrator_Checkout_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{name: "Missing name", req: Request{Shipping: model.Shipping{Email: "a@b.co", Address: "x"}, PaymentMethodID: "pm"}},
		{name: "Missing address", req: Request{Shipping: model.Shipping{Name: "A", Email: "a@b.co"}, PaymentMethodID: "pm"}},
		{name: "Missing email", req: Request{Shipping: model.Shipping{Name: "A", Address: "x"}, PaymentMethodID: "pm"}},
		{name: "Invalid email", req: Request{Shipping: model.Shipping{Name: "A", Email: "nope", Address: "x"}, PaymentMethodID: "pm"}},
		{name: "Missing payment method", req: Request{Shipping: testShipping}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := seedCart(t, "s", line("p1", "M", "30.00", 1))
			gateway := new(MockGateway)
			orders := new(MockOrderCreator)

			o := NewOrchestrator(gateway, orders, NewMemoryGuard(), "usd", zerolog.Nop())
			_, err := o.Checkout(context.Background(), "s", storage, tt.req)

			var domainErr *model.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, model.ErrCodeMissingField, domainErr.Code)
			assert.Equal(t, 1, storedCart(t, storage, "s").Count())
			gateway.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
