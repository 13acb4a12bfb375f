package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"luxe-store/internal/cart"
	"luxe-store/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type failingStorage struct{}

func (failingStorage) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingStorage) Set(context.Context, string, []byte) error   { return errors.New("down") }
func (failingStorage) Delete(context.Context, string) error        { return errors.New("down") }

func shirt() *model.Product {
	return &model.Product{
		ID:       "P001",
		Name:     "Linen Shirt",
		Price:    decimal.NewFromInt(40),
		Category: model.CategoryMen,
		Images:   []string{"shirt.jpg"},
		Sizes:    []string{"M", "L"},
		Stock:    10,
	}
}

func doCart(t *testing.T, h *CartHandler, method, target, session, body string) (*httptest.ResponseRecorder, CartResponse) {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	w := httptest.NewRecorder()

	switch {
	case method == http.MethodGet:
		h.Get(w, req)
	case method == http.MethodPost:
		h.AddLine(w, req)
	case method == http.MethodPut:
		h.UpdateLine(w, req)
	case method == http.MethodDelete && target == "/api/cart":
		h.Clear(w, req)
	default:
		h.RemoveLine(w, req)
	}

	var resp CartResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	}
	return w, resp
}

func TestCartHandler_Flow(t *testing.T) {
	products := new(MockProductService)
	products.On("GetByID", mock.Anything, "P001").Return(shirt(), nil)

	storage := cart.NewMemoryStorage()
	h := NewCartHandler(storage, products, zerolog.Nop())

	w, resp := doCart(t, h, http.MethodPost, "/api/cart/lines", "s1", `{"productId":"P001","size":"M","quantity":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, resp.Count)

	w, resp = doCart(t, h, http.MethodPost, "/api/cart/lines", "s1", `{"productId":"P001","size":"L"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, resp.Count)
	assert.Len(t, resp.Lines, 2)
	assert.True(t, decimal.NewFromInt(120).Equal(resp.Subtotal))
	assert.True(t, resp.ShippingFee.IsZero())
	assert.True(t, decimal.NewFromInt(120).Equal(resp.Total))

	// Another session does not see these lines.
	_, other := doCart(t, h, http.MethodGet, "/api/cart", "s2", "")
	assert.Equal(t, 0, other.Count)
	assert.Empty(t, other.Lines)

	w, resp = doCart(t, h, http.MethodPut, "/api/cart/lines", "s1", `{"productId":"P001","size":"M","quantity":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, resp.Count)
	assert.True(t, decimal.NewFromInt(80).Equal(resp.Subtotal))
	assert.True(t, decimal.RequireFromString("9.99").Equal(resp.ShippingFee))
	assert.True(t, decimal.RequireFromString("89.99").Equal(resp.Total))

	w, resp = doCart(t, h, http.MethodDelete, "/api/cart/lines?productId=P001&size=L", "s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, resp.Count)

	w, resp = doCart(t, h, http.MethodDelete, "/api/cart", "s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Count)
	assert.True(t, resp.Total.IsZero())

	data, err := storage.Get(context.Background(), cart.SessionKey("s1"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestCartHandler_AddLineErrors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		productErr     error
		expectedStatus int
		expectedCode   string
	}{
		{name: "Unknown product", body: `{"productId":"P999","size":"M"}`, productErr: model.ErrProductNotFound, expectedStatus: http.StatusNotFound, expectedCode: model.ErrCodeProductNotFound},
		{name: "Size not offered", body: `{"productId":"P001","size":"XS"}`, expectedStatus: http.StatusBadRequest, expectedCode: model.ErrCodeInvalidSize},
		{name: "Zero quantity", body: `{"productId":"P001","size":"M","quantity":0}`, expectedStatus: http.StatusBadRequest, expectedCode: model.ErrCodeInvalidQuantity},
		{name: "Invalid JSON", body: `nope`, expectedStatus: http.StatusBadRequest, expectedCode: model.ErrCodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := new(MockProductService)
			if tt.productErr != nil {
				products.On("GetByID", mock.Anything, mock.Anything).Return(nil, tt.productErr)
			} else {
				products.On("GetByID", mock.Anything, mock.Anything).Return(shirt(), nil)
			}
			h := NewCartHandler(cart.NewMemoryStorage(), products, zerolog.Nop())

			req := httptest.NewRequest(http.MethodPost, "/api/cart/lines", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.AddLine(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var resp model.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}

func TestCartHandler_IssuesSessionAndDefaultSize(t *testing.T) {
	products := new(MockProductService)
	products.On("GetByID", mock.Anything, "P001").Return(shirt(), nil)

	storage := cart.NewMemoryStorage()
	h := NewCartHandler(storage, products, zerolog.Nop())

	w, resp := doCart(t, h, http.MethodPost, "/api/cart/lines", "", `{"productId":"P001"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, model.DefaultSize, resp.Lines[0].Size)

	issued := w.Header().Get(SessionHeader)
	require.NotEmpty(t, issued)

	data, err := storage.Get(context.Background(), cart.SessionKey(issued))
	require.NoError(t, err)
	assert.NotNil(t, data)

	shared, err := storage.Get(context.Background(), cart.DefaultKey)
	require.NoError(t, err)
	assert.Nil(t, shared, "carts are never stored under the bare namespace")

	w, resp = doCart(t, h, http.MethodDelete, "/api/cart/lines?productId=P001", issued, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp.Lines)
	assert.Empty(t, w.Header().Get(SessionHeader), "a supplied session is not reissued")
}

func TestCartHandler_AnonymousRequestsDoNotShareCarts(t *testing.T) {
	products := new(MockProductService)
	products.On("GetByID", mock.Anything, "P001").Return(shirt(), nil)

	h := NewCartHandler(cart.NewMemoryStorage(), products, zerolog.Nop())

	first, resp := doCart(t, h, http.MethodPost, "/api/cart/lines", "", `{"productId":"P001","size":"L","quantity":2}`)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 2, resp.Count)

	second, resp := doCart(t, h, http.MethodGet, "/api/cart", "", "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Empty(t, resp.Lines)

	assert.NotEqual(t, first.Header().Get(SessionHeader), second.Header().Get(SessionHeader))
}

func TestCartHandler_RemoveLineRequiresProduct(t *testing.T) {
	h := NewCartHandler(cart.NewMemoryStorage(), new(MockProductService), zerolog.Nop())

	w, _ := doCart(t, h, http.MethodDelete, "/api/cart/lines", "s1", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartHandler_StorageUnavailable(t *testing.T) {
	h := NewCartHandler(failingStorage{}, new(MockProductService), zerolog.Nop())

	w, _ := doCart(t, h, http.MethodGet, "/api/cart", "s1", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
