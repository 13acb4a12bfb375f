package handler

import (
	"context"
	"net/http"

	"luxe-store/internal/cart"
	"luxe-store/internal/checkout"
	"luxe-store/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SessionHeader carries the shopper's cart session id.
const SessionHeader = "X-Cart-Session"

// ProductLookup is the catalogue read a cart needs.
type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// CartHandler handles cart HTTP requests.
type CartHandler struct {
	storage  cart.Storage
	products ProductLookup
	logger   zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(storage cart.Storage, products ProductLookup, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		storage:  storage,
		products: products,
		logger:   logger.With().Str("handler", "cart").Logger(),
	}
}

// CartResponse is the cart view returned by every cart endpoint.
type CartResponse struct {
	Lines       []cart.Line     `json:"lines"`
	Count       int             `json:"count"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
	Total       decimal.Decimal `json:"total"`
}

type addLineRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  *int   `json:"quantity"`
}

type updateLineRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// sessionFor returns the request's cart session. A request without one is
// issued a fresh id, echoed back in SessionHeader so the client can resend it.
func sessionFor(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	id := uuid.NewString()
	w.Header().Set(SessionHeader, id)
	return id
}

// sizeOrDefault mirrors the size fallback AddLine applies.
func sizeOrDefault(size string) string {
	if size == "" {
		return model.DefaultSize
	}
	return size
}

func (h *CartHandler) load(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	store, err := cart.Load(r.Context(), h.storage, cart.SessionKey(sessionFor(w, r)), h.logger)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "cart storage unavailable", h.logger)
		return nil, false
	}
	return store, true
}

func newCartResponse(c cart.Cart) CartResponse {
	subtotal := c.Total()
	fee := decimal.Zero
	if !c.IsEmpty() {
		fee = checkout.ShippingFee(subtotal)
	}
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return CartResponse{
		Lines:       lines,
		Count:       c.Count(),
		Subtotal:    subtotal,
		ShippingFee: fee,
		Total:       subtotal.Add(fee),
	}
}

// Get handles GET /api/cart requests.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	store, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(store.Cart()))
}

// AddLine handles POST /api/cart/lines requests. Quantity defaults to 1.
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	product, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		writeDomainError(w, err, "failed to retrieve product", h.logger)
		return
	}

	store, ok := h.load(w, r)
	if !ok {
		return
	}

	c, err := store.AddLine(r.Context(), product, req.Size, quantity)
	if err != nil {
		writeDomainError(w, err, "failed to update cart", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(c))
}

// UpdateLine handles PUT /api/cart/lines requests. A quantity of zero or
// less removes the line.
func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req updateLineRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	store, ok := h.load(w, r)
	if !ok {
		return
	}

	c, err := store.UpdateQuantity(r.Context(), req.ProductID, sizeOrDefault(req.Size), req.Quantity)
	if err != nil {
		writeDomainError(w, err, "failed to update cart", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(c))
}

// RemoveLine handles DELETE /api/cart/lines?productId=&size= requests.
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("productId")
	if productID == "" {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error: "productId is required",
			Code:  model.ErrCodeMissingField,
		})
		return
	}

	store, ok := h.load(w, r)
	if !ok {
		return
	}

	c, err := store.RemoveLine(r.Context(), productID, sizeOrDefault(r.URL.Query().Get("size")))
	if err != nil {
		writeDomainError(w, err, "failed to update cart", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(c))
}

// Clear handles DELETE /api/cart requests.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	store, ok := h.load(w, r)
	if !ok {
		return
	}

	if err := store.Clear(r.Context()); err != nil {
		writeDomainError(w, err, "failed to clear cart", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(store.Cart()))
}
