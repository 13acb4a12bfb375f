package router

import (
	"net/http"

	"luxe-store/internal/handler"
	"luxe-store/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Product  *handler.ProductHandler
	Order    *handler.OrderHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Payment  *handler.PaymentHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> Logging -> CORS -> Metrics -> Identify
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.Metrics)

	// Health check and metrics (no identity required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// The webhook authenticates by signature, not by caller headers.
	r.Post("/api/payments/webhook", h.Payment.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identify(apiKey, logger))
		adminOnly := middleware.RequireAdmin(logger)

		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", h.Product.List)
			r.Get("/{id}", h.Product.GetByID)
			r.With(adminOnly).Post("/", h.Product.Create)
			r.With(adminOnly).Put("/{id}", h.Product.Update)
			r.With(adminOnly).Delete("/{id}", h.Product.Delete)
		})

		r.Route("/api/orders", func(r chi.Router) {
			r.Post("/", h.Order.Create)
			r.Get("/", h.Order.List)
			r.Get("/{id}", h.Order.GetByID)
			r.With(adminOnly).Patch("/{id}/status", h.Order.UpdateStatus)
		})

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", h.Cart.Get)
			r.Delete("/", h.Cart.Clear)
			r.Post("/lines", h.Cart.AddLine)
			r.Put("/lines", h.Cart.UpdateLine)
			r.Delete("/lines", h.Cart.RemoveLine)
		})

		r.Post("/api/checkout", h.Checkout.Checkout)
		r.Post("/api/payments/intents", h.Payment.CreateIntent)
	})

	return r
}
