// Package handler implements the HTTP API of the order engine on a chi
// router, delegating business logic to the domain services.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zimmart/order-engine/internal/domain/auth"
	"github.com/zimmart/order-engine/internal/domain/catalog"
	"github.com/zimmart/order-engine/internal/domain/checkout"
	"github.com/zimmart/order-engine/internal/domain/promo"
)

// Handler serves the order-engine API.
type Handler struct {
	catalog  catalog.Repository
	promos   promo.Repository
	orders   checkout.Repository
	checkout *checkout.Service
	verifier *auth.Verifier
	now      func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	catalogRepo catalog.Repository,
	promos promo.Repository,
	orders checkout.Repository,
	checkoutSvc *checkout.Service,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		catalog:  catalogRepo,
		promos:   promos,
		orders:   orders,
		checkout: checkoutSvc,
		verifier: verifier,
		now:      time.Now,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Route("/cart", func(r chi.Router) {
			r.Post("/validate", h.ValidateCart)
			r.Get("/stock-check", h.StockCheckSingle)
			r.Post("/stock-check", h.StockCheckBulk)
			r.Post("/promo-code/validate", h.ValidatePromoCode)

			r.With(h.RequireAPIKey).Post("/checkout", h.Checkout)
		})

		r.Get("/orders/{number}", h.GetOrder)
	})

	return r
}
