package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/zimmart/order-engine/internal/domain/checkout"
)

// GetOrder returns a persisted order with its item snapshots.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		writeError(w, r, http.StatusBadRequest, "order number required")
		return
	}

	order, err := h.orders.ByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toOrderResponse(order))
}
