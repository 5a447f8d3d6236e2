package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/zimmart/order-engine/internal/domain/money"
)

type validatePromoRequest struct {
	Code     string          `json:"code"`
	Currency string          `json:"currency"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ValidatePromoCode quotes a promo code against a subtotal. The code's usage
// count is not incremented; only a committed checkout consumes a use.
func (h *Handler) ValidatePromoCode(w http.ResponseWriter, r *http.Request) {
	var req validatePromoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeError(w, r, http.StatusBadRequest, "code required")
		return
	}

	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// The quote needs the subtotal in all currencies to produce a full
	// discount triplet; only the selected currency gates validity.
	subtotal := money.Amounts{}
	subtotal.Set(currency, req.Subtotal)

	writeJSON(w, r, http.StatusOK, h.quotePromo(r, req.Code, currency, subtotal))
}
