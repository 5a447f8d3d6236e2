package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/zimmart/order-engine/internal/domain/catalog"
	"github.com/zimmart/order-engine/internal/domain/checkout"
	"github.com/zimmart/order-engine/internal/domain/money"
	"github.com/zimmart/order-engine/internal/domain/promo"
)

// priceDriftThreshold is the relative change between the price a client
// displayed and the current price that triggers a warning on cart
// validation.
var priceDriftThreshold = decimal.RequireFromString("0.05")

type cartItemRequest struct {
	ProductID   int64 `json:"product_id"`
	VariationID int64 `json:"variation_id,omitempty"`
	Quantity    int   `json:"quantity"`

	// DisplayedUnitPrice is the unit price the client is currently showing,
	// in the selected currency. When present it is checked for drift against
	// the live price.
	DisplayedUnitPrice *decimal.Decimal `json:"displayed_unit_price,omitempty"`
}

type validateCartRequest struct {
	Currency  string            `json:"currency"`
	Items     []cartItemRequest `json:"items"`
	PromoCode string            `json:"promo_code,omitempty"`
}

type cartItemResponse struct {
	ProductID   int64         `json:"product_id"`
	VariationID int64         `json:"variation_id,omitempty"`
	Quantity    int           `json:"quantity"`
	UnitPrice   money.Amounts `json:"unit_price"`
	Subtotal    money.Amounts `json:"subtotal"`
}

type itemErrorResponse struct {
	Index       int    `json:"index"`
	ProductID   int64  `json:"product_id"`
	VariationID int64  `json:"variation_id,omitempty"`
	Reason      string `json:"reason"`
	Message     string `json:"message"`
}

type promoQuoteResponse struct {
	Valid    bool           `json:"valid"`
	Code     string         `json:"code"`
	Kind     string         `json:"kind,omitempty"`
	Discount *money.Amounts `json:"discount,omitempty"`
	Message  string         `json:"message,omitempty"`
}

type validateCartResponse struct {
	Valid    bool                `json:"valid"`
	Items    []cartItemResponse  `json:"items"`
	Errors   []itemErrorResponse `json:"errors,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
	Subtotal money.Amounts       `json:"subtotal"`
	Promo    *promoQuoteResponse `json:"promo,omitempty"`
}

// ValidateCart validates a cart for display without locking or mutating
// anything. Invalid items are reported per item; the valid remainder is
// priced. A supplied promo code is quoted but its usage count is untouched.
func (h *Handler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	var req validateCartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "items required")
		return
	}

	items := make([]checkout.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = checkout.LineItem{
			ProductID:   it.ProductID,
			VariationID: it.VariationID,
			Quantity:    it.Quantity,
		}
	}

	res, err := checkout.Validate(r.Context(), h.catalog, items, currency, checkout.ModeReport)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	resp := validateCartResponse{
		Valid:    len(res.Errors) == 0,
		Items:    make([]cartItemResponse, 0, len(res.Items)),
		Subtotal: res.Subtotal.Round(2),
	}
	for _, e := range res.Errors {
		resp.Errors = append(resp.Errors, itemErrorResponse{
			Index:       e.Index,
			ProductID:   e.ProductID,
			VariationID: e.VariationID,
			Reason:      string(e.Reason),
			Message:     e.Message,
		})
	}

	// Validated items come back in input order with invalid indices removed;
	// walk both lists together to correlate responses with request rows.
	failed := make(map[int]struct{}, len(res.Errors))
	for _, e := range res.Errors {
		failed[e.Index] = struct{}{}
	}
	next := 0
	for i, reqItem := range req.Items {
		if _, ok := failed[i]; ok {
			continue
		}
		item := res.Items[next]
		next++

		resp.Items = append(resp.Items, cartItemResponse{
			ProductID:   reqItem.ProductID,
			VariationID: reqItem.VariationID,
			Quantity:    reqItem.Quantity,
			UnitPrice:   item.UnitPrice.Round(2),
			Subtotal:    item.Subtotal.Round(2),
		})

		if warning := priceDriftWarning(reqItem, item.UnitPrice.Get(currency)); warning != "" {
			resp.Warnings = append(resp.Warnings, warning)
		}
	}

	if req.PromoCode != "" {
		resp.Promo = h.quotePromo(r, req.PromoCode, currency, resp.Subtotal)
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// priceDriftWarning reports when the live unit price moved more than 5%
// away from the price the client displayed.
func priceDriftWarning(item cartItemRequest, current decimal.Decimal) string {
	displayed := item.DisplayedUnitPrice
	if displayed == nil || displayed.LessThanOrEqual(decimal.Zero) {
		return ""
	}
	drift := current.Sub(*displayed).Abs()
	if drift.LessThanOrEqual(displayed.Mul(priceDriftThreshold)) {
		return ""
	}
	return fmt.Sprintf("price of product %d changed from %s to %s",
		item.ProductID, displayed.StringFixed(2), current.StringFixed(2))
}

// quotePromo resolves and validates a promo code against the cart subtotal
// without touching its usage count.
func (h *Handler) quotePromo(r *http.Request, code string, currency money.Currency, subtotal money.Amounts) *promoQuoteResponse {
	rule, err := h.promos.FindByCode(r.Context(), code)
	if err != nil {
		msg := "invalid promo code"
		if !errors.Is(err, promo.ErrNotFound) {
			msg = "promo code lookup failed"
		}
		return &promoQuoteResponse{Valid: false, Code: code, Message: msg}
	}

	if err := rule.Validate(h.now(), currency, subtotal.Get(currency)); err != nil {
		return &promoQuoteResponse{Valid: false, Code: rule.Code, Kind: string(rule.Kind), Message: err.Error()}
	}

	discount := rule.Discount(subtotal).Round(2)
	return &promoQuoteResponse{
		Valid:    true,
		Code:     rule.Code,
		Kind:     string(rule.Kind),
		Discount: &discount,
	}
}

type stockCheckResponse struct {
	ProductID   int64  `json:"product_id"`
	VariationID int64  `json:"variation_id,omitempty"`
	Tracked     bool   `json:"tracked"`
	Available   int    `json:"available"`
	Sufficient  bool   `json:"sufficient"`
	Error       string `json:"error,omitempty"`
}

type stockCheckBulkRequest struct {
	Items []cartItemRequest `json:"items"`
}

type stockCheckBulkResponse struct {
	Items []stockCheckResponse `json:"items"`
}

// StockCheckSingle reports availability for one product or variation,
// identified by query parameters.
func (h *Handler) StockCheckSingle(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid product_id")
		return
	}
	var variationID int64
	if raw := r.URL.Query().Get("variation_id"); raw != "" {
		if variationID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid variation_id")
			return
		}
	}
	quantity := 1
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		if quantity, err = strconv.Atoi(raw); err != nil || quantity < 1 {
			writeError(w, r, http.StatusBadRequest, "invalid quantity")
			return
		}
	}

	resp, err := h.stockCheck(r, productID, variationID, quantity)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if resp.Error != "" {
		writeError(w, r, http.StatusNotFound, resp.Error)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// StockCheckBulk reports availability for several items at once. Unknown
// entities are reported per item instead of failing the batch.
func (h *Handler) StockCheckBulk(w http.ResponseWriter, r *http.Request) {
	var req stockCheckBulkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "items required")
		return
	}

	resp := stockCheckBulkResponse{Items: make([]stockCheckResponse, len(req.Items))}
	for i, it := range req.Items {
		quantity := it.Quantity
		if quantity < 1 {
			quantity = 1
		}
		check, err := h.stockCheck(r, it.ProductID, it.VariationID, quantity)
		if err != nil {
			writeInternalError(w, r, err)
			return
		}
		resp.Items[i] = check
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) stockCheck(r *http.Request, productID, variationID int64, quantity int) (stockCheckResponse, error) {
	resp := stockCheckResponse{ProductID: productID, VariationID: variationID}

	product, err := h.catalog.Product(r.Context(), productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			resp.Error = "product not found"
			return resp, nil
		}
		return resp, err
	}

	available := product.StockQuantity
	if variationID != 0 {
		variation, err := h.catalog.Variation(r.Context(), productID, variationID)
		if err != nil {
			if errors.Is(err, catalog.ErrVariationNotFound) {
				resp.Error = "product variation not found"
				return resp, nil
			}
			return resp, err
		}
		available = variation.StockQuantity
	}

	resp.Tracked = product.TrackStock
	resp.Available = available
	resp.Sufficient = !product.TrackStock || available >= quantity
	return resp, nil
}
