package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/zimmart/order-engine/internal/domain/checkout"
	"github.com/zimmart/order-engine/internal/domain/money"
	"github.com/zimmart/order-engine/internal/domain/promo"
)

type shippingAddressPayload struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country"`
}

type checkoutRequest struct {
	Currency  string            `json:"currency"`
	Items     []cartItemRequest `json:"items"`
	PromoCode string            `json:"promo_code,omitempty"`

	UserID *int64 `json:"user_id,omitempty"`

	ShippingMethod  string                 `json:"shipping_method,omitempty"`
	ShippingCost    money.Amounts          `json:"shipping_cost"`
	ShippingAddress shippingAddressPayload `json:"shipping_address"`
	Notes           string                 `json:"notes,omitempty"`
}

type orderItemResponse struct {
	ProductID   *int64 `json:"product_id"`
	VariationID *int64 `json:"variation_id,omitempty"`

	ProductName    string `json:"product_name"`
	ProductSKU     string `json:"product_sku"`
	VariationName  string `json:"variation_name,omitempty"`
	VariationValue string `json:"variation_value,omitempty"`

	Quantity  int           `json:"quantity"`
	UnitPrice money.Amounts `json:"unit_price"`
	Subtotal  money.Amounts `json:"subtotal"`
}

type orderResponse struct {
	Number        string `json:"number"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Currency      string `json:"currency"`

	Subtotal     money.Amounts `json:"subtotal"`
	Discount     money.Amounts `json:"discount"`
	ShippingCost money.Amounts `json:"shipping_cost"`
	Total        money.Amounts `json:"total"`

	ShippingMethod  string                 `json:"shipping_method,omitempty"`
	ShippingAddress shippingAddressPayload `json:"shipping_address"`
	Notes           string                 `json:"notes,omitempty"`

	Items []orderItemResponse `json:"items"`

	CreatedAt time.Time `json:"created_at"`
}

// Checkout runs the order assembler: strict validation, promo application,
// stock reservation, and order creation in one transaction. Requires a
// storefront API key.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
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

	order, err := h.checkout.Checkout(r.Context(), checkout.Request{
		Items:          items,
		Currency:       currency,
		PromoCode:      req.PromoCode,
		UserID:         req.UserID,
		ShippingMethod: req.ShippingMethod,
		ShippingCost:   req.ShippingCost,
		Shipping:       toShippingAddress(req.ShippingAddress),
		Notes:          req.Notes,
	})
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toOrderResponse(order))
}

// writeCheckoutError maps domain failures to HTTP statuses. Item validation
// failures and rejected promo codes are client errors; everything else is a
// 500.
func writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, checkout.ErrEmptyItems) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var vErr *checkout.ValidationError
	if errors.As(err, &vErr) {
		out := make([]itemErrorResponse, len(vErr.Items))
		for i, e := range vErr.Items {
			out[i] = itemErrorResponse{
				Index:       e.Index,
				ProductID:   e.ProductID,
				VariationID: e.VariationID,
				Reason:      string(e.Reason),
				Message:     e.Message,
			}
		}
		writeJSON(w, r, http.StatusUnprocessableEntity, struct {
			Code    int                 `json:"code"`
			Message string              `json:"message"`
			Errors  []itemErrorResponse `json:"errors"`
		}{
			Code:    http.StatusUnprocessableEntity,
			Message: "cart validation failed",
			Errors:  out,
		})
		return
	}

	var minErr *promo.MinimumNotMetError
	switch {
	case errors.Is(err, promo.ErrNotFound),
		errors.Is(err, promo.ErrInactive),
		errors.Is(err, promo.ErrExpired),
		errors.Is(err, promo.ErrNotYetValid),
		errors.Is(err, promo.ErrUsageLimitReached),
		errors.As(err, &minErr):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeInternalError(w, r, err)
}

func toShippingAddress(p shippingAddressPayload) checkout.ShippingAddress {
	return checkout.ShippingAddress{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		Phone:        p.Phone,
		AddressLine1: p.AddressLine1,
		AddressLine2: p.AddressLine2,
		City:         p.City,
		State:        p.State,
		PostalCode:   p.PostalCode,
		Country:      p.Country,
	}
}

func toOrderResponse(o *checkout.Order) orderResponse {
	resp := orderResponse{
		Number:        o.Number,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Currency:      string(o.Currency),

		Subtotal:     o.Subtotal,
		Discount:     o.Discount,
		ShippingCost: o.ShippingCost,
		Total:        o.Total,

		ShippingMethod: o.ShippingMethod,
		ShippingAddress: shippingAddressPayload{
			FirstName:    o.Shipping.FirstName,
			LastName:     o.Shipping.LastName,
			Email:        o.Shipping.Email,
			Phone:        o.Shipping.Phone,
			AddressLine1: o.Shipping.AddressLine1,
			AddressLine2: o.Shipping.AddressLine2,
			City:         o.Shipping.City,
			State:        o.Shipping.State,
			PostalCode:   o.Shipping.PostalCode,
			Country:      o.Shipping.Country,
		},
		Notes:     o.Notes,
		Items:     make([]orderItemResponse, len(o.Items)),
		CreatedAt: o.CreatedAt,
	}

	for i, it := range o.Items {
		resp.Items[i] = orderItemResponse{
			ProductID:      it.ProductID,
			VariationID:    it.VariationID,
			ProductName:    it.ProductName,
			ProductSKU:     it.ProductSKU,
			VariationName:  it.VariationName,
			VariationValue: it.VariationValue,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Subtotal:       it.Subtotal,
		}
	}

	return resp
}
