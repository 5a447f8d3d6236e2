package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/zimmart/order-engine/internal/domain/catalog"
	"github.com/zimmart/order-engine/internal/domain/money"
)

type productResponse struct {
	ID            int64                 `json:"id"`
	SKU           string                `json:"sku"`
	Name          string                `json:"name"`
	TrackStock    bool                  `json:"track_stock"`
	StockQuantity int                   `json:"stock_quantity"`
	ListPrice     money.OptionalAmounts `json:"list_price"`
	SalePrice     money.OptionalAmounts `json:"sale_price"`

	// Price is the effective per-currency unit price: sale when set, else
	// list. Unpriced currencies resolve to zero.
	Price money.Amounts `json:"price"`

	Variations []variationResponse `json:"variations,omitempty"`
}

type variationResponse struct {
	ID              int64                 `json:"id"`
	Name            string                `json:"name"`
	Value           string                `json:"value"`
	StockQuantity   int                   `json:"stock_quantity"`
	PriceAdjustment money.OptionalAmounts `json:"price_adjustment"`
	Price           money.Amounts         `json:"price"`
}

// ListProducts returns all active products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = toProductResponse(&products[i], nil)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// GetProduct returns a single product with its variations.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	variations, err := h.catalog.Variations(r.Context(), id)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toProductResponse(p, variations))
}

func toProductResponse(p *catalog.Product, variations []catalog.Variation) productResponse {
	resp := productResponse{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		TrackStock:    p.TrackStock,
		StockQuantity: p.StockQuantity,
		ListPrice:     p.ListPrice,
		SalePrice:     p.SalePrice,
		Price:         catalog.ResolveUnitAmounts(p, nil),
	}

	for i := range variations {
		v := &variations[i]
		if !v.Active {
			continue
		}
		resp.Variations = append(resp.Variations, variationResponse{
			ID:              v.ID,
			Name:            v.Name,
			Value:           v.Value,
			StockQuantity:   v.StockQuantity,
			PriceAdjustment: v.PriceAdjustment,
			Price:           catalog.ResolveUnitAmounts(p, v),
		})
	}

	return resp
}
