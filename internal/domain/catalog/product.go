// Package catalog holds the sellable catalog entities the order engine reads:
// products and their variations. The engine never writes catalog data except
// for stock counters during checkout.
package catalog

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/zimmart/order-engine/internal/domain/money"
)

var (
	// ErrProductNotFound is returned when a requested product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrVariationNotFound is returned when a variation does not exist under
	// the given product.
	ErrVariationNotFound = errors.New("product variation not found")
)

// Product represents a sellable catalog item.
type Product struct {
	ID            int64
	SKU           string
	Name          string
	Active        bool
	TrackStock    bool
	StockQuantity int
	ListPrice     money.OptionalAmounts
	SalePrice     money.OptionalAmounts
}

// Variation is an optional sub-selection of a product, e.g. size or color.
// Its stock is tracked independently of the parent product's stock, and its
// price adjustment is a signed delta on the resolved base price.
type Variation struct {
	ID              int64
	ProductID       int64
	Name            string
	Value           string
	Active          bool
	StockQuantity   int
	PriceAdjustment money.OptionalAmounts
}

// Reader provides point reads of catalog entities. The checkout transaction
// supplies a Reader over row-locked entities; soft cart validation uses the
// plain Repository.
type Reader interface {
	// Product returns the product with the given id, or ErrProductNotFound.
	Product(ctx context.Context, id int64) (*Product, error)
	// Variation returns the variation with the given id scoped to productID,
	// or ErrVariationNotFound when it does not exist under that product.
	Variation(ctx context.Context, productID, variationID int64) (*Variation, error)
}

// Repository defines read operations over the product catalog.
type Repository interface {
	Reader
	// List returns all active products ordered by id.
	List(ctx context.Context) ([]Product, error)
	// Variations returns all variations of the given product ordered by id.
	Variations(ctx context.Context, productID int64) ([]Variation, error)
}
