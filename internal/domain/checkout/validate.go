package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/zimmart/order-engine/internal/domain/catalog"
	"github.com/zimmart/order-engine/internal/domain/money"
)

// LineItem is one (product, optional variation, quantity) entry of a cart.
// VariationID zero means no variation selected.
type LineItem struct {
	ProductID   int64
	VariationID int64
	Quantity    int
}

// Mode selects how Validate treats item errors.
type Mode int

const (
	// ModeReport accumulates item errors and still returns the validated
	// remainder. Used for cart display, where a dead line item should not
	// hide the rest of the cart.
	ModeReport Mode = iota
	// ModeStrict fails the whole batch when any item is invalid. Used at
	// checkout, where partial orders are never permitted.
	ModeStrict
)

// ValidatedItem is a line item that passed validation, with its resolved
// entities and per-currency pricing.
type ValidatedItem struct {
	Product   *catalog.Product
	Variation *catalog.Variation // nil when no variation selected
	Quantity  int
	UnitPrice money.Amounts
	Subtotal  money.Amounts
}

// Result is the outcome of a validation pass. Errors is only populated in
// ModeReport; in ModeStrict any item error is returned as *ValidationError
// instead and no Result is produced.
type Result struct {
	Items    []ValidatedItem
	Subtotal money.Amounts
	Errors   []ItemError
}

// Validate checks each line item in input order against the catalog: the
// product must exist and be active, a selected variation must exist under
// that product and be active, tracked stock must cover the quantity, and the
// product must have a price in the selected currency. Accepted items
// contribute price x quantity to the running subtotal in all three
// currencies at once, because orders persist all three.
//
// Stock is checked cumulatively: two line items drawing on the same stock
// counter see the remainder the earlier one left, so a cart cannot pass
// validation by splitting one oversized quantity across lines.
//
// The src argument decides the consistency model: soft validation passes a
// plain repository, the checkout transaction passes a reader over row-locked
// entities.
func Validate(ctx context.Context, src catalog.Reader, items []LineItem, currency money.Currency, mode Mode) (*Result, error) {
	res := &Result{}

	// Remaining stock per counter, keyed by product or variation identity.
	remaining := make(map[stockKey]int)

	for i, item := range items {
		itemErr, err := validateItem(ctx, src, i, item, currency, remaining, res)
		if err != nil {
			return nil, err
		}
		if itemErr != nil {
			// Keep going so the caller sees every bad item at once.
			res.Errors = append(res.Errors, *itemErr)
		}
	}

	if mode == ModeStrict && len(res.Errors) > 0 {
		return nil, &ValidationError{Items: res.Errors}
	}
	return res, nil
}

type stockKey struct {
	productID   int64
	variationID int64
}

func validateItem(
	ctx context.Context,
	src catalog.Reader,
	index int,
	item LineItem,
	currency money.Currency,
	remaining map[stockKey]int,
	res *Result,
) (*ItemError, error) {
	itemErr := func(reason Reason, msg string) *ItemError {
		return &ItemError{
			Index:       index,
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			Reason:      reason,
			Message:     msg,
		}
	}

	if item.Quantity < 1 {
		return itemErr(ReasonInvalidQuantity, "quantity must be at least 1"), nil
	}

	product, err := src.Product(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return itemErr(ReasonProductNotFound, "product does not exist"), nil
		}
		return nil, errors.Wrapf(err, "load product %d", item.ProductID)
	}
	if !product.Active {
		return itemErr(ReasonProductInactive, "product is not active"), nil
	}

	var variation *catalog.Variation
	if item.VariationID != 0 {
		variation, err = src.Variation(ctx, item.ProductID, item.VariationID)
		if err != nil {
			if errors.Is(err, catalog.ErrVariationNotFound) {
				return itemErr(ReasonVariationNotFound, "product variation does not exist"), nil
			}
			return nil, errors.Wrapf(err, "load variation %d", item.VariationID)
		}
		if !variation.Active {
			return itemErr(ReasonVariationInactive, "product variation is not active"), nil
		}
	}

	// A selected variation's stock is tracked independently of the parent's.
	key := stockKey{productID: product.ID, variationID: item.VariationID}
	available, seen := remaining[key]
	if !seen {
		if variation != nil {
			available = variation.StockQuantity
		} else {
			available = product.StockQuantity
		}
	}

	if product.TrackStock && available < item.Quantity {
		return itemErr(ReasonInsufficientStock,
			fmt.Sprintf("insufficient stock. Available: %d, Requested: %d", available, item.Quantity)), nil
	}

	if _, ok := catalog.ResolveUnitPrice(product, variation, currency); !ok {
		return itemErr(ReasonPriceUnavailable,
			fmt.Sprintf("product does not have a price in %s", currency)), nil
	}

	remaining[key] = available - item.Quantity

	unit := catalog.ResolveUnitAmounts(product, variation)
	subtotal := unit.MulInt(int64(item.Quantity))

	res.Items = append(res.Items, ValidatedItem{
		Product:   product,
		Variation: variation,
		Quantity:  item.Quantity,
		UnitPrice: unit,
		Subtotal:  subtotal,
	})
	res.Subtotal = res.Subtotal.Add(subtotal)

	return nil, nil
}
