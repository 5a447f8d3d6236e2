package checkout

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// ErrOrderNotFound is returned when no order exists for the requested number.
var ErrOrderNotFound = errors.New("order not found")

// Reason classifies a per-item validation failure.
type Reason string

const (
	ReasonInvalidQuantity   Reason = "invalid_quantity"
	ReasonProductNotFound   Reason = "product_not_found"
	ReasonProductInactive   Reason = "product_inactive"
	ReasonVariationNotFound Reason = "variation_not_found"
	ReasonVariationInactive Reason = "variation_inactive"
	ReasonInsufficientStock Reason = "insufficient_stock"
	ReasonPriceUnavailable  Reason = "price_unavailable"
)

// ItemError describes why a single line item failed validation. Index is the
// item's position in the request, preserved so clients can correlate errors
// with their cart rows.
type ItemError struct {
	Index       int
	ProductID   int64
	VariationID int64
	Reason      Reason
	Message     string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (product %d): %s", e.Index, e.ProductID, e.Message)
}

// ValidationError aggregates every line-item failure of a strict validation
// pass. The whole checkout fails as a unit; the caller receives all item
// errors at once rather than the first one hit.
type ValidationError struct {
	Items []ItemError
}

func (e *ValidationError) Error() string {
	if len(e.Items) == 1 {
		return e.Items[0].Error()
	}
	msgs := make([]string, len(e.Items))
	for i := range e.Items {
		msgs[i] = e.Items[i].Error()
	}
	return fmt.Sprintf("%d invalid items: %s", len(e.Items), strings.Join(msgs, "; "))
}
