// Package checkout implements the order engine: cart validation, promo-code
// application, and the atomic stock-reserving order assembler.
package checkout

import (
	"context"
	"time"

	"github.com/zimmart/order-engine/internal/domain/money"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// transitions is the order status state machine. The engine only ever
// creates pending orders; later transitions are driven by payment callbacks
// and fulfillment, which live outside this service.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:    {StatusDelivered, StatusRefunded},
	StatusDelivered:  {StatusRefunded},
}

// CanTransitionTo reports whether the status may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// ShippingAddress is the destination block copied verbatim onto the order.
// It arrives pre-validated from the address-collection step.
type ShippingAddress struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
}

// Order is an immutable record of a completed checkout. All monetary fields
// are stored in all three currencies even though only Currency is active for
// the order. Total = Subtotal - Discount + ShippingCost per currency at the
// moment of creation.
type Order struct {
	ID            int64
	Number        string
	UserID        *int64 // nil for guest checkout
	Status        Status
	PaymentStatus PaymentStatus
	Currency      money.Currency

	Subtotal     money.Amounts
	Discount     money.Amounts
	ShippingCost money.Amounts
	Total        money.Amounts

	PromoCodeID    *int64
	ShippingMethod string
	Shipping       ShippingAddress
	Notes          string

	Items []Item

	CreatedAt time.Time
}

// Item is a line-item snapshot within an order. The name/SKU/variation and
// price fields are copied at order-creation time and never recomputed, so
// historical orders stay readable after the catalog changes. The product and
// variation references are weak: they go nil when the catalog entity is
// deleted, while the snapshot survives.
type Item struct {
	ID          int64
	ProductID   *int64
	VariationID *int64

	ProductName    string
	ProductSKU     string
	VariationName  string
	VariationValue string

	Quantity  int
	UnitPrice money.Amounts
	Subtotal  money.Amounts
}

// Repository provides read access to persisted orders. Writes happen only
// through the assembler's transaction (Tx.InsertOrder).
type Repository interface {
	// ByNumber returns the order with its items, or ErrOrderNotFound.
	ByNumber(ctx context.Context, number string) (*Order, error)
}
