// Package promo implements promo-code validation and discount calculation.
package promo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/zimmart/order-engine/internal/domain/money"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindPercentage discounts a percentage of the subtotal.
	KindPercentage Kind = "percentage"
	// KindFixedAmount discounts a fixed amount, capped at the subtotal.
	KindFixedAmount Kind = "fixed_amount"
)

var (
	// ErrNotFound is returned when no promo code matches the given code.
	ErrNotFound = errors.New("invalid promo code")
	// ErrInactive is returned when the code exists but is disabled.
	ErrInactive = errors.New("promo code is not active")
	// ErrExpired is returned when the code's validity window has passed.
	ErrExpired = errors.New("promo code has expired")
	// ErrNotYetValid is returned before the code's validity window opens.
	ErrNotYetValid = errors.New("promo code is not yet valid")
	// ErrUsageLimitReached is returned when the code has exhausted its uses.
	ErrUsageLimitReached = errors.New("promo code has reached maximum usage limit")
)

// MinimumNotMetError indicates the order subtotal is below the code's
// minimum order amount in the selected currency.
type MinimumNotMetError struct {
	Currency money.Currency
	Minimum  decimal.Decimal
}

func (e *MinimumNotMetError) Error() string {
	return fmt.Sprintf("minimum order amount of %s %s required", e.Currency, e.Minimum)
}

// Code is a discount instrument created by administrators. UsedCount is
// incremented exactly once per committed order that applies the code; it is
// never decremented.
type Code struct {
	ID          int64
	Code        string
	Description string
	Kind        Kind

	// Value is the discount magnitude per currency: a percentage for
	// KindPercentage, a fixed amount for KindFixedAmount. Each currency
	// carries its own independent magnitude; no exchange-rate conversion.
	Value money.OptionalAmounts

	// MaxUses caps how many orders may apply this code; zero means unlimited.
	MaxUses   int
	UsedCount int

	ValidFrom  time.Time
	ValidUntil *time.Time

	Active bool

	// MinOrderAmount is the per-currency minimum subtotal required to use
	// this code; an unset currency imposes no minimum.
	MinOrderAmount money.OptionalAmounts

	CreatedAt time.Time
}

// Validate checks whether the code is usable for an order with the given
// subtotal in the selected currency. Checks short-circuit in a fixed order:
// active, expired, not yet valid, usage cap, minimum order amount.
func (c *Code) Validate(now time.Time, currency money.Currency, subtotal decimal.Decimal) error {
	if !c.Active {
		return ErrInactive
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return ErrExpired
	}
	if now.Before(c.ValidFrom) {
		return ErrNotYetValid
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return ErrUsageLimitReached
	}
	if min := c.MinOrderAmount.Get(currency); min.Valid && subtotal.LessThan(min.Decimal) {
		return &MinimumNotMetError{Currency: currency, Minimum: min.Decimal}
	}
	return nil
}

// Repository provides lookup of promo codes. Lookups are case-insensitive;
// implementations upper-case the code before matching.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Code, error)
}
