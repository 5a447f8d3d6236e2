// Package money provides the multi-currency value types used across the
// order engine. The marketplace prices everything in three independent
// currencies at once; an Amounts value carries all three figures so callers
// never juggle parallel per-currency fields.
package money

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Currency identifies one of the marketplace's settlement currencies.
type Currency string

const (
	// USD is the primary currency.
	USD Currency = "USD"
	// ZWL is Zimbabwe dollar (RTGS).
	ZWL Currency = "ZWL"
	// ZAR is South African rand.
	ZAR Currency = "ZAR"
)

// ErrUnknownCurrency is returned for currency codes outside USD/ZWL/ZAR.
// Unknown codes are rejected outright rather than silently treated as USD.
var ErrUnknownCurrency = errors.New("unknown currency")

// Currencies returns all supported currencies in canonical order.
func Currencies() []Currency {
	return []Currency{USD, ZWL, ZAR}
}

// ParseCurrency converts a client-supplied code into a Currency.
// Matching is case-insensitive.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case USD:
		return USD, nil
	case ZWL:
		return ZWL, nil
	case ZAR:
		return ZAR, nil
	default:
		return "", errors.Wrapf(ErrUnknownCurrency, "%q", s)
	}
}

// Amounts is a per-currency decimal triplet. The zero value is zero in every
// currency and ready to use.
type Amounts struct {
	USD decimal.Decimal
	ZWL decimal.Decimal
	ZAR decimal.Decimal
}

// Get returns the amount in the given currency.
func (a Amounts) Get(c Currency) decimal.Decimal {
	switch c {
	case ZWL:
		return a.ZWL
	case ZAR:
		return a.ZAR
	default:
		return a.USD
	}
}

// Set overwrites the amount in the given currency.
func (a *Amounts) Set(c Currency, v decimal.Decimal) {
	switch c {
	case ZWL:
		a.ZWL = v
	case ZAR:
		a.ZAR = v
	default:
		a.USD = v
	}
}

// Add returns a + b, currency by currency.
func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{
		USD: a.USD.Add(b.USD),
		ZWL: a.ZWL.Add(b.ZWL),
		ZAR: a.ZAR.Add(b.ZAR),
	}
}

// Sub returns a - b, currency by currency.
func (a Amounts) Sub(b Amounts) Amounts {
	return Amounts{
		USD: a.USD.Sub(b.USD),
		ZWL: a.ZWL.Sub(b.ZWL),
		ZAR: a.ZAR.Sub(b.ZAR),
	}
}

// MulInt returns a scaled by the integer n in every currency.
func (a Amounts) MulInt(n int64) Amounts {
	q := decimal.NewFromInt(n)
	return Amounts{
		USD: a.USD.Mul(q),
		ZWL: a.ZWL.Mul(q),
		ZAR: a.ZAR.Mul(q),
	}
}

// Round rounds every currency to the given number of decimal places.
func (a Amounts) Round(places int32) Amounts {
	return Amounts{
		USD: a.USD.Round(places),
		ZWL: a.ZWL.Round(places),
		ZAR: a.ZAR.Round(places),
	}
}

// FloorAtZero clamps negative amounts to zero in every currency.
func (a Amounts) FloorAtZero() Amounts {
	return Amounts{
		USD: floorAtZero(a.USD),
		ZWL: floorAtZero(a.ZWL),
		ZAR: floorAtZero(a.ZAR),
	}
}

// IsZero reports whether every currency is exactly zero.
func (a Amounts) IsZero() bool {
	return a.USD.IsZero() && a.ZWL.IsZero() && a.ZAR.IsZero()
}

// Equal reports per-currency equality with b.
func (a Amounts) Equal(b Amounts) bool {
	return a.USD.Equal(b.USD) && a.ZWL.Equal(b.ZWL) && a.ZAR.Equal(b.ZAR)
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// OptionalAmounts is a per-currency triplet where each amount may be unset.
// Catalog list/sale prices and promo-code magnitudes are configured per
// currency and any of them may be missing.
type OptionalAmounts struct {
	USD decimal.NullDecimal
	ZWL decimal.NullDecimal
	ZAR decimal.NullDecimal
}

// Get returns the amount in the given currency, which may be unset.
func (o OptionalAmounts) Get(c Currency) decimal.NullDecimal {
	switch c {
	case ZWL:
		return o.ZWL
	case ZAR:
		return o.ZAR
	default:
		return o.USD
	}
}

// Set overwrites the amount in the given currency.
func (o *OptionalAmounts) Set(c Currency, v decimal.NullDecimal) {
	switch c {
	case ZWL:
		o.ZWL = v
	case ZAR:
		o.ZAR = v
	default:
		o.USD = v
	}
}

// OrZero returns the amount in the given currency, or zero when unset.
func (o OptionalAmounts) OrZero(c Currency) decimal.Decimal {
	if v := o.Get(c); v.Valid {
		return v.Decimal
	}
	return decimal.Zero
}

// Some wraps a set decimal value.
func Some(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// None is an unset decimal value.
func None() decimal.NullDecimal {
	return decimal.NullDecimal{}
}
