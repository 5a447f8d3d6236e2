package promo

import (
	"github.com/shopspring/decimal"

	"github.com/zimmart/order-engine/internal/domain/money"
)

var hundred = decimal.NewFromInt(100)

// Discount computes the discount this code grants against the given
// per-currency subtotals. Each currency is computed independently from that
// currency's own magnitude; a currency with no magnitude configured gets no
// discount in that currency.
//
// Percentage: subtotal * value / 100. Fixed amount: min(value, subtotal) —
// a fixed discount never exceeds the subtotal it applies to. Both are
// clamped at zero.
func (c *Code) Discount(subtotals money.Amounts) money.Amounts {
	var d money.Amounts
	for _, cur := range money.Currencies() {
		value := c.Value.Get(cur)
		if !value.Valid {
			continue
		}
		d.Set(cur, discountFor(c.Kind, value.Decimal, subtotals.Get(cur)))
	}
	return d.FloorAtZero()
}

func discountFor(kind Kind, value, subtotal decimal.Decimal) decimal.Decimal {
	switch kind {
	case KindFixedAmount:
		return decimal.Min(value, subtotal)
	default:
		return subtotal.Mul(value).Div(hundred)
	}
}
