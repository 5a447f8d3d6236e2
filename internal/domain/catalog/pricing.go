package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/zimmart/order-engine/internal/domain/money"
)

// ResolveUnitPrice resolves the effective unit price of a product (with an
// optional variation) in the given currency.
//
// The sale price wins over the list price when set. When neither is set the
// product cannot be sold in that currency and ok is false. A variation's
// price adjustment is added on top of whichever base price was chosen;
// an unset adjustment counts as zero.
//
// Pure function over already-loaded entities; v may be nil.
func ResolveUnitPrice(p *Product, v *Variation, c money.Currency) (price decimal.Decimal, ok bool) {
	base := p.SalePrice.Get(c)
	if !base.Valid {
		base = p.ListPrice.Get(c)
	}
	if !base.Valid {
		return decimal.Zero, false
	}

	price = base.Decimal
	if v != nil {
		price = price.Add(v.PriceAdjustment.OrZero(c))
	}
	return price, true
}

// ResolveUnitAmounts resolves the unit price in every currency at once.
// Currencies without a configured price resolve to zero; orders persist all
// three currencies and the caller is expected to have rejected the selected
// currency separately when it has no price.
func ResolveUnitAmounts(p *Product, v *Variation) money.Amounts {
	var a money.Amounts
	for _, c := range money.Currencies() {
		if price, ok := ResolveUnitPrice(p, v, c); ok {
			a.Set(c, price)
		}
	}
	return a
}
