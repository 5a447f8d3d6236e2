package checkout

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/zimmart/order-engine/internal/domain/catalog"
	"github.com/zimmart/order-engine/internal/domain/money"
	"github.com/zimmart/order-engine/internal/domain/promo"
)

// ErrEmptyItems is returned when a checkout request carries no line items.
var ErrEmptyItems = errors.New("items required")

// Store opens the transaction the order assembler runs in.
type Store interface {
	// InTx runs fn inside a single database transaction. When fn returns an
	// error the transaction rolls back and that error is returned.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional surface of one checkout attempt. The ForUpdate
// reads take row-level locks that are held until the transaction commits or
// rolls back, serializing concurrent checkouts that touch the same rows.
type Tx interface {
	ProductForUpdate(ctx context.Context, id int64) (*catalog.Product, error)
	VariationForUpdate(ctx context.Context, productID, variationID int64) (*catalog.Variation, error)
	SetProductStock(ctx context.Context, id int64, quantity int) error
	SetVariationStock(ctx context.Context, id int64, quantity int) error

	PromoForUpdate(ctx context.Context, code string) (*promo.Code, error)
	IncrementPromoUses(ctx context.Context, id int64) error

	OrderNumberExists(ctx context.Context, number string) (bool, error)
	// InsertOrder persists the order and its items, filling o.ID and
	// o.CreatedAt.
	InsertOrder(ctx context.Context, o *Order) error
}

// Request is one checkout attempt. Shipping cost and address arrive
// pre-computed by the shipping-rate and address-collection steps.
type Request struct {
	Items     []LineItem
	Currency  money.Currency
	PromoCode string

	UserID *int64 // nil for guest checkout

	ShippingMethod string
	ShippingCost   money.Amounts
	Shipping       ShippingAddress
	Notes          string
}

// Service is the order assembler. It owns the only code path that mutates
// stock counters and promo usage counts.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates an order assembler over the given transactional store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Checkout validates the cart under row locks, applies the promo code,
// decrements stock, and persists an immutable order snapshot — all inside
// one transaction. Any failure rolls the whole attempt back: there is no
// partial order creation and no stray stock decrement.
func (s *Service) Checkout(ctx context.Context, req Request) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	var order *Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		locked, err := lockCatalogRows(ctx, tx, req.Items)
		if err != nil {
			return err
		}

		// Re-validate against the locked rows; stock figures are read under
		// lock, never from an earlier snapshot.
		res, err := Validate(ctx, locked, req.Items, req.Currency, ModeStrict)
		if err != nil {
			return err
		}

		subtotal := res.Subtotal.Round(2)

		discount := money.Amounts{}
		var promoID *int64
		if req.PromoCode != "" {
			rule, err := tx.PromoForUpdate(ctx, strings.ToUpper(strings.TrimSpace(req.PromoCode)))
			if err != nil {
				return err
			}
			if err := rule.Validate(s.now(), req.Currency, subtotal.Get(req.Currency)); err != nil {
				return err
			}
			discount = rule.Discount(subtotal).Round(2)
			promoID = &rule.ID
		}

		if err := reserveStock(ctx, tx, res.Items); err != nil {
			return err
		}

		number, err := generateOrderNumber(func(n string) (bool, error) {
			return tx.OrderNumberExists(ctx, n)
		})
		if err != nil {
			return err
		}

		shipping := req.ShippingCost.Round(2)
		order = &Order{
			Number:        number,
			UserID:        req.UserID,
			Status:        StatusPending,
			PaymentStatus: PaymentPending,
			Currency:      req.Currency,

			Subtotal:     subtotal,
			Discount:     discount,
			ShippingCost: shipping,
			Total:        subtotal.Sub(discount).Add(shipping),

			PromoCodeID:    promoID,
			ShippingMethod: req.ShippingMethod,
			Shipping:       req.Shipping,
			Notes:          req.Notes,

			Items: snapshotItems(res.Items),
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return errors.Wrap(err, "insert order")
		}

		if promoID != nil {
			if err := tx.IncrementPromoUses(ctx, *promoID); err != nil {
				return errors.Wrap(err, "increment promo uses")
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// lockedCatalog is a catalog.Reader over rows already locked by the checkout
// transaction. Entities missing from the maps were not found at lock time.
type lockedCatalog struct {
	products   map[int64]*catalog.Product
	variations map[stockKey]*catalog.Variation
}

func (c *lockedCatalog) Product(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (c *lockedCatalog) Variation(_ context.Context, productID, variationID int64) (*catalog.Variation, error) {
	v, ok := c.variations[stockKey{productID: productID, variationID: variationID}]
	if !ok {
		return nil, catalog.ErrVariationNotFound
	}
	return v, nil
}

// lockCatalogRows acquires row locks on every product and variation the cart
// references. Distinct IDs are locked in ascending order — products first,
// then variations — so two concurrent checkouts over overlapping carts
// always acquire locks in the same global order and cannot deadlock each
// other. Missing entities are left out of the result; the validator reports
// them per item.
func lockCatalogRows(ctx context.Context, tx Tx, items []LineItem) (*lockedCatalog, error) {
	productIDs := make([]int64, 0, len(items))
	seenProducts := make(map[int64]struct{}, len(items))
	variationKeys := make([]stockKey, 0, len(items))
	seenVariations := make(map[stockKey]struct{}, len(items))

	for _, item := range items {
		if _, ok := seenProducts[item.ProductID]; !ok {
			seenProducts[item.ProductID] = struct{}{}
			productIDs = append(productIDs, item.ProductID)
		}
		if item.VariationID != 0 {
			key := stockKey{productID: item.ProductID, variationID: item.VariationID}
			if _, ok := seenVariations[key]; !ok {
				seenVariations[key] = struct{}{}
				variationKeys = append(variationKeys, key)
			}
		}
	}

	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })
	sort.Slice(variationKeys, func(i, j int) bool {
		if variationKeys[i].productID != variationKeys[j].productID {
			return variationKeys[i].productID < variationKeys[j].productID
		}
		return variationKeys[i].variationID < variationKeys[j].variationID
	})

	locked := &lockedCatalog{
		products:   make(map[int64]*catalog.Product, len(productIDs)),
		variations: make(map[stockKey]*catalog.Variation, len(variationKeys)),
	}

	for _, id := range productIDs {
		p, err := tx.ProductForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				continue
			}
			return nil, errors.Wrapf(err, "lock product %d", id)
		}
		locked.products[id] = p
	}

	for _, key := range variationKeys {
		if _, ok := locked.products[key.productID]; !ok {
			continue
		}
		v, err := tx.VariationForUpdate(ctx, key.productID, key.variationID)
		if err != nil {
			if errors.Is(err, catalog.ErrVariationNotFound) {
				continue
			}
			return nil, errors.Wrapf(err, "lock variation %d", key.variationID)
		}
		locked.variations[key] = v
	}

	return locked, nil
}

// reserveStock decrements the stock counter behind every validated item —
// the variation's counter when a variation was selected, else the
// product's. Counters are written once per distinct product/variation even
// when several line items draw on the same one. Products with stock
// tracking disabled are skipped entirely.
func reserveStock(ctx context.Context, tx Tx, items []ValidatedItem) error {
	remaining := make(map[stockKey]int)
	kind := make(map[stockKey]*ValidatedItem)

	for i := range items {
		item := &items[i]
		if !item.Product.TrackStock {
			continue
		}
		key := stockKey{productID: item.Product.ID}
		if item.Variation != nil {
			key.variationID = item.Variation.ID
		}
		if _, ok := remaining[key]; !ok {
			if item.Variation != nil {
				remaining[key] = item.Variation.StockQuantity
			} else {
				remaining[key] = item.Product.StockQuantity
			}
			kind[key] = item
		}
		remaining[key] -= item.Quantity
	}

	for key, qty := range remaining {
		item := kind[key]
		if item.Variation != nil {
			if err := tx.SetVariationStock(ctx, item.Variation.ID, qty); err != nil {
				return errors.Wrapf(err, "update stock for variation %d", item.Variation.ID)
			}
			continue
		}
		if err := tx.SetProductStock(ctx, item.Product.ID, qty); err != nil {
			return errors.Wrapf(err, "update stock for product %d", item.Product.ID)
		}
	}

	return nil
}

// snapshotItems freezes validated items into order-item snapshots. The
// copied fields are never recomputed, even if the catalog changes later.
func snapshotItems(items []ValidatedItem) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		productID := item.Product.ID
		snap := Item{
			ProductID:   &productID,
			ProductName: item.Product.Name,
			ProductSKU:  item.Product.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Round(2),
			Subtotal:    item.Subtotal.Round(2),
		}
		if item.Variation != nil {
			variationID := item.Variation.ID
			snap.VariationID = &variationID
			snap.VariationName = item.Variation.Name
			snap.VariationValue = item.Variation.Value
		}
		out[i] = snap
	}
	return out
}
