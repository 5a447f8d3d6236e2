package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zimmart/order-engine/internal/domain/catalog"
	"github.com/zimmart/order-engine/internal/domain/checkout"
	"github.com/zimmart/order-engine/internal/domain/promo"
)

const (
	getProductForUpdateSQL   = getProductSQL + ` FOR UPDATE`
	getVariationForUpdateSQL = getVariationSQL + ` FOR UPDATE`
	getPromoForUpdateSQL     = getPromoByCodeSQL + ` FOR UPDATE`

	setProductStockSQL = `UPDATE products
		SET stock_quantity = $2, updated_at = now() WHERE id = $1`

	setVariationStockSQL = `UPDATE product_variations
		SET stock_quantity = $2 WHERE id = $1`

	incrementPromoUsesSQL = `UPDATE promo_codes
		SET used_count = used_count + 1 WHERE id = $1`

	orderNumberExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE number = $1)`

	insertOrderSQL = `INSERT INTO orders (
			number, user_id, status, payment_status, currency,
			subtotal_usd, subtotal_zwl, subtotal_zar,
			discount_usd, discount_zwl, discount_zar,
			shipping_cost_usd, shipping_cost_zwl, shipping_cost_zar,
			total_usd, total_zwl, total_zar,
			promo_code_id, shipping_method, notes,
			shipping_first_name, shipping_last_name, shipping_email, shipping_phone,
			shipping_address_line1, shipping_address_line2, shipping_city,
			shipping_state, shipping_postal_code, shipping_country
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14,
			$15, $16, $17,
			$18, $19, $20,
			$21, $22, $23, $24,
			$25, $26, $27,
			$28, $29, $30
		) RETURNING id, created_at`

	insertOrderItemSQL = `INSERT INTO order_items (
			order_id, product_id, variation_id,
			product_name, product_sku, variation_name, variation_value,
			quantity,
			unit_price_usd, unit_price_zwl, unit_price_zar,
			subtotal_usd, subtotal_zwl, subtotal_zar
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		) RETURNING id`
)

var _ checkout.Store = (*Store)(nil)

// Store runs checkout transactions. Every ForUpdate read inside the
// transaction takes a row lock held until commit or rollback.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn inside a single database transaction. An error from fn rolls
// the transaction back and is returned unchanged.
func (s *Store) InTx(ctx context.Context, fn func(tx checkout.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&storeTx{tx: tx})
	})
}

var _ checkout.Tx = (*storeTx)(nil)

// storeTx is the transactional surface of one checkout attempt.
type storeTx struct {
	tx pgx.Tx
}

func (t *storeTx) ProductForUpdate(ctx context.Context, id int64) (*catalog.Product, error) {
	rows, err := t.tx.Query(ctx, getProductForUpdateSQL, id)
	if err != nil {
		return nil, fmt.Errorf("locking product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("locking product %d: %w", id, err)
	}
	return &p, nil
}

func (t *storeTx) VariationForUpdate(ctx context.Context, productID, variationID int64) (*catalog.Variation, error) {
	rows, err := t.tx.Query(ctx, getVariationForUpdateSQL, productID, variationID)
	if err != nil {
		return nil, fmt.Errorf("locking variation %d: %w", variationID, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrVariationNotFound
		}
		return nil, fmt.Errorf("locking variation %d: %w", variationID, err)
	}
	return &v, nil
}

func (t *storeTx) SetProductStock(ctx context.Context, id int64, quantity int) error {
	if _, err := t.tx.Exec(ctx, setProductStockSQL, id, quantity); err != nil {
		return fmt.Errorf("setting stock of product %d: %w", id, err)
	}
	return nil
}

func (t *storeTx) SetVariationStock(ctx context.Context, id int64, quantity int) error {
	if _, err := t.tx.Exec(ctx, setVariationStockSQL, id, quantity); err != nil {
		return fmt.Errorf("setting stock of variation %d: %w", id, err)
	}
	return nil
}

func (t *storeTx) PromoForUpdate(ctx context.Context, code string) (*promo.Code, error) {
	rows, err := t.tx.Query(ctx, getPromoForUpdateSQL, code)
	if err != nil {
		return nil, fmt.Errorf("locking promo code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanPromoCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("locking promo code %q: %w", code, err)
	}
	return &c, nil
}

func (t *storeTx) IncrementPromoUses(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, incrementPromoUsesSQL, id); err != nil {
		return fmt.Errorf("incrementing uses of promo %d: %w", id, err)
	}
	return nil
}

func (t *storeTx) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	if err := t.tx.QueryRow(ctx, orderNumberExistsSQL, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking order number %q: %w", number, err)
	}
	return exists, nil
}

// InsertOrder persists the order and its item snapshots, filling o.ID,
// o.CreatedAt, and the item IDs.
func (t *storeTx) InsertOrder(ctx context.Context, o *checkout.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL,
		o.Number, o.UserID, o.Status, o.PaymentStatus, o.Currency,
		o.Subtotal.USD, o.Subtotal.ZWL, o.Subtotal.ZAR,
		o.Discount.USD, o.Discount.ZWL, o.Discount.ZAR,
		o.ShippingCost.USD, o.ShippingCost.ZWL, o.ShippingCost.ZAR,
		o.Total.USD, o.Total.ZWL, o.Total.ZAR,
		o.PromoCodeID, o.ShippingMethod, o.Notes,
		o.Shipping.FirstName, o.Shipping.LastName, o.Shipping.Email, o.Shipping.Phone,
		o.Shipping.AddressLine1, o.Shipping.AddressLine2, o.Shipping.City,
		o.Shipping.State, o.Shipping.PostalCode, o.Shipping.Country,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.Number, err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		err := t.tx.QueryRow(ctx, insertOrderItemSQL,
			o.ID, it.ProductID, it.VariationID,
			it.ProductName, it.ProductSKU, it.VariationName, it.VariationValue,
			it.Quantity,
			it.UnitPrice.USD, it.UnitPrice.ZWL, it.UnitPrice.ZAR,
			it.Subtotal.USD, it.Subtotal.ZWL, it.Subtotal.ZAR,
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("inserting item of order %q: %w", o.Number, err)
		}
	}

	return nil
}
