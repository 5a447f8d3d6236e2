package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zimmart/order-engine/internal/domain/checkout"
)

const (
	orderColumns = `id, number, user_id, status, payment_status, currency,
		subtotal_usd, subtotal_zwl, subtotal_zar,
		discount_usd, discount_zwl, discount_zar,
		shipping_cost_usd, shipping_cost_zwl, shipping_cost_zar,
		total_usd, total_zwl, total_zar,
		promo_code_id, shipping_method, notes,
		shipping_first_name, shipping_last_name, shipping_email, shipping_phone,
		shipping_address_line1, shipping_address_line2, shipping_city,
		shipping_state, shipping_postal_code, shipping_country,
		created_at`

	getOrderByNumberSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE number = $1`

	orderItemColumns = `id, product_id, variation_id,
		product_name, product_sku, variation_name, variation_value,
		quantity,
		unit_price_usd, unit_price_zwl, unit_price_zar,
		subtotal_usd, subtotal_zwl, subtotal_zar`

	listOrderItemsSQL = `SELECT ` + orderItemColumns + `
		FROM order_items WHERE order_id = $1 ORDER BY id`
)

var _ checkout.Repository = (*OrderRepository)(nil)

// OrderRepository provides read access to persisted orders. Order creation
// goes through the checkout transaction (Store), never through here.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// ByNumber returns the order with its items, or checkout.ErrOrderNotFound.
func (r *OrderRepository) ByNumber(ctx context.Context, number string) (*checkout.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByNumberSQL, number)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}

	itemRows, err := r.pool.Query(ctx, listOrderItemsSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", number, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", number, err)
	}

	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (checkout.Order, error) {
	var o checkout.Order
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.Status, &o.PaymentStatus, &o.Currency,
		&o.Subtotal.USD, &o.Subtotal.ZWL, &o.Subtotal.ZAR,
		&o.Discount.USD, &o.Discount.ZWL, &o.Discount.ZAR,
		&o.ShippingCost.USD, &o.ShippingCost.ZWL, &o.ShippingCost.ZAR,
		&o.Total.USD, &o.Total.ZWL, &o.Total.ZAR,
		&o.PromoCodeID, &o.ShippingMethod, &o.Notes,
		&o.Shipping.FirstName, &o.Shipping.LastName, &o.Shipping.Email, &o.Shipping.Phone,
		&o.Shipping.AddressLine1, &o.Shipping.AddressLine2, &o.Shipping.City,
		&o.Shipping.State, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.CreatedAt,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (checkout.Item, error) {
	var it checkout.Item
	err := row.Scan(
		&it.ID, &it.ProductID, &it.VariationID,
		&it.ProductName, &it.ProductSKU, &it.VariationName, &it.VariationValue,
		&it.Quantity,
		&it.UnitPrice.USD, &it.UnitPrice.ZWL, &it.UnitPrice.ZAR,
		&it.Subtotal.USD, &it.Subtotal.ZWL, &it.Subtotal.ZAR,
	)
	return it, err
}
