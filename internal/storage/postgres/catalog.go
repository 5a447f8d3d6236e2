package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zimmart/order-engine/internal/domain/catalog"
)

const (
	productColumns = `id, sku, name, active, track_stock, stock_quantity,
		list_price_usd, list_price_zwl, list_price_zar,
		sale_price_usd, sale_price_zwl, sale_price_zar`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE active ORDER BY id`

	getProductSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = $1`

	variationColumns = `id, product_id, name, value, active, stock_quantity,
		price_adjustment_usd, price_adjustment_zwl, price_adjustment_zar`

	getVariationSQL = `SELECT ` + variationColumns + `
		FROM product_variations WHERE id = $2 AND product_id = $1`

	listVariationsSQL = `SELECT ` + variationColumns + `
		FROM product_variations WHERE product_id = $1 ORDER BY id`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
// Inactive entities are returned by point reads so the validator can report
// them; List filters them out for public browsing.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns all active products ordered by ID.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Product returns a single product by its identifier.
func (r *CatalogRepository) Product(ctx context.Context, id int64) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// Variation returns a variation by ID scoped to its parent product.
func (r *CatalogRepository) Variation(ctx context.Context, productID, variationID int64) (*catalog.Variation, error) {
	rows, err := r.pool.Query(ctx, getVariationSQL, productID, variationID)
	if err != nil {
		return nil, fmt.Errorf("getting variation %d: %w", variationID, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrVariationNotFound
		}
		return nil, fmt.Errorf("getting variation %d: %w", variationID, err)
	}
	return &v, nil
}

// Variations returns all variations of the given product ordered by ID.
func (r *CatalogRepository) Variations(ctx context.Context, productID int64) ([]catalog.Variation, error) {
	rows, err := r.pool.Query(ctx, listVariationsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing variations of product %d: %w", productID, err)
	}
	return pgx.CollectRows(rows, scanVariation)
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Active, &p.TrackStock, &p.StockQuantity,
		&p.ListPrice.USD, &p.ListPrice.ZWL, &p.ListPrice.ZAR,
		&p.SalePrice.USD, &p.SalePrice.ZWL, &p.SalePrice.ZAR,
	)
	return p, err
}

func scanVariation(row pgx.CollectableRow) (catalog.Variation, error) {
	var v catalog.Variation
	err := row.Scan(
		&v.ID, &v.ProductID, &v.Name, &v.Value, &v.Active, &v.StockQuantity,
		&v.PriceAdjustment.USD, &v.PriceAdjustment.ZWL, &v.PriceAdjustment.ZAR,
	)
	return v, err
}
