package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zimmart/order-engine/internal/domain/promo"
)

const (
	promoColumns = `id, code, description, kind, active,
		value_usd, value_zwl, value_zar,
		min_order_amount_usd, min_order_amount_zwl, min_order_amount_zar,
		max_uses, used_count, valid_from, valid_until, created_at`

	getPromoByCodeSQL = `SELECT ` + promoColumns + `
		FROM promo_codes WHERE code = UPPER(TRIM($1))`
)

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository backed by PostgreSQL. Codes are
// stored upper-cased; the query normalizes the parameter the same way, so
// lookups are case-insensitive. Inactive and exhausted codes are returned
// as-is for the domain validation to classify.
type PromoRepository struct {
	pool *pgxpool.Pool
}

// NewPromoRepository returns a PromoRepository that uses the given pool.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

// FindByCode looks up a promo code, case-insensitively.
// Returns promo.ErrNotFound when no such code exists.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.Code, error) {
	rows, err := r.pool.Query(ctx, getPromoByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanPromoCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}
	return &c, nil
}

func scanPromoCode(row pgx.CollectableRow) (promo.Code, error) {
	var c promo.Code
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.Kind, &c.Active,
		&c.Value.USD, &c.Value.ZWL, &c.Value.ZAR,
		&c.MinOrderAmount.USD, &c.MinOrderAmount.ZWL, &c.MinOrderAmount.ZAR,
		&c.MaxUses, &c.UsedCount, &c.ValidFrom, &c.ValidUntil, &c.CreatedAt,
	)
	return c, err
}
