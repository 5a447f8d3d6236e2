// Command seed-db seeds the catalog, demo promo codes, and a storefront API
// key. It is idempotent: everything is upserted by its natural key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/zimmart/order-engine/internal/domain/auth"
	"github.com/zimmart/order-engine/internal/domain/money"
	"github.com/zimmart/order-engine/internal/storage/postgres"
)

type variationJSON struct {
	Name            string                `json:"name"`
	Value           string                `json:"value"`
	StockQuantity   int                   `json:"stock_quantity"`
	PriceAdjustment money.OptionalAmounts `json:"price_adjustment"`
}

type productJSON struct {
	SKU           string                `json:"sku"`
	Name          string                `json:"name"`
	TrackStock    bool                  `json:"track_stock"`
	StockQuantity int                   `json:"stock_quantity"`
	ListPrice     money.OptionalAmounts `json:"list_price"`
	SalePrice     money.OptionalAmounts `json:"sale_price"`
	Variations    []variationJSON       `json:"variations"`
}

const (
	upsertProductSQL = `INSERT INTO products (
			sku, name, active, track_stock, stock_quantity,
			list_price_usd, list_price_zwl, list_price_zar,
			sale_price_usd, sale_price_zwl, sale_price_zar
		) VALUES ($1, $2, TRUE, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			track_stock = EXCLUDED.track_stock,
			stock_quantity = EXCLUDED.stock_quantity,
			list_price_usd = EXCLUDED.list_price_usd,
			list_price_zwl = EXCLUDED.list_price_zwl,
			list_price_zar = EXCLUDED.list_price_zar,
			sale_price_usd = EXCLUDED.sale_price_usd,
			sale_price_zwl = EXCLUDED.sale_price_zwl,
			sale_price_zar = EXCLUDED.sale_price_zar,
			updated_at = now()
		RETURNING id`

	upsertVariationSQL = `INSERT INTO product_variations (
			product_id, name, value, active, stock_quantity,
			price_adjustment_usd, price_adjustment_zwl, price_adjustment_zar
		) VALUES ($1, $2, $3, TRUE, $4, $5, $6, $7)
		ON CONFLICT (product_id, name, value) DO UPDATE SET
			stock_quantity = EXCLUDED.stock_quantity,
			price_adjustment_usd = EXCLUDED.price_adjustment_usd,
			price_adjustment_zwl = EXCLUDED.price_adjustment_zwl,
			price_adjustment_zar = EXCLUDED.price_adjustment_zar`

	upsertPromoSQL = `INSERT INTO promo_codes (
			code, description, kind, active,
			value_usd, value_zwl, value_zar,
			min_order_amount_usd, min_order_amount_zwl, min_order_amount_zar,
			max_uses
		) VALUES (UPPER($1), $2, $3, TRUE, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			description = EXCLUDED.description,
			kind = EXCLUDED.kind,
			value_usd = EXCLUDED.value_usd,
			value_zwl = EXCLUDED.value_zwl,
			value_zar = EXCLUDED.value_zar,
			min_order_amount_usd = EXCLUDED.min_order_amount_usd,
			min_order_amount_zwl = EXCLUDED.min_order_amount_zwl,
			min_order_amount_zar = EXCLUDED.min_order_amount_zar,
			max_uses = EXCLUDED.max_uses`

	upsertAPIKeySQL = `INSERT INTO api_keys (key_hash, name, scopes, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (key_hash) DO UPDATE SET
			name = EXCLUDED.name,
			scopes = EXCLUDED.scopes,
			active = TRUE`
)

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "storefront API key to seed (or ZIMMART_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ZIMMART_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("ZIMMART_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or ZIMMART_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ZIMMART_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedPromoCodes(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promo codes")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		var productID int64
		err := pool.QueryRow(ctx, upsertProductSQL,
			p.SKU, p.Name, p.TrackStock, p.StockQuantity,
			p.ListPrice.USD, p.ListPrice.ZWL, p.ListPrice.ZAR,
			p.SalePrice.USD, p.SalePrice.ZWL, p.SalePrice.ZAR,
		).Scan(&productID)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.SKU)
		}

		for _, v := range p.Variations {
			if _, err := pool.Exec(ctx, upsertVariationSQL,
				productID, v.Name, v.Value, v.StockQuantity,
				v.PriceAdjustment.USD, v.PriceAdjustment.ZWL, v.PriceAdjustment.ZAR,
			); err != nil {
				return errors.Wrapf(err, "upsert variation %s/%s of product %s", v.Name, v.Value, p.SKU)
			}
		}

		slog.Info("upserted product",
			slog.String("sku", p.SKU),
			slog.String("name", p.Name),
			slog.Int("variations", len(p.Variations)),
		)
	}

	return nil
}

// demoPromo mirrors the upsertPromoSQL parameters.
type demoPromo struct {
	code        string
	description string
	kind        string
	value       money.OptionalAmounts
	minOrder    money.OptionalAmounts
	maxUses     int
}

func seedPromoCodes(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo promo codes")

	promos := []demoPromo{
		{
			code:        "WELCOME10",
			description: "Welcome: 10% off your order",
			kind:        "percentage",
			value: money.OptionalAmounts{
				USD: money.Some(dec("10")),
				ZWL: money.Some(dec("10")),
				ZAR: money.Some(dec("10")),
			},
		},
		{
			code:        "ZIMSAVE5",
			description: "USD 5 off orders of USD 20 or more",
			kind:        "fixed_amount",
			value:       money.OptionalAmounts{USD: money.Some(dec("5"))},
			minOrder:    money.OptionalAmounts{USD: money.Some(dec("20"))},
		},
		{
			code:        "HARARE25",
			description: "25% off, once per code",
			kind:        "percentage",
			value: money.OptionalAmounts{
				USD: money.Some(dec("25")),
				ZWL: money.Some(dec("25")),
				ZAR: money.Some(dec("25")),
			},
			maxUses: 1,
		},
	}

	for _, p := range promos {
		if _, err := pool.Exec(ctx, upsertPromoSQL,
			p.code, p.description, p.kind,
			p.value.USD, p.value.ZWL, p.value.ZAR,
			p.minOrder.USD, p.minOrder.ZWL, p.minOrder.ZAR,
			p.maxUses,
		); err != nil {
			return errors.Wrapf(err, "upsert promo code %s", p.code)
		}

		slog.Info("upserted promo code", slog.String("code", p.code), slog.String("description", p.description))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding storefront API key")

	keyHash := auth.NewVerifier(nil, []byte(pepper)).HashKey(apiKey)

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		keyHash, "Storefront key", []string{"checkout"},
	); err != nil {
		return errors.Wrap(err, "upsert storefront API key")
	}

	slog.Info("upserted API key", slog.String("name", "Storefront key"))

	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
