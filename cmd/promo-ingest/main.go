// Command promo-ingest bulk-imports voucher promo codes from gzipped code
// dumps. A code is accepted when it appears in at least two of the dump
// files; accepted codes are upserted as single-use vouchers carrying a
// flag-configured discount rule.
//
// The dumps are far too large to hold in memory, so ingestion runs in two
// streaming passes: pass 1 builds one bloom filter per file, pass 2
// re-streams each file and tests codes against the other files' filters.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/zimmart/order-engine/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	numFiles      = 3
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
)

const upsertVoucherSQL = `INSERT INTO promo_codes (
		code, description, kind, active,
		value_usd, value_zwl, value_zar,
		max_uses
	) VALUES (UPPER($1), $2, $3, TRUE, $4, $5, $6, $7)
	ON CONFLICT (code) DO UPDATE SET
		description = EXCLUDED.description,
		kind = EXCLUDED.kind,
		value_usd = EXCLUDED.value_usd,
		value_zwl = EXCLUDED.value_zwl,
		value_zar = EXCLUDED.value_zar,
		max_uses = EXCLUDED.max_uses`

// voucherRule is the discount applied to every ingested code.
type voucherRule struct {
	kind        string
	valueUSD    decimal.Decimal
	valueZWL    decimal.NullDecimal
	valueZAR    decimal.NullDecimal
	maxUses     int
	description string
}

// fileResult holds candidate codes found in a single file during pass 2.
type fileResult struct {
	candidates map[string]uint
}

func main() {
	var (
		dataDir     string
		databaseURL string
		kind        string
		valueUSD    string
		valueZWL    string
		valueZAR    string
		maxUses     int
		description string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing voucherbaseN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&kind, "kind", "percentage", "discount kind: percentage or fixed_amount")
	flag.StringVar(&valueUSD, "value-usd", "10", "discount magnitude in USD")
	flag.StringVar(&valueZWL, "value-zwl", "", "discount magnitude in ZWL (empty: no ZWL discount)")
	flag.StringVar(&valueZAR, "value-zar", "", "discount magnitude in ZAR (empty: no ZAR discount)")
	flag.IntVar(&maxUses, "max-uses", 1, "usage cap per code (0 = unlimited)")
	flag.StringVar(&description, "description", "Voucher code", "description stored with each code")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	rule, err := parseRule(kind, valueUSD, valueZWL, valueZAR, maxUses, description)
	if err != nil {
		slog.Error("invalid discount rule", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, rule); err != nil {
		slog.Error("promo ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promo ingest completed successfully")
}

func parseRule(kind, valueUSD, valueZWL, valueZAR string, maxUses int, description string) (voucherRule, error) {
	if kind != "percentage" && kind != "fixed_amount" {
		return voucherRule{}, errors.Errorf("unsupported kind %q", kind)
	}

	rule := voucherRule{kind: kind, maxUses: maxUses, description: description}

	var err error
	if rule.valueUSD, err = decimal.NewFromString(valueUSD); err != nil {
		return voucherRule{}, errors.Wrap(err, "parse --value-usd")
	}
	if valueZWL != "" {
		d, err := decimal.NewFromString(valueZWL)
		if err != nil {
			return voucherRule{}, errors.Wrap(err, "parse --value-zwl")
		}
		rule.valueZWL = decimal.NewNullDecimal(d)
	}
	if valueZAR != "" {
		d, err := decimal.NewFromString(valueZAR)
		if err != nil {
			return voucherRule{}, errors.Wrap(err, "parse --value-zar")
		}
		rule.valueZAR = decimal.NewNullDecimal(d)
	}

	return rule, nil
}

func run(ctx context.Context, dataDir, databaseURL string, rule voucherRule) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("voucherbase%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: Build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: Find candidate codes appearing in 2+ files.
	slog.Info("pass 2: finding candidate codes")

	validCodes, err := findValidCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find valid codes")
	}

	slog.Info("valid codes found", slog.Int("count", len(validCodes)))

	if len(validCodes) == 0 {
		slog.Info("no valid codes to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeVouchers(ctx, pool, validCodes, rule); err != nil {
		return errors.Wrap(err, "write vouchers to database")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(code string) {
			if len(code) >= minCodeLen && len(code) <= maxCodeLen {
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress",
						slog.Int("file", idx+1),
						slog.Uint64("codes", count),
					)
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_codes", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findValidCodes re-streams each file and checks codes against OTHER files'
// bloom filters. A code is valid if it appears in 2 or more files.
func findValidCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all files.
	merged := make(map[string]uint)
	for _, r := range results {
		for code, mask := range r.candidates {
			merged[code] |= mask
		}
	}

	// Keep codes appearing in 2+ files.
	var valid []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			valid = append(valid, code)
		}
	}

	return valid, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(code string) {
			if len(code) < minCodeLen || len(code) > maxCodeLen {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("codes", count),
				)
			}

			// Check if this code appears in any OTHER file's bloom filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(code) {
					candidates[code] |= fileBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_codes", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates}
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeVouchers upserts all accepted voucher codes with the configured rule.
func writeVouchers(ctx context.Context, pool *pgxpool.Pool, codes []string, rule voucherRule) error {
	slog.Info("writing vouchers to database",
		slog.Int("count", len(codes)),
		slog.String("kind", rule.kind),
	)

	for i, code := range codes {
		if _, err := pool.Exec(ctx, upsertVoucherSQL,
			code, rule.description, rule.kind,
			rule.valueUSD, rule.valueZWL, rule.valueZAR,
			rule.maxUses,
		); err != nil {
			return errors.Wrapf(err, "upsert voucher %s", code)
		}

		if (i+1)%100 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}

	return nil
}
