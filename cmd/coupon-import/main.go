// Command coupon-import bulk-loads coupon dumps into the database.
//
// Each input file is a gzip-compressed JSONL file where every line is one
// coupon in the API wire format. Files are decoded concurrently; a bloom
// filter screens out coupon IDs that were already imported so re-running the
// import against the same dumps is cheap.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/promokit/coupon-service/internal/domain/coupon"
	"github.com/promokit/coupon-service/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

type productQuantityJSON struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type couponJSON struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Details struct {
		Threshold       *decimal.Decimal      `json:"threshold"`
		Discount        *decimal.Decimal      `json:"discount"`
		ProductID       *string               `json:"product_id"`
		BuyProducts     []productQuantityJSON `json:"buy_products"`
		GetProducts     []productQuantityJSON `json:"get_products"`
		RepetitionLimit *int                  `json:"repetition_limit"`
	} `json:"details"`
	ExpiryDate time.Time `json:"expiryDate"`
}

func (j *couponJSON) toDomain() (*coupon.Coupon, error) {
	id := j.ID
	if id == "" {
		id = uuid.New().String()
	}
	c := &coupon.Coupon{
		ID:        id,
		Type:      coupon.Type(j.Type),
		ExpiresAt: j.ExpiryDate,
	}

	switch c.Type {
	case coupon.TypeCartWise:
		if j.Details.Threshold == nil || j.Details.Discount == nil {
			return nil, errors.New("cart-wise coupon requires threshold and discount")
		}
		c.CartWise = &coupon.CartWiseDetails{
			Threshold: *j.Details.Threshold,
			Discount:  *j.Details.Discount,
		}
	case coupon.TypeProductWise:
		if j.Details.ProductID == nil || j.Details.Discount == nil {
			return nil, errors.New("product-wise coupon requires product_id and discount")
		}
		c.ProductWise = &coupon.ProductWiseDetails{
			ProductID: *j.Details.ProductID,
			Discount:  *j.Details.Discount,
		}
	case coupon.TypeBuyXGetY:
		c.BuyXGetY = &coupon.BuyXGetYDetails{
			BuyProducts:     toProductQuantities(j.Details.BuyProducts),
			GetProducts:     toProductQuantities(j.Details.GetProducts),
			RepetitionLimit: j.Details.RepetitionLimit,
		}
	default:
		return nil, errors.Errorf("unknown coupon type %q", j.Type)
	}

	if err := coupon.ValidateFields(c); err != nil {
		return nil, err
	}
	return c, nil
}

func toProductQuantities(in []productQuantityJSON) []coupon.ProductQuantity {
	out := make([]coupon.ProductQuantity, len(in))
	for i, p := range in {
		out[i] = coupon.ProductQuantity{
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			UnitPrice: p.UnitPrice,
		}
	}
	return out
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing coupons*.jsonl.gz dump files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "coupons*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob dump files")
	}
	if len(files) == 0 {
		return errors.Errorf("no coupons*.jsonl.gz files found in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewCouponRepository(pool)

	// Decode files concurrently, write sequentially.
	coupons := make(chan *coupon.Coupon, 1024)

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(decodeFile(gctx, f, coupons))
	}
	go func() {
		_ = g.Wait()
		close(coupons)
	}()

	var inserted, skipped uint64
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	for c := range coupons {
		if seen.TestString(c.ID) {
			skipped++
			continue
		}
		seen.AddString(c.ID)

		if err := repo.Create(ctx, c); err != nil {
			return errors.Wrapf(err, "insert coupon %s", c.ID)
		}
		inserted++
		if inserted%progressEvery == 0 {
			slog.Info("import progress", slog.Uint64("inserted", inserted))
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("import finished",
		slog.Uint64("inserted", inserted),
		slog.Uint64("duplicates_skipped", skipped),
	)
	return nil
}

// decodeFile streams one gzipped JSONL dump and sends valid coupons to out.
// Lines that fail to decode or validate are counted and skipped.
func decodeFile(ctx context.Context, path string, out chan<- *coupon.Coupon) func() error {
	return func() error {
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

		var total, invalid uint64
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}
			total++

			var record couponJSON
			if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
				invalid++
				continue
			}
			c, err := record.toDomain()
			if err != nil {
				invalid++
				continue
			}

			select {
			case out <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("file decoded",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("lines", total),
			slog.Uint64("invalid", invalid),
		)
		return nil
	}
}
