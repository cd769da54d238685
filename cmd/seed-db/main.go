// Command seed-db creates the schema and inserts one sample coupon of each
// type, useful for local development and manual API testing.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/promokit/coupon-service/internal/domain/coupon"
	"github.com/promokit/coupon-service/internal/repository"
)

func main() {
	var databaseURL string

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

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seedCoupons(ctx, repository.NewCouponRepository(pool))
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository) error {
	expiry := time.Now().AddDate(1, 0, 0)
	limit := 2

	coupons := []*coupon.Coupon{
		{
			ID:        "seed-cart-wise",
			Type:      coupon.TypeCartWise,
			ExpiresAt: expiry,
			CartWise: &coupon.CartWiseDetails{
				Threshold: decimal.NewFromInt(100),
				Discount:  decimal.NewFromInt(10),
			},
		},
		{
			ID:        "seed-product-wise",
			Type:      coupon.TypeProductWise,
			ExpiresAt: expiry,
			ProductWise: &coupon.ProductWiseDetails{
				ProductID: "1",
				Discount:  decimal.NewFromInt(20),
			},
		},
		{
			ID:        "seed-bxgy",
			Type:      coupon.TypeBuyXGetY,
			ExpiresAt: expiry,
			BuyXGetY: &coupon.BuyXGetYDetails{
				BuyProducts: []coupon.ProductQuantity{
					{ProductID: "1", Quantity: 3},
					{ProductID: "2", Quantity: 3},
				},
				GetProducts: []coupon.ProductQuantity{
					{ProductID: "3", Quantity: 1, UnitPrice: decimal.NewFromInt(25)},
				},
				RepetitionLimit: &limit,
			},
		},
	}

	for _, c := range coupons {
		if err := repo.Create(ctx, c); err != nil {
			if errors.Is(err, coupon.ErrAlreadyExists) {
				slog.Info("coupon already seeded", slog.String("id", c.ID))
				continue
			}
			return errors.Wrapf(err, "insert coupon %s", c.ID)
		}
		slog.Info("seeded coupon", slog.String("id", c.ID), slog.String("type", string(c.Type)))
	}
	return nil
}
