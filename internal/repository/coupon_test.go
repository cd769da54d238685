package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/promokit/coupon-service/internal/domain/coupon"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func intPtr(v int) *int { return &v }

// setupRepo starts a throwaway PostgreSQL container, runs migrations, and
// returns a repository bound to it.
func setupRepo(t *testing.T) *CouponRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("coupons"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	return NewCouponRepository(pool)
}

func TestCouponRepository_RoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	expiry := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	coupons := []*coupon.Coupon{
		{
			ID: uuid.New().String(), Type: coupon.TypeCartWise, ExpiresAt: expiry,
			CartWise: &coupon.CartWiseDetails{Threshold: d("100"), Discount: d("10")},
		},
		{
			ID: uuid.New().String(), Type: coupon.TypeProductWise, ExpiresAt: expiry,
			ProductWise: &coupon.ProductWiseDetails{ProductID: "p1", Discount: d("25")},
		},
		{
			ID: uuid.New().String(), Type: coupon.TypeBuyXGetY, ExpiresAt: expiry,
			BuyXGetY: &coupon.BuyXGetYDetails{
				BuyProducts:     []coupon.ProductQuantity{{ProductID: "a", Quantity: 2}},
				GetProducts:     []coupon.ProductQuantity{{ProductID: "b", Quantity: 1, UnitPrice: d("8")}},
				RepetitionLimit: intPtr(3),
			},
		},
	}
	for _, c := range coupons {
		require.NoError(t, repo.Create(ctx, c))
	}

	t.Run("find by id preserves each variant", func(t *testing.T) {
		cw, err := repo.FindByID(ctx, coupons[0].ID)
		require.NoError(t, err)
		require.NotNil(t, cw.CartWise)
		assert.True(t, d("100").Equal(cw.CartWise.Threshold))
		assert.True(t, d("10").Equal(cw.CartWise.Discount))
		assert.True(t, expiry.Equal(cw.ExpiresAt))

		pw, err := repo.FindByID(ctx, coupons[1].ID)
		require.NoError(t, err)
		require.NotNil(t, pw.ProductWise)
		assert.Equal(t, "p1", pw.ProductWise.ProductID)

		bx, err := repo.FindByID(ctx, coupons[2].ID)
		require.NoError(t, err)
		require.NotNil(t, bx.BuyXGetY)
		require.Len(t, bx.BuyXGetY.BuyProducts, 1)
		require.Len(t, bx.BuyXGetY.GetProducts, 1)
		assert.True(t, d("8").Equal(bx.BuyXGetY.GetProducts[0].UnitPrice))
		require.NotNil(t, bx.BuyXGetY.RepetitionLimit)
		assert.Equal(t, 3, *bx.BuyXGetY.RepetitionLimit)
	})

	t.Run("unknown id returns ErrNotFound", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New().String())
		require.ErrorIs(t, err, coupon.ErrNotFound)
	})

	t.Run("list pages in storage order", func(t *testing.T) {
		page1, err := repo.List(ctx, 1, 2)
		require.NoError(t, err)
		assert.Len(t, page1, 2)

		page2, err := repo.List(ctx, 2, 2)
		require.NoError(t, err)
		assert.Len(t, page2, 1)
	})
}

func TestCouponRepository_UpdateDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	expiry := time.Now().Add(24 * time.Hour).UTC()

	c := &coupon.Coupon{
		ID: uuid.New().String(), Type: coupon.TypeCartWise, ExpiresAt: expiry,
		CartWise: &coupon.CartWiseDetails{Threshold: d("50"), Discount: d("5")},
	}
	require.NoError(t, repo.Create(ctx, c))

	c.CartWise.Discount = d("15")
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, d("15").Equal(got.CartWise.Discount))

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.FindByID(ctx, c.ID)
	require.ErrorIs(t, err, coupon.ErrNotFound)

	require.ErrorIs(t, repo.Update(ctx, c), coupon.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, c.ID), coupon.ErrNotFound)
}

func TestCouponRepository_FindNonExpired(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	expired := &coupon.Coupon{
		ID: uuid.New().String(), Type: coupon.TypeCartWise, ExpiresAt: now.Add(-time.Hour),
		CartWise: &coupon.CartWiseDetails{Threshold: d("0"), Discount: d("10")},
	}
	active := &coupon.Coupon{
		ID: uuid.New().String(), Type: coupon.TypeCartWise, ExpiresAt: now.Add(time.Hour),
		CartWise: &coupon.CartWiseDetails{Threshold: d("0"), Discount: d("20")},
	}
	require.NoError(t, repo.Create(ctx, expired))
	require.NoError(t, repo.Create(ctx, active))

	got, err := repo.FindNonExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)
}
