package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promokit/coupon-service/internal/domain/cart"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func intPtr(v int) *int { return &v }

func cartWise(threshold, discount string) *Coupon {
	return &Coupon{
		ID:        "c1",
		Type:      TypeCartWise,
		ExpiresAt: time.Now().Add(time.Hour),
		CartWise:  &CartWiseDetails{Threshold: d(threshold), Discount: d(discount)},
	}
}

func productWise(productID, discount string) *Coupon {
	return &Coupon{
		ID:          "p1",
		Type:        TypeProductWise,
		ExpiresAt:   time.Now().Add(time.Hour),
		ProductWise: &ProductWiseDetails{ProductID: productID, Discount: d(discount)},
	}
}

func TestEvaluate_CartWise(t *testing.T) {
	tests := []struct {
		name         string
		coupon       *Coupon
		items        []cart.Item
		wantDiscount decimal.Decimal
		wantApplies  bool
	}{
		{
			name:   "total above threshold",
			coupon: cartWise("100", "10"),
			items: []cart.Item{
				{ProductID: "a", Price: d("60"), Quantity: 2},
			},
			wantDiscount: d("12"),
			wantApplies:  true,
		},
		{
			name:   "total exactly at threshold is inclusive",
			coupon: cartWise("100", "10"),
			items: []cart.Item{
				{ProductID: "a", Price: d("50"), Quantity: 2},
			},
			wantDiscount: d("10"),
			wantApplies:  true,
		},
		{
			name:   "total below threshold does not apply",
			coupon: cartWise("100", "10"),
			items: []cart.Item{
				{ProductID: "a", Price: d("99.99"), Quantity: 1},
			},
			wantApplies: false,
		},
		{
			name:   "fractional percentage rounds to cents",
			coupon: cartWise("0", "33.33"),
			items: []cart.Item{
				{ProductID: "a", Price: d("10.01"), Quantity: 1},
			},
			// 10.01 * 33.33 / 100 = 3.336333 -> 3.34
			wantDiscount: d("3.34"),
			wantApplies:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := cart.Cart{Items: tt.items}.TotalPrice()
			got, ok := Evaluate(tt.coupon, tt.items, total)

			require.Equal(t, tt.wantApplies, ok)
			if !tt.wantApplies {
				return
			}
			assert.Equal(t, tt.coupon.ID, got.CouponID)
			assert.Equal(t, TypeCartWise, got.Type)
			assert.True(t, tt.wantDiscount.Equal(got.Discount),
				"expected discount %s, got %s", tt.wantDiscount, got.Discount)
			assert.Empty(t, got.FreeItems)
		})
	}
}

func TestEvaluate_ProductWise(t *testing.T) {
	items := []cart.Item{
		{ProductID: "a", Price: d("40"), Quantity: 2},
		{ProductID: "b", Price: d("25"), Quantity: 4},
	}
	total := cart.Cart{Items: items}.TotalPrice()

	t.Run("discount computed from the matched line only", func(t *testing.T) {
		got, ok := Evaluate(productWise("b", "20"), items, total)

		require.True(t, ok)
		// 25 * 4 * 20% = 20, independent of product a's line.
		assert.True(t, d("20").Equal(got.Discount))
		require.Len(t, got.Allocations, 1)
		assert.Equal(t, "b", got.Allocations[0].ProductID)
		assert.True(t, d("20").Equal(got.Allocations[0].Amount))
	})

	t.Run("product absent from cart does not apply", func(t *testing.T) {
		_, ok := Evaluate(productWise("missing", "20"), items, total)
		assert.False(t, ok)
	})
}

func TestEvaluate_BuyXGetY(t *testing.T) {
	tests := []struct {
		name         string
		details      *BuyXGetYDetails
		items        []cart.Item
		wantApplies  bool
		wantDiscount decimal.Decimal
		wantFree     []FreeItem
	}{
		{
			name: "repetitions limited by buy quantity",
			details: &BuyXGetYDetails{
				BuyProducts:     []ProductQuantity{{ProductID: "a", Quantity: 2}},
				GetProducts:     []ProductQuantity{{ProductID: "b", Quantity: 1}},
				RepetitionLimit: intPtr(3),
			},
			items: []cart.Item{
				{ProductID: "a", Price: d("5"), Quantity: 5},
				{ProductID: "b", Price: d("10"), Quantity: 1},
			},
			// floor(5/2)=2 repetitions, 2 free b at cart price 10.
			wantApplies:  true,
			wantDiscount: d("20"),
			wantFree:     []FreeItem{{ProductID: "b", Quantity: 2, UnitPrice: d("10")}},
		},
		{
			name: "repetitions limited by the repetition limit",
			details: &BuyXGetYDetails{
				BuyProducts:     []ProductQuantity{{ProductID: "a", Quantity: 2}},
				GetProducts:     []ProductQuantity{{ProductID: "b", Quantity: 1, UnitPrice: d("8")}},
				RepetitionLimit: intPtr(3),
			},
			items: []cart.Item{
				{ProductID: "a", Price: d("5"), Quantity: 7},
			},
			// floor(7/2)=3 capped at 3; b absent, valued at the coupon price.
			wantApplies:  true,
			wantDiscount: d("24"),
			wantFree:     []FreeItem{{ProductID: "b", Quantity: 3, UnitPrice: d("8")}},
		},
		{
			name: "nil repetition limit is unbounded",
			details: &BuyXGetYDetails{
				BuyProducts: []ProductQuantity{{ProductID: "a", Quantity: 1}},
				GetProducts: []ProductQuantity{{ProductID: "b", Quantity: 1}},
			},
			items: []cart.Item{
				{ProductID: "a", Price: d("1"), Quantity: 9},
				{ProductID: "b", Price: d("2"), Quantity: 1},
			},
			wantApplies:  true,
			wantDiscount: d("18"),
			wantFree:     []FreeItem{{ProductID: "b", Quantity: 9, UnitPrice: d("2")}},
		},
		{
			name: "missing buy product does not apply",
			details: &BuyXGetYDetails{
				BuyProducts: []ProductQuantity{
					{ProductID: "a", Quantity: 1},
					{ProductID: "missing", Quantity: 1},
				},
				GetProducts: []ProductQuantity{{ProductID: "b", Quantity: 1}},
			},
			items: []cart.Item{
				{ProductID: "a", Price: d("5"), Quantity: 3},
				{ProductID: "b", Price: d("10"), Quantity: 1},
			},
			wantApplies: false,
		},
		{
			name: "buy quantity not reached does not apply",
			details: &BuyXGetYDetails{
				BuyProducts: []ProductQuantity{{ProductID: "a", Quantity: 5}},
				GetProducts: []ProductQuantity{{ProductID: "b", Quantity: 1}},
			},
			items: []cart.Item{
				{ProductID: "a", Price: d("5"), Quantity: 4},
				{ProductID: "b", Price: d("10"), Quantity: 1},
			},
			wantApplies: false,
		},
		{
			name: "zero-valued reward does not apply",
			details: &BuyXGetYDetails{
				BuyProducts: []ProductQuantity{{ProductID: "a", Quantity: 1}},
				GetProducts: []ProductQuantity{{ProductID: "b", Quantity: 1}},
			},
			items: []cart.Item{
				{ProductID: "a", Price: d("5"), Quantity: 1},
			},
			// b is absent and the coupon records no price for it.
			wantApplies: false,
		},
		{
			name: "multiple get products sum their contributions",
			details: &BuyXGetYDetails{
				BuyProducts:     []ProductQuantity{{ProductID: "a", Quantity: 2}},
				GetProducts: []ProductQuantity{
					{ProductID: "b", Quantity: 1},
					{ProductID: "c", Quantity: 2, UnitPrice: d("3")},
				},
				RepetitionLimit: intPtr(2),
			},
			items: []cart.Item{
				{ProductID: "a", Price: d("5"), Quantity: 4},
				{ProductID: "b", Price: d("10"), Quantity: 1},
			},
			// 2 repetitions: 2 free b at 10 + 4 free c at 3 = 32.
			wantApplies:  true,
			wantDiscount: d("32"),
			wantFree: []FreeItem{
				{ProductID: "b", Quantity: 2, UnitPrice: d("10")},
				{ProductID: "c", Quantity: 4, UnitPrice: d("3")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coupon{
				ID:        "bx1",
				Type:      TypeBuyXGetY,
				ExpiresAt: time.Now().Add(time.Hour),
				BuyXGetY:  tt.details,
			}
			total := cart.Cart{Items: tt.items}.TotalPrice()
			got, ok := Evaluate(c, tt.items, total)

			require.Equal(t, tt.wantApplies, ok)
			if !tt.wantApplies {
				return
			}
			assert.True(t, tt.wantDiscount.Equal(got.Discount),
				"expected discount %s, got %s", tt.wantDiscount, got.Discount)
			require.Len(t, got.FreeItems, len(tt.wantFree))
			for i, want := range tt.wantFree {
				assert.Equal(t, want.ProductID, got.FreeItems[i].ProductID)
				assert.Equal(t, want.Quantity, got.FreeItems[i].Quantity)
				assert.True(t, want.UnitPrice.Equal(got.FreeItems[i].UnitPrice),
					"free item %d: expected unit price %s, got %s", i, want.UnitPrice, got.FreeItems[i].UnitPrice)
			}
		})
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	c := &Coupon{
		ID:        "bx1",
		Type:      TypeBuyXGetY,
		ExpiresAt: time.Now().Add(time.Hour),
		BuyXGetY: &BuyXGetYDetails{
			BuyProducts:     []ProductQuantity{{ProductID: "a", Quantity: 2}},
			GetProducts:     []ProductQuantity{{ProductID: "b", Quantity: 1}},
			RepetitionLimit: intPtr(3),
		},
	}
	items := []cart.Item{
		{ProductID: "a", Price: d("5"), Quantity: 5},
		{ProductID: "b", Price: d("10"), Quantity: 1},
	}
	total := cart.Cart{Items: items}.TotalPrice()

	first, ok1 := Evaluate(c, items, total)
	second, ok2 := Evaluate(c, items, total)

	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first, second)
	// The input cart is untouched.
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestEvaluate_UnknownType(t *testing.T) {
	c := &Coupon{ID: "x", Type: Type("bogus")}
	_, ok := Evaluate(c, nil, decimal.Zero)
	assert.False(t, ok)
}
