package coupon

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/promokit/coupon-service/internal/domain/cart"
)

var hundred = decimal.NewFromInt(100)

// Evaluation is the outcome of evaluating one coupon against one cart.
// Discount is the total monetary discount. Allocations attribute the discount
// to individual cart lines (product-wise only); FreeItems lists the free
// quantities granted by a buy-x-get-y coupon. An Evaluation is produced fresh
// per call and never persisted.
type Evaluation struct {
	CouponID    string
	Type        Type
	Discount    decimal.Decimal
	Allocations []Allocation
	FreeItems   []FreeItem
}

// Allocation attributes a share of the discount to a single cart line.
type Allocation struct {
	ProductID string
	Amount    decimal.Decimal
}

// FreeItem is a free quantity of a product granted by a buy-x-get-y coupon.
// UnitPrice is resolved at evaluation time: the cart line's price when the
// product is already in the cart, otherwise the price recorded on the coupon,
// otherwise zero.
type FreeItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Evaluate decides whether the coupon applies to the given cart and, if so,
// computes the discount. It is a pure function: no I/O, no mutation of its
// inputs. The caller passes the precomputed cart total so scanning many
// coupons does not recompute it per coupon.
//
// The second return value reports applicability; when false the Evaluation is
// the zero value.
func Evaluate(c *Coupon, items []cart.Item, cartTotal decimal.Decimal) (Evaluation, bool) {
	switch c.Type {
	case TypeCartWise:
		return evaluateCartWise(c, cartTotal)
	case TypeProductWise:
		return evaluateProductWise(c, items)
	case TypeBuyXGetY:
		return evaluateBuyXGetY(c, items)
	default:
		return Evaluation{}, false
	}
}

// evaluateCartWise applies when the cart total meets the threshold
// (inclusive). The discount is a percentage of the whole cart total.
func evaluateCartWise(c *Coupon, cartTotal decimal.Decimal) (Evaluation, bool) {
	d := c.CartWise
	if cartTotal.LessThan(d.Threshold) {
		return Evaluation{}, false
	}
	return Evaluation{
		CouponID: c.ID,
		Type:     TypeCartWise,
		Discount: percentOf(cartTotal, d.Discount),
	}, true
}

// evaluateProductWise applies when the named product is in the cart. Only the
// first matching line counts; the cart invariant is one line per product.
func evaluateProductWise(c *Coupon, items []cart.Item) (Evaluation, bool) {
	d := c.ProductWise
	it, ok := findItem(items, d.ProductID)
	if !ok {
		return Evaluation{}, false
	}
	lineTotal := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
	amount := percentOf(lineTotal, d.Discount)
	return Evaluation{
		CouponID:    c.ID,
		Type:        TypeProductWise,
		Discount:    amount,
		Allocations: []Allocation{{ProductID: d.ProductID, Amount: amount}},
	}, true
}

// evaluateBuyXGetY applies when every buy requirement is satisfied at least
// once and the granted free items carry a positive value. A reward with zero
// value (every free product priced at zero) is reported as not applicable.
func evaluateBuyXGetY(c *Coupon, items []cart.Item) (Evaluation, bool) {
	d := c.BuyXGetY
	repetitions := repetitionCount(d, items)
	if repetitions <= 0 {
		return Evaluation{}, false
	}

	free := make([]FreeItem, 0, len(d.GetProducts))
	discount := decimal.Zero
	for _, get := range d.GetProducts {
		qty := repetitions * get.Quantity
		price := resolveUnitPrice(items, get)
		free = append(free, FreeItem{
			ProductID: get.ProductID,
			Quantity:  qty,
			UnitPrice: price,
		})
		discount = discount.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}
	if !discount.IsPositive() {
		return Evaluation{}, false
	}

	return Evaluation{
		CouponID:  c.ID,
		Type:      TypeBuyXGetY,
		Discount:  discount.Round(2),
		FreeItems: free,
	}, true
}

// repetitionCount returns how many times the buy condition is met, capped by
// the repetition limit. Any required product absent from the cart yields
// zero. Buy products are required for applicability; get products are not.
func repetitionCount(d *BuyXGetYDetails, items []cart.Item) int {
	reps := math.MaxInt
	for _, buy := range d.BuyProducts {
		it, ok := findItem(items, buy.ProductID)
		if !ok {
			return 0
		}
		if k := it.Quantity / buy.Quantity; k < reps {
			reps = k
		}
	}
	if d.RepetitionLimit != nil && *d.RepetitionLimit < reps {
		reps = *d.RepetitionLimit
	}
	if reps == math.MaxInt {
		// No buy requirements and no limit: refuse the unbounded reward.
		return 0
	}
	return reps
}

// resolveUnitPrice picks the price used to value a free product: the cart
// line's price when present, else the price recorded on the coupon. Both
// absent leaves zero, a defined "no discount" outcome.
func resolveUnitPrice(items []cart.Item, get ProductQuantity) decimal.Decimal {
	if it, ok := findItem(items, get.ProductID); ok {
		return it.Price
	}
	return get.UnitPrice
}

func findItem(items []cart.Item, productID string) (cart.Item, bool) {
	for _, it := range items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return cart.Item{}, false
}

// percentOf returns pct percent of amount, rounded to 2 decimal places.
func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(2)
}
