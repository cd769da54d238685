package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/promokit/coupon-service/internal/domain/cart"
)

// Applier applies a single coupon, fetched by ID, to a cart and produces the
// resulting discounted cart.
type Applier struct {
	repo Repository
	now  func() time.Time
}

// NewApplier creates an Applier backed by the given repository.
func NewApplier(repo Repository) *Applier {
	return &Applier{repo: repo, now: time.Now}
}

// Apply fetches the coupon, rejects it when missing (ErrNotFound) or expired
// (ErrExpired) before any discount computation, evaluates it against the
// cart, and folds the evaluation into a new applied cart. The input cart is
// never mutated. A coupon that does not apply yields an unchanged cart with a
// zero discount.
func (a *Applier) Apply(ctx context.Context, couponID string, crt cart.Cart) (*cart.Applied, error) {
	c, err := a.repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coupon %q", couponID)
	}
	if c.Expired(a.now()) {
		return nil, ErrExpired
	}

	total := crt.TotalPrice()
	ev, ok := Evaluate(c, crt.Items, total)
	if !ok {
		ev = Evaluation{}
	}

	applied := fold(crt, ev)
	applied.TotalPrice = total.Round(2)
	applied.TotalDiscount = applied.TotalDiscount.Round(2)
	applied.FinalPrice = applied.TotalPrice.Sub(applied.TotalDiscount)
	return applied, nil
}

// fold is a pure reduction of an evaluation over a cart. It copies every line
// with a zero discount, then distributes the evaluation:
//
//   - cart-wise adds to the aggregate discount only.
//   - product-wise sets the matched line's discount.
//   - buy-x-get-y free items bump the quantity of an existing line, or append
//     a new zero-priced line carrying the free value as its discount. Either
//     way the free value is the unit price the evaluator resolved.
func fold(crt cart.Cart, ev Evaluation) *cart.Applied {
	items := make([]cart.AppliedItem, len(crt.Items))
	for i, it := range crt.Items {
		items[i] = cart.AppliedItem{
			ProductID: it.ProductID,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Discount:  decimal.Zero,
		}
	}

	totalDiscount := decimal.Zero
	switch ev.Type {
	case TypeCartWise:
		totalDiscount = ev.Discount

	case TypeProductWise:
		for _, al := range ev.Allocations {
			if idx := indexOfItem(items, al.ProductID); idx >= 0 {
				items[idx].Discount = al.Amount
			}
			totalDiscount = totalDiscount.Add(al.Amount)
		}

	case TypeBuyXGetY:
		for _, fi := range ev.FreeItems {
			value := fi.UnitPrice.Mul(decimal.NewFromInt(int64(fi.Quantity)))
			if idx := indexOfItem(items, fi.ProductID); idx >= 0 {
				items[idx].Quantity += fi.Quantity
			} else {
				items = append(items, cart.AppliedItem{
					ProductID: fi.ProductID,
					Price:     decimal.Zero,
					Quantity:  fi.Quantity,
					Discount:  value,
				})
			}
			totalDiscount = totalDiscount.Add(value)
		}
	}

	return &cart.Applied{
		Items:         items,
		TotalDiscount: totalDiscount,
	}
}

func indexOfItem(items []cart.AppliedItem, productID string) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
