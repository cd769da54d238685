// Package coupon implements the promotional coupon engine: the coupon model,
// the rule evaluator that decides whether a coupon applies to a cart, the
// scanner that finds every applicable coupon, and the applier that folds a
// coupon's discount into a cart.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon kinds.
type Type string

const (
	// TypeCartWise discounts the whole cart once its total crosses a threshold.
	TypeCartWise Type = "cart-wise"
	// TypeProductWise discounts a single named product's line total.
	TypeProductWise Type = "product-wise"
	// TypeBuyXGetY grants free quantities of designated products when the
	// required quantities of other products are in the cart.
	TypeBuyXGetY Type = "bxgy"
)

var (
	// ErrNotFound is returned when a coupon ID does not resolve to a record.
	ErrNotFound = errors.New("coupon not found")
	// ErrAlreadyExists is returned when creating a coupon with a taken ID.
	ErrAlreadyExists = errors.New("coupon already exists")
	// ErrExpired is returned when a coupon's expiry precedes the evaluation time.
	ErrExpired = errors.New("coupon expired")
)

// CartWiseDetails configures a cart-wise coupon. Discount is a percentage of
// the cart total, 0-100.
type CartWiseDetails struct {
	Threshold decimal.Decimal
	Discount  decimal.Decimal
}

// ProductWiseDetails configures a product-wise coupon. Discount is a
// percentage of the matched line's total, 0-100.
type ProductWiseDetails struct {
	ProductID string
	Discount  decimal.Decimal
}

// ProductQuantity names a product and a quantity in a buy-x-get-y rule.
// UnitPrice is the catalog price recorded on the coupon for that product;
// it values a free product that is not already in the cart, and is zero when
// no price was recorded.
type ProductQuantity struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// BuyXGetYDetails configures a buy-x-get-y coupon. A nil RepetitionLimit
// means the reward repeats as often as the buy requirements allow.
type BuyXGetYDetails struct {
	BuyProducts     []ProductQuantity
	GetProducts     []ProductQuantity
	RepetitionLimit *int
}

// Coupon is a stored promotional coupon. Exactly one of the details fields is
// populated, matching Type; the evaluator dispatches on Type and never reads
// another variant's fields.
type Coupon struct {
	ID        string
	Type      Type
	ExpiresAt time.Time

	CartWise    *CartWiseDetails
	ProductWise *ProductWiseDetails
	BuyXGetY    *BuyXGetYDetails

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the coupon's expiry precedes now.
func (c *Coupon) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Repository defines persistence operations for coupons.
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	FindByID(ctx context.Context, id string) (*Coupon, error)
	List(ctx context.Context, page, limit int) ([]Coupon, error)
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) error
	// FindNonExpired returns every coupon with ExpiresAt >= now, in storage
	// order (insertion order, not a business priority).
	FindNonExpired(ctx context.Context, now time.Time) ([]Coupon, error)
}
