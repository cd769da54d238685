// Package cart holds the shopping cart model coupons are evaluated against.
package cart

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmptyCart is returned when an operation requires at least one cart item.
var ErrEmptyCart = errors.New("cart is empty")

// InvalidItemError reports a cart item that fails validation.
type InvalidItemError struct {
	Index  int
	Reason string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid cart item at index %d: %s", e.Index, e.Reason)
}

// Item is one cart line: a product at a unit price with a quantity.
type Item struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

// Cart is the customer's cart as submitted to the API.
type Cart struct {
	Items []Item
}

// TotalPrice returns the undiscounted cart total.
func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Validate checks the cart shape: it must have at least one item, and every
// item needs a product ID, a quantity of at least 1, and a non-negative price.
func (c Cart) Validate() error {
	if len(c.Items) == 0 {
		return ErrEmptyCart
	}
	for i, it := range c.Items {
		switch {
		case it.ProductID == "":
			return &InvalidItemError{Index: i, Reason: "product id is required"}
		case it.Quantity < 1:
			return &InvalidItemError{Index: i, Reason: "quantity must be at least 1"}
		case it.Price.IsNegative():
			return &InvalidItemError{Index: i, Reason: "price must not be negative"}
		}
	}
	return nil
}

// AppliedItem is one line of a cart after a coupon has been applied.
type AppliedItem struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
	Discount  decimal.Decimal
}

// Applied is the result of applying a coupon to a cart.
type Applied struct {
	Items         []AppliedItem
	TotalPrice    decimal.Decimal
	TotalDiscount decimal.Decimal
	FinalPrice    decimal.Decimal
}
