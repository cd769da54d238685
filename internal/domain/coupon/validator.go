package coupon

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FieldError indicates a coupon definition that does not carry the fields its
// declared type requires.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid coupon field %s: %s", e.Field, e.Reason)
}

// ValidateFields checks, prior to persistence, that a coupon's details match
// its declared type: exactly one variant populated, percentages within 0-100,
// and buy-x-get-y product lists non-empty with positive quantities. The
// evaluator assumes stored coupons have passed this check.
func ValidateFields(c *Coupon) error {
	if err := validateVariantShape(c); err != nil {
		return err
	}
	if c.ExpiresAt.IsZero() {
		return &FieldError{Field: "expiryDate", Reason: "required"}
	}

	switch c.Type {
	case TypeCartWise:
		d := c.CartWise
		if d.Threshold.IsNegative() {
			return &FieldError{Field: "details.threshold", Reason: "must not be negative"}
		}
		return validatePercent("details.discount", d.Discount)

	case TypeProductWise:
		d := c.ProductWise
		if d.ProductID == "" {
			return &FieldError{Field: "details.product_id", Reason: "required"}
		}
		return validatePercent("details.discount", d.Discount)

	case TypeBuyXGetY:
		d := c.BuyXGetY
		if err := validateProductList("details.buy_products", d.BuyProducts); err != nil {
			return err
		}
		if err := validateProductList("details.get_products", d.GetProducts); err != nil {
			return err
		}
		if d.RepetitionLimit != nil && *d.RepetitionLimit < 1 {
			return &FieldError{Field: "details.repetition_limit", Reason: "must be at least 1"}
		}
		return nil

	default:
		return &FieldError{Field: "type", Reason: fmt.Sprintf("unknown coupon type %q", c.Type)}
	}
}

// validateVariantShape ensures the populated details variant is exactly the
// one the declared type names.
func validateVariantShape(c *Coupon) error {
	var (
		want  string
		found int
	)
	if c.CartWise != nil {
		found++
	}
	if c.ProductWise != nil {
		found++
	}
	if c.BuyXGetY != nil {
		found++
	}

	switch c.Type {
	case TypeCartWise:
		want = "cart-wise details"
		if c.CartWise == nil {
			return &FieldError{Field: "details", Reason: want + " required"}
		}
	case TypeProductWise:
		want = "product-wise details"
		if c.ProductWise == nil {
			return &FieldError{Field: "details", Reason: want + " required"}
		}
	case TypeBuyXGetY:
		want = "bxgy details"
		if c.BuyXGetY == nil {
			return &FieldError{Field: "details", Reason: want + " required"}
		}
	default:
		return &FieldError{Field: "type", Reason: fmt.Sprintf("unknown coupon type %q", c.Type)}
	}

	if found > 1 {
		return &FieldError{Field: "details", Reason: "exactly one details variant must be set, got " + want + " plus others"}
	}
	return nil
}

func validatePercent(field string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return &FieldError{Field: field, Reason: "must be between 0 and 100"}
	}
	return nil
}

func validateProductList(field string, list []ProductQuantity) error {
	if len(list) == 0 {
		return &FieldError{Field: field, Reason: "must not be empty"}
	}
	for i, pq := range list {
		if pq.ProductID == "" {
			return &FieldError{Field: fmt.Sprintf("%s[%d].product_id", field, i), Reason: "required"}
		}
		if pq.Quantity < 1 {
			return &FieldError{Field: fmt.Sprintf("%s[%d].quantity", field, i), Reason: "must be at least 1"}
		}
		if pq.UnitPrice.IsNegative() {
			return &FieldError{Field: fmt.Sprintf("%s[%d].unit_price", field, i), Reason: "must not be negative"}
		}
	}
	return nil
}
