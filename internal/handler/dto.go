package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/promokit/coupon-service/internal/domain/cart"
	"github.com/promokit/coupon-service/internal/domain/coupon"
)

// --- Coupon DTOs ---

// productQuantityPayload is one buy/get entry of a bxgy coupon on the wire.
// unit_price is optional; it records the catalog price used to value the
// product when it is granted for free but absent from the cart.
type productQuantityPayload struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price,omitempty"`
}

// couponDetailsPayload is the union of all variant fields; pointers make
// field presence observable so the validator can reject a variant that is
// missing its required fields rather than defaulting them to zero.
type couponDetailsPayload struct {
	Threshold       *float64                 `json:"threshold,omitempty"`
	Discount        *float64                 `json:"discount,omitempty"`
	ProductID       *string                  `json:"product_id,omitempty"`
	BuyProducts     []productQuantityPayload `json:"buy_products,omitempty"`
	GetProducts     []productQuantityPayload `json:"get_products,omitempty"`
	RepetitionLimit *int                     `json:"repetition_limit,omitempty"`
}

type couponPayload struct {
	Type       string               `json:"type"`
	Details    couponDetailsPayload `json:"details"`
	ExpiryDate time.Time            `json:"expiryDate"`
}

type couponResponse struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Details    couponDetailsPayload `json:"details"`
	ExpiryDate time.Time            `json:"expiryDate"`
	CreatedAt  time.Time            `json:"createdAt,omitzero"`
	UpdatedAt  time.Time            `json:"updatedAt,omitzero"`
}

// toDomain converts the payload into a domain coupon with exactly the
// variant named by type populated. Missing required variant fields surface
// as coupon.FieldError.
func (p couponPayload) toDomain(id string) (*coupon.Coupon, error) {
	c := &coupon.Coupon{
		ID:        id,
		Type:      coupon.Type(p.Type),
		ExpiresAt: p.ExpiryDate,
	}

	switch c.Type {
	case coupon.TypeCartWise:
		if p.Details.Threshold == nil || p.Details.Discount == nil {
			return nil, &coupon.FieldError{
				Field:  "details",
				Reason: "threshold and discount are required for cart-wise coupons",
			}
		}
		c.CartWise = &coupon.CartWiseDetails{
			Threshold: decimal.NewFromFloat(*p.Details.Threshold),
			Discount:  decimal.NewFromFloat(*p.Details.Discount),
		}

	case coupon.TypeProductWise:
		if p.Details.ProductID == nil || p.Details.Discount == nil {
			return nil, &coupon.FieldError{
				Field:  "details",
				Reason: "product_id and discount are required for product-wise coupons",
			}
		}
		c.ProductWise = &coupon.ProductWiseDetails{
			ProductID: *p.Details.ProductID,
			Discount:  decimal.NewFromFloat(*p.Details.Discount),
		}

	case coupon.TypeBuyXGetY:
		if len(p.Details.BuyProducts) == 0 || len(p.Details.GetProducts) == 0 {
			return nil, &coupon.FieldError{
				Field:  "details",
				Reason: "buy_products and get_products are required for bxgy coupons",
			}
		}
		c.BuyXGetY = &coupon.BuyXGetYDetails{
			BuyProducts:     toDomainProducts(p.Details.BuyProducts),
			GetProducts:     toDomainProducts(p.Details.GetProducts),
			RepetitionLimit: p.Details.RepetitionLimit,
		}

	default:
		return nil, &coupon.FieldError{
			Field:  "type",
			Reason: "must be one of cart-wise, product-wise, bxgy",
		}
	}

	if err := coupon.ValidateFields(c); err != nil {
		return nil, err
	}
	return c, nil
}

func toDomainProducts(payloads []productQuantityPayload) []coupon.ProductQuantity {
	out := make([]coupon.ProductQuantity, len(payloads))
	for i, p := range payloads {
		out[i] = coupon.ProductQuantity{
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			UnitPrice: decimal.NewFromFloat(p.UnitPrice),
		}
	}
	return out
}

func toCouponResponse(c *coupon.Coupon) couponResponse {
	resp := couponResponse{
		ID:         c.ID,
		Type:       string(c.Type),
		ExpiryDate: c.ExpiresAt,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}

	switch c.Type {
	case coupon.TypeCartWise:
		threshold := c.CartWise.Threshold.InexactFloat64()
		discount := c.CartWise.Discount.InexactFloat64()
		resp.Details.Threshold = &threshold
		resp.Details.Discount = &discount
	case coupon.TypeProductWise:
		productID := c.ProductWise.ProductID
		discount := c.ProductWise.Discount.InexactFloat64()
		resp.Details.ProductID = &productID
		resp.Details.Discount = &discount
	case coupon.TypeBuyXGetY:
		resp.Details.BuyProducts = toPayloadProducts(c.BuyXGetY.BuyProducts)
		resp.Details.GetProducts = toPayloadProducts(c.BuyXGetY.GetProducts)
		resp.Details.RepetitionLimit = c.BuyXGetY.RepetitionLimit
	}
	return resp
}

func toPayloadProducts(pqs []coupon.ProductQuantity) []productQuantityPayload {
	out := make([]productQuantityPayload, len(pqs))
	for i, pq := range pqs {
		out[i] = productQuantityPayload{
			ProductID: pq.ProductID,
			Quantity:  pq.Quantity,
			UnitPrice: pq.UnitPrice.InexactFloat64(),
		}
	}
	return out
}

// --- Cart DTOs ---

// cartItemPayload uses pointers for price and quantity so that field
// presence can be validated before defaulting kicks in.
type cartItemPayload struct {
	ProductID string   `json:"product_id"`
	Price     *float64 `json:"price"`
	Quantity  *int     `json:"quantity"`
}

type cartPayload struct {
	Items []cartItemPayload `json:"items"`
}

type cartRequest struct {
	Cart cartPayload `json:"cart"`
}

// toDomain validates field presence and converts into a domain cart, then
// runs the cart invariant checks.
func (p cartPayload) toDomain() (cart.Cart, error) {
	items := make([]cart.Item, len(p.Items))
	for i, it := range p.Items {
		if it.Price == nil {
			return cart.Cart{}, &cart.InvalidItemError{Index: i, Reason: "price required"}
		}
		if it.Quantity == nil {
			return cart.Cart{}, &cart.InvalidItemError{Index: i, Reason: "quantity required"}
		}
		items[i] = cart.Item{
			ProductID: it.ProductID,
			Price:     decimal.NewFromFloat(*it.Price),
			Quantity:  *it.Quantity,
		}
	}

	c := cart.Cart{Items: items}
	if err := c.Validate(); err != nil {
		return cart.Cart{}, err
	}
	return c, nil
}

// --- Evaluation DTOs ---

type applicableCouponPayload struct {
	CouponID string  `json:"coupon_id"`
	Type     string  `json:"type"`
	Discount float64 `json:"discount"`
}

type applicableCouponsResponse struct {
	ApplicableCoupons []applicableCouponPayload `json:"applicable_coupons"`
}

type updatedCartItemPayload struct {
	ProductID     string  `json:"product_id"`
	Price         float64 `json:"price"`
	Quantity      int     `json:"quantity"`
	TotalDiscount float64 `json:"total_discount"`
}

type updatedCartPayload struct {
	Items         []updatedCartItemPayload `json:"items"`
	TotalPrice    float64                  `json:"total_price"`
	TotalDiscount float64                  `json:"total_discount"`
	FinalPrice    float64                  `json:"final_price"`
}

type applyCouponResponse struct {
	UpdatedCart updatedCartPayload `json:"updated_cart"`
}

func toApplicableResponse(evals []coupon.Evaluation) applicableCouponsResponse {
	out := make([]applicableCouponPayload, len(evals))
	for i, ev := range evals {
		out[i] = applicableCouponPayload{
			CouponID: ev.CouponID,
			Type:     string(ev.Type),
			Discount: ev.Discount.InexactFloat64(),
		}
	}
	return applicableCouponsResponse{ApplicableCoupons: out}
}

func toApplyResponse(applied *cart.Applied) applyCouponResponse {
	items := make([]updatedCartItemPayload, len(applied.Items))
	for i, it := range applied.Items {
		items[i] = updatedCartItemPayload{
			ProductID:     it.ProductID,
			Price:         it.Price.InexactFloat64(),
			Quantity:      it.Quantity,
			TotalDiscount: it.Discount.InexactFloat64(),
		}
	}
	return applyCouponResponse{UpdatedCart: updatedCartPayload{
		Items:         items,
		TotalPrice:    applied.TotalPrice.InexactFloat64(),
		TotalDiscount: applied.TotalDiscount.InexactFloat64(),
		FinalPrice:    applied.FinalPrice.InexactFloat64(),
	}}
}
