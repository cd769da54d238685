package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/promokit/coupon-service/internal/domain/cart"
)

// Scanner finds every stored coupon applicable to a cart. It is read-only
// over the cart and holds no state between calls.
type Scanner struct {
	repo Repository
	now  func() time.Time
}

// NewScanner creates a Scanner backed by the given repository.
func NewScanner(repo Repository) *Scanner {
	return &Scanner{repo: repo, now: time.Now}
}

// FindApplicable computes the cart total once, fetches every non-expired
// coupon, and returns an Evaluation for each coupon that applies, preserving
// repository fetch order. It returns an empty slice, not an error, when no
// coupon applies.
func (s *Scanner) FindApplicable(ctx context.Context, crt cart.Cart) ([]Evaluation, error) {
	total := crt.TotalPrice()

	coupons, err := s.repo.FindNonExpired(ctx, s.now())
	if err != nil {
		return nil, errors.Wrap(err, "list non-expired coupons")
	}

	results := make([]Evaluation, 0, len(coupons))
	for i := range coupons {
		if ev, ok := Evaluate(&coupons[i], crt.Items, total); ok {
			results = append(results, ev)
		}
	}
	return results, nil
}
