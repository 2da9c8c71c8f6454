// Package coupon evaluates coupon eligibility and discount amounts.
// Everything here is a pure function of a coupon row and a cart snapshot.
package coupon

import (
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/shopspring/decimal"
)

// Rejection reasons.
const (
	ReasonUnknown         = "coupon does not exist"
	ReasonInactive        = "coupon is not active"
	ReasonNotYetValid     = "coupon is not valid yet"
	ReasonExpired         = "coupon has expired"
	ReasonUsageExhausted  = "coupon usage limit reached"
	ReasonBelowMinimum    = "cart subtotal is below the coupon minimum"
	ReasonCategoryMissing = "coupon does not apply to any category in the cart"
	ReasonProductMissing  = "coupon does not apply to any product in the cart"
)

// RejectionError is returned when a coupon cannot be applied to a cart.
type RejectionError struct {
	Code   string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Reason)
}

// Cart is the snapshot a coupon is evaluated against.
type Cart struct {
	Subtotal   float64
	Categories []string
	ProductIDs []int64
}

// Result is the outcome of a successful validation.
type Result struct {
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// NormalizeCode upper-cases and trims a coupon code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks every eligibility clause in order and returns the first
// failing one as a *RejectionError.
func Validate(c models.Coupon, cart Cart, now time.Time) error {
	reject := func(reason string) error {
		return &RejectionError{Code: c.Code, Reason: reason}
	}

	if !c.IsActive {
		return reject(ReasonInactive)
	}
	if now.Before(c.ValidFrom) {
		return reject(ReasonNotYetValid)
	}
	if c.ValidUntil != nil && !now.Before(*c.ValidUntil) {
		return reject(ReasonExpired)
	}
	if c.UsedCount >= c.UsageLimit {
		return reject(ReasonUsageExhausted)
	}

	minPurchase := 0.0
	if c.MinPurchase != nil {
		minPurchase = *c.MinPurchase
	}
	if decimal.NewFromFloat(cart.Subtotal).LessThan(decimal.NewFromFloat(minPurchase)) {
		return reject(ReasonBelowMinimum)
	}

	if len(c.ApplicableCategories) > 0 && !intersectsFold(c.ApplicableCategories, cart.Categories) {
		return reject(ReasonCategoryMissing)
	}
	if len(c.ApplicableProducts) > 0 && !intersects(c.ApplicableProducts, cart.ProductIDs) {
		return reject(ReasonProductMissing)
	}

	return nil
}

// Discount computes the discount for a subtotal. Percentage discounts are
// capped at MaxDiscount when set, and no discount exceeds the subtotal.
func Discount(c models.Coupon, subtotal float64) float64 {
	sub := decimal.NewFromFloat(subtotal)
	if !sub.IsPositive() {
		return 0
	}

	var d decimal.Decimal
	switch c.Type {
	case models.CouponTypePercentage:
		d = sub.Mul(decimal.NewFromFloat(c.Value)).Div(decimal.NewFromInt(100))
		if c.MaxDiscount != nil {
			d = decimal.Min(d, decimal.NewFromFloat(*c.MaxDiscount))
		}
	case models.CouponTypeFixed:
		d = decimal.NewFromFloat(c.Value)
	default:
		return 0
	}

	d = decimal.Min(d, sub).Round(2)
	if d.IsNegative() {
		return 0
	}
	return d.InexactFloat64()
}

// Apply validates the coupon and returns the discount and discounted total.
func Apply(c models.Coupon, cart Cart, now time.Time) (Result, error) {
	if err := Validate(c, cart, now); err != nil {
		return Result{}, err
	}
	d := Discount(c, cart.Subtotal)
	total := decimal.NewFromFloat(cart.Subtotal).Sub(decimal.NewFromFloat(d)).Round(2)
	return Result{Discount: d, Total: total.InexactFloat64()}, nil
}

func intersectsFold(allowed, have []string) bool {
	for _, a := range allowed {
		for _, h := range have {
			if strings.EqualFold(a, h) {
				return true
			}
		}
	}
	return false
}

func intersects(allowed, have []int64) bool {
	set := make(map[int64]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	for _, h := range have {
		if _, ok := set[h]; ok {
			return true
		}
	}
	return false
}
