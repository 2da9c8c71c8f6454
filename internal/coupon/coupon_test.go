package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func baseCoupon() models.Coupon {
	return models.Coupon{
		Code:       "SAVE10",
		Type:       models.CouponTypeFixed,
		Value:      10,
		UsageLimit: 100,
		ValidFrom:  now.Add(-24 * time.Hour),
		IsActive:   true,
	}
}

func reason(t *testing.T, err error) string {
	t.Helper()
	var rej *RejectionError
	require.True(t, errors.As(err, &rej), "expected RejectionError, got %v", err)
	return rej.Reason
}

func TestFixedCouponMinimumPurchase(t *testing.T) {
	c := baseCoupon()
	c.MinPurchase = ptr(50.0)

	t.Run("subtotal 40 is rejected", func(t *testing.T) {
		_, err := Apply(c, Cart{Subtotal: 40}, now)
		assert.Equal(t, ReasonBelowMinimum, reason(t, err))
	})

	t.Run("subtotal 60 gives 10 off", func(t *testing.T) {
		res, err := Apply(c, Cart{Subtotal: 60}, now)
		require.NoError(t, err)
		assert.Equal(t, 10.0, res.Discount)
		assert.Equal(t, 50.0, res.Total)
	})

	t.Run("subtotal exactly at minimum passes", func(t *testing.T) {
		_, err := Apply(c, Cart{Subtotal: 50}, now)
		assert.NoError(t, err)
	})
}

func TestValidateClauses(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Coupon)
		cart   Cart
		want   string
	}{
		{"inactive", func(c *models.Coupon) { c.IsActive = false }, Cart{Subtotal: 100}, ReasonInactive},
		{"not yet valid", func(c *models.Coupon) { c.ValidFrom = now.Add(time.Hour) }, Cart{Subtotal: 100}, ReasonNotYetValid},
		{"expired", func(c *models.Coupon) { c.ValidUntil = ptr(now.Add(-time.Minute)) }, Cart{Subtotal: 100}, ReasonExpired},
		{"expires exactly now", func(c *models.Coupon) { c.ValidUntil = ptr(now) }, Cart{Subtotal: 100}, ReasonExpired},
		{"usage exhausted", func(c *models.Coupon) { c.UsedCount = 100 }, Cart{Subtotal: 100}, ReasonUsageExhausted},
		{
			"category mismatch",
			func(c *models.Coupon) { c.ApplicableCategories = []string{"shoes"} },
			Cart{Subtotal: 100, Categories: []string{"hats"}},
			ReasonCategoryMissing,
		},
		{
			"product mismatch",
			func(c *models.Coupon) { c.ApplicableProducts = []int64{7} },
			Cart{Subtotal: 100, ProductIDs: []int64{1, 2}},
			ReasonProductMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseCoupon()
			tt.mutate(&c)
			assert.Equal(t, tt.want, reason(t, Validate(c, tt.cart, now)))
		})
	}
}

func TestValidateCategoryMatchIgnoresCase(t *testing.T) {
	c := baseCoupon()
	c.ApplicableCategories = []string{"Shoes"}
	assert.NoError(t, Validate(c, Cart{Subtotal: 20, Categories: []string{"hats", "shoes"}}, now))
}

func TestPercentageDiscountRespectsCap(t *testing.T) {
	c := baseCoupon()
	c.Type = models.CouponTypePercentage
	c.Value = 20
	c.MaxDiscount = ptr(15.0)

	for _, subtotal := range []float64{10, 50, 75, 76, 200, 10000} {
		d := Discount(c, subtotal)
		assert.LessOrEqual(t, d, 15.0, "subtotal %v", subtotal)
	}
	assert.Equal(t, 10.0, Discount(c, 50))
	assert.Equal(t, 15.0, Discount(c, 200))
}

func TestPercentageDiscountRounds(t *testing.T) {
	c := baseCoupon()
	c.Type = models.CouponTypePercentage
	c.Value = 15
	assert.Equal(t, 3.0, Discount(c, 19.99))
}

func TestDiscountNeverExceedsSubtotal(t *testing.T) {
	c := baseCoupon()
	c.Value = 25
	assert.Equal(t, 12.5, Discount(c, 12.5))
	assert.Equal(t, 0.0, Discount(c, 0))
}

func TestDiscountImpliesMinimumMet(t *testing.T) {
	c := baseCoupon()
	c.MinPurchase = ptr(30.0)
	for _, subtotal := range []float64{0, 10, 29.99, 30, 45} {
		res, err := Apply(c, Cart{Subtotal: subtotal}, now)
		if err == nil && res.Discount > 0 {
			assert.GreaterOrEqual(t, subtotal, 30.0)
		}
	}
}

func TestCheckDefinition(t *testing.T) {
	valid := baseCoupon()
	require.NoError(t, CheckDefinition(valid))

	tests := map[string]func(*models.Coupon){
		"missing code": func(c *models.Coupon) { c.Code = "" },
		"unknown type": func(c *models.Coupon) { c.Type = "bogo" },
		"zero value":   func(c *models.Coupon) { c.Value = 0 },
		"percentage over 100": func(c *models.Coupon) {
			c.Type = models.CouponTypePercentage
			c.Value = 120
		},
		"zero usage limit":  func(c *models.Coupon) { c.UsageLimit = 0 },
		"negative minimum":  func(c *models.Coupon) { c.MinPurchase = ptr(-1.0) },
		"zero max discount": func(c *models.Coupon) { c.MaxDiscount = ptr(0.0) },
		"window inverted":   func(c *models.Coupon) { c.ValidUntil = ptr(c.ValidFrom.Add(-time.Hour)) },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := baseCoupon()
			mutate(&c)
			assert.Error(t, CheckDefinition(c))
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "WELCOME5", NormalizeCode("  welcome5 "))
}
