package coupon

import (
	"errors"

	"github.com/01moynul/storefront-golang/internal/models"
)

// CheckDefinition validates a coupon as submitted through admin CRUD.
func CheckDefinition(c models.Coupon) error {
	switch {
	case c.Code == "":
		return errors.New("code is required")
	case c.Type != models.CouponTypePercentage && c.Type != models.CouponTypeFixed:
		return errors.New("type must be 'percentage' or 'fixed'")
	case c.Value <= 0:
		return errors.New("value must be greater than 0")
	case c.Type == models.CouponTypePercentage && c.Value > 100:
		return errors.New("percentage value cannot exceed 100")
	case c.UsageLimit < 1:
		return errors.New("usageLimit must be at least 1")
	case c.MinPurchase != nil && *c.MinPurchase < 0:
		return errors.New("minPurchase cannot be negative")
	case c.MaxDiscount != nil && *c.MaxDiscount <= 0:
		return errors.New("maxDiscount must be greater than 0")
	case c.ValidUntil != nil && !c.ValidUntil.After(c.ValidFrom):
		return errors.New("validUntil must be after validFrom")
	}
	return nil
}
