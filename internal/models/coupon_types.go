package models

import "time"

const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

// Coupon is the model for the 'coupons' table.
type Coupon struct {
	ID                   int64      `json:"id" db:"id"`
	Code                 string     `json:"code" db:"code"`
	Type                 string     `json:"type" db:"type"`
	Value                float64    `json:"value" db:"value"`
	MinPurchase          *float64   `json:"minPurchase,omitempty" db:"min_purchase"`
	MaxDiscount          *float64   `json:"maxDiscount,omitempty" db:"max_discount"`
	UsageLimit           int        `json:"usageLimit" db:"usage_limit"`
	UsedCount            int        `json:"usedCount" db:"used_count"`
	ValidFrom            time.Time  `json:"validFrom" db:"valid_from"`
	ValidUntil           *time.Time `json:"validUntil,omitempty" db:"valid_until"`
	IsActive             bool       `json:"isActive" db:"is_active"`
	ApplicableCategories []string   `json:"applicableCategories,omitempty" db:"applicable_categories"`
	ApplicableProducts   []int64    `json:"applicableProducts,omitempty" db:"applicable_products"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
}
