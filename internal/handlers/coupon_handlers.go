package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/01moynul/storefront-golang/internal/coupon"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/01moynul/storefront-golang/internal/store"
	"github.com/gin-gonic/gin"
)

// --- Coupon Management (Admin) ---

type CouponInput struct {
	Code                 string     `json:"code" binding:"required"`
	Type                 string     `json:"type" binding:"required,oneof=percentage fixed"`
	Value                float64    `json:"value" binding:"required,gt=0"`
	MinPurchase          *float64   `json:"minPurchase"`
	MaxDiscount          *float64   `json:"maxDiscount"`
	UsageLimit           int        `json:"usageLimit" binding:"required,gte=1"`
	ValidFrom            *time.Time `json:"validFrom"`
	ValidUntil           *time.Time `json:"validUntil"`
	IsActive             *bool      `json:"isActive"`
	ApplicableCategories []string   `json:"applicableCategories"`
	ApplicableProducts   []int64    `json:"applicableProducts"`
}

// toModel converts the body. An omitted validFrom or isActive takes the
// given defaults.
func (in CouponInput) toModel(validFrom time.Time, active bool) models.Coupon {
	c := models.Coupon{
		Code:                 coupon.NormalizeCode(in.Code),
		Type:                 in.Type,
		Value:                in.Value,
		MinPurchase:          in.MinPurchase,
		MaxDiscount:          in.MaxDiscount,
		UsageLimit:           in.UsageLimit,
		ValidFrom:            validFrom,
		ValidUntil:           in.ValidUntil,
		IsActive:             active,
		ApplicableCategories: in.ApplicableCategories,
		ApplicableProducts:   in.ApplicableProducts,
	}
	if in.ValidFrom != nil {
		c.ValidFrom = in.ValidFrom.UTC()
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return c
}

// bindCoupon binds a coupon body, writing a 400 on failure.
func bindCoupon(c *gin.Context) (CouponInput, bool) {
	var input CouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return CouponInput{}, false
	}
	return input, true
}

func checkCoupon(c *gin.Context, cp models.Coupon) bool {
	if err := coupon.CheckDefinition(cp); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

// ListCoupons is the handler for GET /api/coupons.
func (h *Handlers) ListCoupons(c *gin.Context) {
	coupons, err := h.Store.ListCoupons(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupons": coupons})
}

// CreateCoupon is the handler for POST /api/coupons.
func (h *Handlers) CreateCoupon(c *gin.Context) {
	input, ok := bindCoupon(c)
	if !ok {
		return
	}
	cp := input.toModel(time.Now().UTC().Truncate(time.Second), true)
	if !checkCoupon(c, cp) {
		return
	}
	if err := h.Store.CreateCoupon(c.Request.Context(), &cp); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"coupon": cp})
}

// UpdateCoupon is the handler for PUT /api/coupons/:id.
func (h *Handlers) UpdateCoupon(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	input, ok := bindCoupon(c)
	if !ok {
		return
	}

	// Omitted optional fields keep their stored values.
	current, err := h.Store.GetCoupon(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	cp := input.toModel(current.ValidFrom, current.IsActive)
	if !checkCoupon(c, cp) {
		return
	}
	cp.ID = id
	if err := h.Store.UpdateCoupon(c.Request.Context(), &cp); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon": cp})
}

// DeleteCoupon is the handler for DELETE /api/coupons/:id.
func (h *Handlers) DeleteCoupon(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.DeleteCoupon(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Coupon deleted"})
}

// --- Coupon Validation (Customer) ---

type ValidateCouponInput struct {
	Code       string   `json:"code" binding:"required"`
	Subtotal   float64  `json:"subtotal" binding:"gte=0"`
	Categories []string `json:"categories"`
	ProductIDs []int64  `json:"productIds"`
}

type validateCouponResponse struct {
	Valid    bool    `json:"valid"`
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
	Reason   string  `json:"reason,omitempty"`
}

// ValidateCoupon is the handler for POST /api/coupons/validate. It previews a
// coupon against a cart without redeeming it. Rejections are reported in the
// body with status 200.
func (h *Handlers) ValidateCoupon(c *gin.Context) {
	var input ValidateCouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}

	resp := validateCouponResponse{Code: coupon.NormalizeCode(input.Code), Total: input.Subtotal}

	cp, err := h.Store.GetCouponByCode(c.Request.Context(), input.Code)
	if errors.Is(err, store.ErrNotFound) {
		resp.Reason = coupon.ReasonUnknown
		c.JSON(http.StatusOK, resp)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := coupon.Apply(*cp, coupon.Cart{
		Subtotal:   input.Subtotal,
		Categories: input.Categories,
		ProductIDs: input.ProductIDs,
	}, time.Now().UTC())
	var rejection *coupon.RejectionError
	if errors.As(err, &rejection) {
		resp.Reason = rejection.Reason
		c.JSON(http.StatusOK, resp)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp.Valid = true
	resp.Discount = result.Discount
	resp.Total = result.Total
	c.JSON(http.StatusOK, resp)
}
