package handlers

import (
	"net/http"
	"strconv"

	"github.com/01moynul/storefront-golang/internal/cart"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- Cart Handlers ---

type CartItemInput struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

type cartResponse struct {
	Items       []models.CartItem `json:"items"`
	Subtotal    float64           `json:"subtotal"`
	ItemCount   int               `json:"itemCount"`
	Adjustments []cart.Adjustment `json:"adjustments,omitempty"`
}

func newCartResponse(items []models.CartItem, adjustments []cart.Adjustment) cartResponse {
	subtotal := decimal.Zero
	count := 0
	for _, it := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
		count += it.Quantity
	}
	return cartResponse{
		Items:       items,
		Subtotal:    subtotal.Round(2).InexactFloat64(),
		ItemCount:   count,
		Adjustments: adjustments,
	}
}

// GetCart is the handler for GET /api/cart.
func (h *Handlers) GetCart(c *gin.Context) {
	items, err := h.Store.ListCart(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(items, nil))
}

// AddToCart is the handler for POST /api/cart. Adding a product already in
// the cart sums the quantities.
func (h *Handlers) AddToCart(c *gin.Context) {
	var input CartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}

	qty, err := h.Store.AddToCart(c.Request.Context(), currentUserID(c), input.ProductID, input.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Item added to cart", "productId": input.ProductID, "quantity": qty})
}

// UpdateCartItem is the handler for PUT /api/cart. The quantity is clamped
// to the product's current stock.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	var input CartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}

	res, err := h.Store.SetCartQuantity(c.Request.Context(), currentUserID(c), input.ProductID, input.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"productId": input.ProductID,
		"requested": input.Quantity,
		"quantity":  res.Quantity,
		"clamped":   res.Clamped,
		"removed":   res.Removed,
	})
}

// RemoveCartItem is the handler for DELETE /api/cart/:productId.
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	productID, err := paramID(c, "productId")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.RemoveFromCart(c.Request.Context(), currentUserID(c), productID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

// ClearCart is the handler for DELETE /api/cart. With ?productId= it removes
// only that line.
func (h *Handlers) ClearCart(c *gin.Context) {
	if raw := c.Query("productId"); raw != "" {
		productID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || productID <= 0 {
			badRequest(c, "Invalid productId")
			return
		}
		if err := h.Store.RemoveFromCart(c.Request.Context(), currentUserID(c), productID); err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
		return
	}

	if err := h.Store.ClearCart(c.Request.Context(), currentUserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// ReconcileCart is the handler for POST /api/cart/reconcile. Clients call it
// on their stock polling tick.
func (h *Handlers) ReconcileCart(c *gin.Context) {
	items, adjustments, err := h.Store.ReconcileCart(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(items, adjustments))
}
