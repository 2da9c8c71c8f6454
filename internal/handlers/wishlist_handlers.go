package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type WishlistInput struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
}

// GetWishlist is the handler for GET /api/wishlist.
func (h *Handlers) GetWishlist(c *gin.Context) {
	items, err := h.Store.ListWishlist(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddToWishlist is the handler for POST /api/wishlist. Adding twice is a no-op.
func (h *Handlers) AddToWishlist(c *gin.Context) {
	var input WishlistInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	if err := h.Store.AddToWishlist(c.Request.Context(), currentUserID(c), input.ProductID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Added to wishlist", "productId": input.ProductID})
}

// RemoveFromWishlist is the handler for PATCH /api/wishlist.
func (h *Handlers) RemoveFromWishlist(c *gin.Context) {
	var input WishlistInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	if err := h.Store.RemoveFromWishlist(c.Request.Context(), currentUserID(c), input.ProductID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Removed from wishlist", "productId": input.ProductID})
}

// ClearWishlist is the handler for DELETE /api/wishlist.
func (h *Handlers) ClearWishlist(c *gin.Context) {
	if err := h.Store.ClearWishlist(c.Request.Context(), currentUserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wishlist cleared"})
}
