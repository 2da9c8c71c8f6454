package handlers

import (
	"net/http"

	"github.com/01moynul/storefront-golang/internal/checkout"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/01moynul/storefront-golang/internal/payment"
	"github.com/01moynul/storefront-golang/internal/store"
	"github.com/gin-gonic/gin"
)

// --- Order Placement ---

type OrderItemInput struct {
	ProductID int64   `json:"productId" binding:"required,gt=0"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	Price     float64 `json:"price"`
}

type PlaceOrderInput struct {
	Items           []OrderItemInput       `json:"items" binding:"required,min=1,dive"`
	CouponCode      string                 `json:"couponCode"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

// PlaceOrder is the handler for POST /api/orders. Stock for every line is
// taken in one transaction or the whole order is rejected.
func (h *Handlers) PlaceOrder(c *gin.Context) {
	// 1. --- Bind Input ---
	var input PlaceOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}

	// 2. --- Build Order Lines ---
	lines := make([]models.OrderLine, 0, len(input.Items))
	for _, it := range input.Items {
		lines = append(lines, models.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}

	// 3. --- Place Order (stock, coupon, cart cleanup in one transaction) ---
	order, err := h.Checkout.PlaceOrder(c.Request.Context(), checkout.Request{
		UserID:          currentUserID(c),
		Items:           lines,
		CouponCode:      input.CouponCode,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		IdempotencyKey:  c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// --- Order History ---

// ListMyOrders is the handler for GET /api/orders.
func (h *Handlers) ListMyOrders(c *gin.Context) {
	limit, offset := pagination(c)
	orders, err := h.Store.ListOrders(c.Request.Context(), currentUserID(c), "", limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "limit": limit, "offset": offset})
}

// ownedOrder loads :id and checks the caller owns it or is an admin.
func (h *Handlers) ownedOrder(c *gin.Context) (*models.Order, bool) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	order, err := h.Store.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	if order.UserID != currentUserID(c) && !h.isAdmin(c) {
		// Hide other users' orders entirely.
		h.respondError(c, store.ErrNotFound)
		return nil, false
	}
	return order, true
}

// GetOrder is the handler for GET /api/orders/:id.
func (h *Handlers) GetOrder(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// --- Order Management (Admin) ---

// ListAllOrders is the handler for GET /api/admin/orders.
func (h *Handlers) ListAllOrders(c *gin.Context) {
	limit, offset := pagination(c)
	status := c.Query("status")
	if status != "" && !validStatus(status) {
		badRequest(c, "Unknown status filter")
		return
	}

	orders, err := h.Store.ListOrders(c.Request.Context(), 0, status, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "limit": limit, "offset": offset})
}

func validStatus(s string) bool {
	switch s {
	case models.OrderStatusPending, models.OrderStatusProcessing, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled:
		return true
	}
	return false
}

type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
}

// UpdateOrderStatus is the handler for PATCH /api/orders/:id/status.
// Cancelling returns the ordered quantities to stock.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}

	order, err := h.Store.UpdateOrderStatus(c.Request.Context(), id, input.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// --- Payment ---

// PayOrder is the handler for POST /api/orders/:id/pay. It creates a Stripe
// PaymentIntent for the order total and returns the client secret.
func (h *Handlers) PayOrder(c *gin.Context) {
	if h.Payments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
		return
	}

	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	if order.UserID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the buyer can pay for an order"})
		return
	}
	if order.IsPaid {
		h.respondError(c, store.ErrAlreadyPaid)
		return
	}
	if order.Status == models.OrderStatusCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "Order is cancelled"})
		return
	}

	intent, err := h.Payments.CreateIntent(c.Request.Context(), order.ID, order.TotalAmount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.AttachPayment(c.Request.Context(), order.ID, payment.MethodCard, intent.ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}
