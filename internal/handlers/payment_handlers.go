package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/01moynul/storefront-golang/internal/payment"
	"github.com/01moynul/storefront-golang/internal/store"
	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 << 10

// StripeWebhook is the handler for POST /api/payments/webhook.
func (h *Handlers) StripeWebhook(c *gin.Context) {
	// 1. --- Verify Signature ---
	if h.Payments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "Unreadable body")
		return
	}

	evt, err := h.Payments.ParseWebhook(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 2. --- Apply Event ---
	switch evt.Type {
	case payment.EventPaymentSucceeded:
		order, err := h.Store.MarkOrderPaid(c.Request.Context(), evt.PaymentIntentID)
		if errors.Is(err, store.ErrNotFound) {
			// Not ours; acknowledge so Stripe stops retrying.
			h.Log.Warn().Str("payment_id", evt.PaymentIntentID).Msg("webhook for unknown payment")
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		if errors.Is(err, store.ErrOrderCancelled) {
			// Retrying cannot help; the charge must be refunded by hand.
			h.Log.Error().Err(err).Str("payment_id", evt.PaymentIntentID).
				Msg("payment succeeded for cancelled order, refund required")
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.Log.Info().Int64("order_id", order.ID).Str("payment_id", evt.PaymentIntentID).Msg("order paid")
	case payment.EventPaymentFailed:
		h.Log.Warn().Int64("order_id", evt.OrderID).Str("payment_id", evt.PaymentIntentID).Msg("payment failed")
	}

	// 3. --- Acknowledge ---
	c.JSON(http.StatusOK, gin.H{"received": true})
}
