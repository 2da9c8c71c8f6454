package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/storefront-golang/internal/checkout"
	"github.com/01moynul/storefront-golang/internal/coupon"
	"github.com/01moynul/storefront-golang/internal/idempotency"
	"github.com/01moynul/storefront-golang/internal/payment"
	"github.com/01moynul/storefront-golang/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// statusFor maps domain errors to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	var stockErr *store.InsufficientStockError
	var rejection *coupon.RejectionError

	switch {
	case errors.As(err, &stockErr):
		return http.StatusConflict, stockErr.Error()
	case errors.As(err, &rejection):
		return http.StatusBadRequest, rejection.Error()
	case errors.Is(err, errInvalidID):
		return http.StatusBadRequest, "Invalid id"
	case errors.Is(err, checkout.ErrInvalidOrder),
		errors.Is(err, store.ErrEmptyOrder):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrDuplicateSKU),
		errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrDuplicateCode):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrAlreadyPaid),
		errors.Is(err, store.ErrOrderCancelled):
		return http.StatusConflict, err.Error()
	case errors.Is(err, idempotency.ErrDuplicate):
		return http.StatusConflict, "This order was already submitted"
	case errors.Is(err, payment.ErrInvalidSignature):
		return http.StatusBadRequest, "Invalid signature"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// respondError writes the error response for err. Server errors are logged
// and never echoed to the client.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log := zerolog.Ctx(c.Request.Context())
		if log.GetLevel() == zerolog.Disabled {
			log = &h.Log
		}
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
