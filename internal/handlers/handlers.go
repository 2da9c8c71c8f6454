package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/01moynul/storefront-golang/internal/ai"
	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/checkout"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/01moynul/storefront-golang/internal/payment"
	"github.com/01moynul/storefront-golang/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Assistant answers shopping questions.
type Assistant interface {
	Chat(ctx context.Context, message string) (ai.Reply, error)
}

// Handlers holds every dependency the HTTP layer needs.
type Handlers struct {
	Store     *store.Store
	Checkout  *checkout.Service
	Tokens    *auth.Manager
	Payments  payment.Gateway // nil when Stripe is not configured
	Assistant Assistant       // nil when Gemini is not configured
	Log       zerolog.Logger

	// SecureCookies marks the session cookie Secure (production).
	SecureCookies bool
}

var errInvalidID = errors.New("invalid id")

// currentUserID reads the ID set by AuthMiddleware.
func currentUserID(c *gin.Context) int64 {
	id, _ := middleware.UserID(c)
	return id
}

func paramID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// isAdmin reports whether the caller is an admin. Lookup failures count as
// not admin.
func (h *Handlers) isAdmin(c *gin.Context) bool {
	if v, ok := c.Get(middleware.IsAdminKey); ok {
		return v.(bool)
	}
	admin, err := h.Store.IsAdmin(c.Request.Context(), currentUserID(c))
	if err != nil {
		return false
	}
	c.Set(middleware.IsAdminKey, admin)
	return admin
}

// pagination reads limit/offset query parameters.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	limit = store.PageSize(limit)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Health pings the database.
func (h *Handlers) Health(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		h.Log.Error().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
