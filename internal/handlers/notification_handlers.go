package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMyNotifications is the handler for GET /api/notifications.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	notifications, err := h.Store.ListNotifications(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationRead is the handler for PATCH /api/notifications/:id/read.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.MarkNotificationRead(c.Request.Context(), currentUserID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
