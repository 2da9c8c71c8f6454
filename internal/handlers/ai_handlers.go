package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/gin-gonic/gin"
)

type ChatInput struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// ChatAssistant is the handler for POST /api/assistant/chat.
func (h *Handlers) ChatAssistant(c *gin.Context) {
	if h.Assistant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Assistant is not configured"})
		return
	}

	var input ChatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	reply, err := h.Assistant.Chat(c.Request.Context(), strings.TrimSpace(input.Message))
	if err != nil {
		h.Log.Error().Err(err).Msg("assistant chat failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Assistant is unavailable right now"})
		return
	}

	// The user already has the answer; history is best-effort.
	msg := &models.AssistantMessage{
		UserID:      currentUserID(c),
		UserMessage: input.Message,
		Reply:       reply.Message,
		TokensUsed:  reply.TokensUsed,
	}
	if err := h.Store.SaveAssistantMessage(c.Request.Context(), msg); err != nil {
		h.Log.Warn().Err(err).Msg("failed to save assistant history")
	}

	c.JSON(http.StatusOK, reply)
}

// AssistantHistory is the handler for GET /api/assistant/history.
func (h *Handlers) AssistantHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	history, err := h.Store.ListAssistantMessages(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
