package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/01moynul/storefront-golang/internal/store"
	"github.com/gin-gonic/gin"
)

// --- Registration & Session ---

type RegisterUserInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handlers) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, maxAge, "/", "", h.SecureCookies, true)
}

// startSession issues a token for user and sets it as the session cookie.
func (h *Handlers) startSession(c *gin.Context, user *models.User) (string, bool) {
	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		h.respondError(c, err)
		return "", false
	}
	h.setSessionCookie(c, token, int(h.Tokens.TTL().Seconds()))
	return token, true
}

// Register is the handler for POST /api/auth/register.
func (h *Handlers) Register(c *gin.Context) {
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		h.respondError(c, err)
		return
	}

	user := &models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		PasswordHash: password.Hash,
	}
	if err := h.Store.CreateUser(c.Request.Context(), user); err != nil {
		h.respondError(c, err)
		return
	}

	token, ok := h.startSession(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// Login is the handler for POST /api/auth/login.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.Store.GetUserByEmail(c.Request.Context(), input.Email)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, ok := h.startSession(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// Logout clears the session cookie.
func (h *Handlers) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated user.
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.Store.GetUserByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// --- Profile ---

// selfOnly resolves :id and rejects callers acting on another account.
func selfOnly(c *gin.Context) (int64, bool) {
	id, err := paramID(c, "id")
	if err != nil {
		badRequest(c, "Invalid user id")
		return 0, false
	}
	if id != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only access your own profile"})
		return 0, false
	}
	return id, true
}

// GetUser is the handler for GET /api/users/:id.
func (h *Handlers) GetUser(c *gin.Context) {
	id, ok := selfOnly(c)
	if !ok {
		return
	}
	user, err := h.Store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type UpdateProfileInput struct {
	Name            *string `json:"name" binding:"omitempty,min=1"`
	Email           *string `json:"email" binding:"omitempty,email"`
	Phone           *string `json:"phone"`
	AddressLine1    *string `json:"addressLine1"`
	City            *string `json:"city"`
	PostalCode      *string `json:"postalCode"`
	Country         *string `json:"country"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

// UpdateUser is the handler for PUT /api/users/:id.
func (h *Handlers) UpdateUser(c *gin.Context) {
	// 1. --- Get User ID ---
	id, ok := selfOnly(c)
	if !ok {
		return
	}

	// 2. --- Bind Input ---
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	upd := models.ProfileUpdate{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		AddressLine1: input.AddressLine1,
		City:         input.City,
		PostalCode:   input.PostalCode,
		Country:      input.Country,
	}

	// 3. --- Password Change ---
	if input.NewPassword != "" || input.CurrentPassword != "" {
		if len(input.NewPassword) < 6 {
			badRequest(c, "New password must be at least 6 characters")
			return
		}
		if input.CurrentPassword == "" {
			badRequest(c, "Current password is required to set a new password")
			return
		}

		user, err := h.Store.GetUserByID(ctx, id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		current := models.Password{Hash: user.PasswordHash}
		match, err := current.Matches(input.CurrentPassword)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if !match {
			badRequest(c, "Current password is incorrect")
			return
		}

		var next models.Password
		if err := next.Set(input.NewPassword); err != nil {
			h.respondError(c, err)
			return
		}
		upd.PasswordHash = &next.Hash
	}

	// 4. --- Email Uniqueness ---
	if upd.Email != nil {
		existing, err := h.Store.GetUserByEmail(ctx, *upd.Email)
		switch {
		case err == nil && existing.ID != id:
			h.respondError(c, store.ErrDuplicateEmail)
			return
		case err != nil && !errors.Is(err, store.ErrNotFound):
			h.respondError(c, err)
			return
		}
	}

	// 5. --- Save ---
	user, err := h.Store.UpdateUser(ctx, id, upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
