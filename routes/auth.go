package routes

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/looply-api/auth"
	"github.com/sidhant-sriv/looply-api/middleware"
	"github.com/sidhant-sriv/looply-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthRoutes sets up the authentication routes /auth/register, /auth/login, etc.
func (h *Handler) AuthRoutes(router *gin.Engine) {
	group := router.Group("/auth")
	limited := group.Group("")
	if h.AuthLimiter != nil {
		limited.Use(h.AuthLimiter.Middleware())
	}
	{
		limited.POST("/register", h.Register())
		limited.POST("/login", h.Login())
		limited.POST("/refresh", h.RefreshToken())
	}
	group.GET("/check-email", h.CheckEmail())

	authed := group.Group("", h.requireAuth())
	{
		authed.POST("/logout", h.Logout())
		authed.GET("/session", h.Session())
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register handles new user registration.
func (h *Handler) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name            string      `json:"name" binding:"required,min=2,notblank"`
			Email           string      `json:"email" binding:"required,email"`
			Password        string      `json:"password" binding:"required,min=6"`
			ConfirmPassword string      `json:"confirm_password" binding:"required,eqfield=Password"`
			Role            models.Role `json:"role" binding:"required,oneof=user ngo"`
			Location        string      `json:"location" binding:"required,min=3"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		email := normalizeEmail(req.Email)
		var count int64
		if err := h.db(c).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			h.respondError(c, "user", err)
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Email is already registered"})
			return
		}

		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			h.respondError(c, "registration", err)
			return
		}

		user := models.User{
			Name:     strings.TrimSpace(req.Name),
			Email:    email,
			Password: hashed,
			Role:     req.Role,
			Location: models.Location{Address: strings.TrimSpace(req.Location)},
		}
		if err := h.db(c).Create(&user).Error; err != nil {
			h.respondError(c, "user", err)
			return
		}

		pair, err := h.Tokens.Issue(&user)
		if err != nil {
			h.respondError(c, "registration", err)
			return
		}

		h.Log.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
		c.JSON(http.StatusCreated, gin.H{
			"message":       "User registered successfully",
			"user":          user,
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
		})
	}
}

// Login handles user login requests.
func (h *Handler) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=6"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		var user models.User
		err := h.db(c).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if err != nil {
			h.respondError(c, "login", err)
			return
		}

		if err := auth.CheckPassword(user.Password, req.Password); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			h.respondError(c, "login", err)
			return
		}

		pair, err := h.Tokens.Issue(&user)
		if err != nil {
			h.respondError(c, "login", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "Login successful",
			"user":          user,
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
		})
	}
}

// RefreshToken exchanges a refresh token for a new pair. The old refresh
// token is revoked.
func (h *Handler) RefreshToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		ctx := c.Request.Context()
		claims, err := h.Tokens.Verify(ctx, req.RefreshToken, auth.TypeRefresh)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrWrongTokenType) || errors.Is(err, auth.ErrTokenRevoked) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
				return
			}
			h.respondError(c, "token", err)
			return
		}

		var user models.User
		if err := h.db(c).First(&user, "id = ?", claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "User associated with token not found"})
				return
			}
			h.respondError(c, "token", err)
			return
		}

		if err := h.Tokens.Revoke(ctx, claims); err != nil {
			h.respondError(c, "token", err)
			return
		}
		pair, err := h.Tokens.Issue(&user)
		if err != nil {
			h.respondError(c, "token", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "Tokens refreshed successfully",
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
		})
	}
}

// Logout revokes the presented access token and, when given, the refresh token.
func (h *Handler) Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		ctx := c.Request.Context()
		claims, ok := middleware.GetClaims(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
			return
		}
		if err := h.Tokens.Revoke(ctx, claims); err != nil {
			h.respondError(c, "logout", err)
			return
		}

		if req.RefreshToken != "" {
			refresh, err := h.Tokens.Verify(ctx, req.RefreshToken, auth.TypeRefresh)
			if err == nil && refresh.UserID == claims.UserID {
				if err := h.Tokens.Revoke(ctx, refresh); err != nil {
					h.respondError(c, "logout", err)
					return
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
	}
}

// Session returns the caller's profile for an authenticated session.
func (h *Handler) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var user models.User
		if err := h.db(c).First(&user, "id = ?", userID).Error; err != nil {
			h.respondError(c, "user", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user, "authenticated": true})
	}
}

// CheckEmail reports whether an email is already registered.
func (h *Handler) CheckEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := normalizeEmail(c.Query("email"))
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email query parameter is required"})
			return
		}

		var count int64
		if err := h.db(c).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			h.respondError(c, "user", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"exists": count > 0})
	}
}
