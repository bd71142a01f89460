package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fleet-records-backend/internal/auth"
	"fleet-records-backend/internal/authz"
	"fleet-records-backend/internal/mw"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// setAuthCookie writes an http-only, SameSite=Lax session cookie.
func (h *Handler) setAuthCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", h.authCfg.CookieDomain, !h.authCfg.CookieInsecure, true)
}

func (h *Handler) clearAuthCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", h.authCfg.CookieDomain, !h.authCfg.CookieInsecure, true)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := h.store.UserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	accessToken, err := h.tokens.AccessToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	refreshToken, err := h.tokens.RefreshToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.setAuthCookie(c, auth.AccessCookie, accessToken, h.authCfg.AccessTokenTTL)
	h.setAuthCookie(c, auth.RefreshCookie, refreshToken, h.authCfg.RefreshTokenTTL)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    userToView(user),
	})
}

// RefreshToken handles POST /api/auth/token-refresh: reissues the access
// cookie from the refresh cookie.
func (h *Handler) RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie(auth.RefreshCookie)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token is missing"})
		return
	}

	claims, err := h.tokens.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	user, err := h.store.UserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	accessToken, err := h.tokens.AccessToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	h.setAuthCookie(c, auth.AccessCookie, accessToken, h.authCfg.AccessTokenTTL)

	c.JSON(http.StatusOK, gin.H{"refreshed": true})
}

// Logout handles POST /api/auth/logout: clears both session cookies.
func (h *Handler) Logout(c *gin.Context) {
	h.clearAuthCookie(c, auth.AccessCookie)
	h.clearAuthCookie(c, auth.RefreshCookie)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "logged out",
		"redirect": true,
	})
}

// CurrentUser handles GET /api/auth/user: identity, role and permissions.
func (h *Handler) CurrentUser(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":        userToView(user),
		"permissions": authz.Permissions(user.Role),
	})
}

// IsAuthenticated handles POST /api/auth/authenticated.
func (h *Handler) IsAuthenticated(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          userToView(user),
	})
}

// KeepAlive handles GET /api/keep-alive. Always 200; a valid cookie holder
// gets a fresh access token, extending the session.
func (h *Handler) KeepAlive(c *gin.Context) {
	user, authenticated := mw.CurrentUser(c)
	if authenticated {
		if accessToken, err := h.tokens.AccessToken(user); err == nil {
			h.setAuthCookie(c, auth.AccessCookie, accessToken, h.authCfg.AccessTokenTTL)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "session_updated",
		"is_authenticated": authenticated,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}
