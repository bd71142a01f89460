package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet-records-backend/internal/auth"
	"fleet-records-backend/internal/model"
	"fleet-records-backend/internal/store"
)

const userContextKey = "currentUser"

// CurrentUser returns the authenticated user set by CookieAuth, if any.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}

// CookieAuth reads the access-token cookie and, when it validates against a
// live user with a recognized role, attaches that user to the request.
// Requests without a usable token proceed unauthenticated; RequireAuth
// decides whether that is acceptable for the route.
func CookieAuth(manager *auth.Manager, s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(auth.AccessCookie)
		if err != nil || tokenString == "" {
			c.Next()
			return
		}

		claims, err := manager.Parse(tokenString, auth.TokenAccess)
		if err != nil {
			c.Next()
			return
		}

		user, err := s.UserByID(c.Request.Context(), claims.UserID)
		if err != nil || !user.Role.Valid() {
			// Deleted users and users without a recognized role are
			// indistinguishable from anonymous callers.
			c.Next()
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireAuth aborts with 401 when no authenticated user is present.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated user holds one of
// the given roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	}
}
