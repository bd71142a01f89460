package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"fleet-records-backend/config"
	"fleet-records-backend/internal/auth"
	"fleet-records-backend/internal/model"
	"fleet-records-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	tokens    *auth.Manager
	authCfg   config.AuthConfig
	dictCache *cache.Cache
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, tokens *auth.Manager, authCfg config.AuthConfig, dictCache *cache.Cache) *Handler {
	return &Handler{
		store:     s,
		tokens:    tokens,
		authCfg:   authCfg,
		dictCache: dictCache,
	}
}

// fieldError writes a 400 with field-level detail.
func fieldError(c *gin.Context, field, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": gin.H{field: message}})
}

// writeSaveError maps persistence errors onto the HTTP taxonomy: validation
// and uniqueness problems are 400s with detail, everything else is a
// generic 500 logged server-side.
func writeSaveError(c *gin.Context, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		fieldError(c, verr.Field, verr.Message)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "a record with these unique values already exists"})
	default:
		log.Printf("save failed: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// notFound hides both genuinely missing rows and rows outside the caller's
// scope behind the same response.
func notFound(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

// listParams validates pagination and the set of allowed filter keys.
// Unknown query parameters are rejected, not silently ignored.
type listParams struct {
	Limit   int
	Offset  int
	Filters map[string]string
}

func parseListParams(c *gin.Context, allowedFilters ...string) (*listParams, bool) {
	allowed := map[string]bool{"limit": true, "offset": true}
	for _, f := range allowedFilters {
		allowed[f] = true
	}

	params := &listParams{Limit: 100, Filters: make(map[string]string)}
	for key, values := range c.Request.URL.Query() {
		if !allowed[key] {
			fieldError(c, key, "unknown query parameter")
			return nil, false
		}
		if len(values) == 0 || values[0] == "" {
			continue
		}
		switch key {
		case "limit":
			n, ok := parsePositiveInt(values[0])
			if !ok || n > 1000 {
				fieldError(c, "limit", "must be an integer between 1 and 1000")
				return nil, false
			}
			params.Limit = n
		case "offset":
			n, ok := parseNonNegativeInt(values[0])
			if !ok {
				fieldError(c, "offset", "must be a non-negative integer")
				return nil, false
			}
			params.Offset = n
		default:
			params.Filters[key] = values[0]
		}
	}
	return params, true
}

func parsePositiveInt(s string) (int, bool) {
	n, ok := parseNonNegativeInt(s)
	return n, ok && n > 0
}

func parseNonNegativeInt(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			return 0, false
		}
	}
	if s == "" {
		return 0, false
	}
	return n, true
}
