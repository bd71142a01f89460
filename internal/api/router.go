package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"fleet-records-backend/config"
	"fleet-records-backend/internal/model"
	"fleet-records-backend/internal/mw"
)

// NewRouter builds the gin engine with the full route table. Route-level
// middleware handles authentication and role gates; per-object checks
// (row scopes, structural-field rules) live in the handlers.
func NewRouter(h *Handler, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	dictCache := mw.Cache(h.dictCache, cacheTTL)

	api := r.Group("/api")
	api.Use(
		mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst),
		mw.CookieAuth(h.tokens, h.store),
	)

	// Anonymous-reachable routes.
	api.POST("/auth/login", h.Login)
	api.POST("/auth/token-refresh", h.RefreshToken)
	api.POST("/auth/logout", h.Logout)
	api.GET("/keep-alive", h.KeepAlive)
	api.POST("/machines/search", h.SearchMachine)

	authed := api.Group("")
	authed.Use(mw.RequireAuth())
	{
		authed.GET("/auth/user", h.CurrentUser)
		authed.POST("/auth/authenticated", h.IsAuthenticated)

		authed.GET("/machines", h.ListMachines)
		authed.GET("/machines/:id", h.GetMachine)
		authed.PUT("/machines/:id", h.UpdateMachine)

		authed.GET("/maintenance", h.ListMaintenance)
		authed.GET("/maintenance/:id", h.GetMaintenance)
		authed.POST("/maintenance", h.CreateMaintenance)
		authed.PUT("/maintenance/:id", h.UpdateMaintenance)
		authed.DELETE("/maintenance/:id", h.DeleteMaintenance)

		authed.GET("/claims", h.ListClaims)
		authed.GET("/claims/:id", h.GetClaim)
		authed.POST("/claims", h.CreateClaim)
		authed.PUT("/claims/:id", h.UpdateClaim)
		authed.DELETE("/claims/:id", h.DeleteClaim)

		authed.GET("/dict-entries", dictCache, h.ListDictEntries)
		authed.GET("/dict-entries/:id", dictCache, h.GetDictEntry)
	}

	elevated := api.Group("")
	elevated.Use(mw.RequireRole(model.RoleManager, model.RoleSuperadmin))
	{
		elevated.POST("/machines", h.CreateMachine)
		elevated.DELETE("/machines/:id", h.DeleteMachine)

		elevated.POST("/dict-entries", h.CreateDictEntry)
		elevated.PUT("/dict-entries/:id", h.UpdateDictEntry)
		elevated.DELETE("/dict-entries/:id", h.DeleteDictEntry)
	}

	return r
}
