// Package api wires the Gin router: middleware chain, public/authenticated
// route split, and the full handler surface (internal/api/handlers).
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/fredsystems/zabbid/internal/api/handlers"
	"github.com/fredsystems/zabbid/internal/api/middleware"
	"github.com/fredsystems/zabbid/internal/authn"
	"github.com/fredsystems/zabbid/internal/config"
)

// publicPrefixes lists routes that never require a bearer token.
var publicPrefixes = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/bootstrap",
	"/api/v1/health",
}

// NewRouter builds the full Gin engine for srv, gated by cfg's CORS and
// session settings and jwtCfg's JWT validation.
func NewRouter(cfg *config.Config, srv *handlers.Server, authSvc *authn.Service) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	router.Use(cors.New(buildCORSConfig(cfg)))
	router.Use(jwtSkipPublic(authSvc.JWT))
	router.Use(touchSession(authSvc))

	v1 := router.Group("/api/v1")
	registerHealthRoutes(v1)
	registerAuthRoutes(v1, srv)
	registerBidYearRoutes(v1, srv)
	registerOperatorRoutes(v1, srv)
	registerStreamRoutes(v1, srv)

	return router
}

func registerHealthRoutes(g *gin.RouterGroup) {
	g.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
}

func registerAuthRoutes(g *gin.RouterGroup, srv *handlers.Server) {
	auth := g.Group("/auth")
	auth.POST("/bootstrap", srv.Bootstrap)
	auth.POST("/login", srv.Login)
	auth.POST("/logout", srv.Logout)
	auth.GET("/me", srv.Me)
}

func registerBidYearRoutes(g *gin.RouterGroup, srv *handlers.Server) {
	by := g.Group("/bid-years")
	by.POST("", srv.CreateBidYear)
	by.GET("", srv.ListBidYears)
	by.GET("/:id", srv.GetBidYear)
	by.PATCH("/:id", srv.UpdateBidYearMetadata)
	by.PUT("/:id/schedule", srv.SetBidSchedule)
	by.PUT("/:id/expected-area-count", srv.SetExpectedAreaCount)
	by.POST("/:id/activate", srv.ActivateBidYear)
	by.POST("/:id/bootstrap-complete", srv.TransitionToBootstrapComplete)
	by.POST("/:id/canonicalize", srv.Canonicalize)
	by.GET("/:id/readiness", srv.Readiness)
	by.POST("/:id/confirm-ready-to-bid", srv.ConfirmReadyToBid)
	by.POST("/:id/close", srv.TransitionToBiddingClosed)
	by.POST("/:id/checkpoint", srv.Checkpoint)
	by.POST("/:id/finalize", srv.Finalize)
	by.POST("/:id/rollback", srv.Rollback)
	by.GET("/:id/audit-events", srv.ListAuditEvents)

	by.POST("/:id/areas", srv.CreateArea)
	by.GET("/:id/areas", srv.ListAreas)
	by.PATCH("/:id/areas/:area_id", srv.UpdateArea)
	by.PUT("/:id/areas/:area_id/round-group", srv.AssignAreaRoundGroup)
	by.PUT("/:id/areas/:area_id/expected-user-count", srv.SetExpectedUserCount)
	by.GET("/:id/areas/:area_id/bid-order-preview", srv.BidOrderPreview)

	by.POST("/:id/users", srv.RegisterUser)
	by.GET("/:id/users", srv.ListUsers)
	by.PATCH("/:id/users/:user_id", srv.UpdateUser)
	by.PATCH("/:id/users/:user_id/participation", srv.UpdateUserParticipation)
	by.POST("/:id/users/:user_id/override/area", srv.OverrideAreaAssignment)
	by.POST("/:id/users/:user_id/override/eligibility", srv.OverrideEligibility)
	by.POST("/:id/users/:user_id/override/bid-order", srv.OverrideBidOrder)
	by.POST("/:id/users/:user_id/override/bid-window", srv.OverrideBidWindow)
	by.POST("/:id/users/csv-preview", srv.PreviewCSV)
	by.POST("/:id/users/csv-import", srv.ImportCSV)

	by.POST("/:id/round-groups", srv.CreateRoundGroup)
	by.GET("/:id/round-groups", srv.ListRoundGroups)
	by.PATCH("/:id/round-groups/:round_group_id", srv.UpdateRoundGroup)
	by.DELETE("/:id/round-groups/:round_group_id", srv.DeleteRoundGroup)
	by.POST("/:id/round-groups/:round_group_id/rounds", srv.CreateRound)
	by.PATCH("/:id/rounds/:round_id", srv.UpdateRound)
	by.DELETE("/:id/rounds/:round_id", srv.DeleteRound)
}

func registerOperatorRoutes(g *gin.RouterGroup, srv *handlers.Server) {
	ops := g.Group("/operators")
	ops.GET("", srv.ListOperators)
	ops.POST("", srv.CreateOperator)
	ops.PATCH("/:operator_id/role", srv.UpdateOperatorRole)
	ops.POST("/:operator_id/disable", srv.DisableOperator)
	ops.POST("/:operator_id/enable", srv.EnableOperator)
	ops.POST("/:operator_id/reset-password", srv.ResetOperatorPassword)
}

func registerStreamRoutes(g *gin.RouterGroup, srv *handlers.Server) {
	g.GET("/events", srv.StreamEvents)
}

func buildCORSConfig(cfg *config.Config) cors.Config {
	allowAllOrigins := cfg.Server.UnsafeAllowAllOrigins
	allowedOrigins := sanitizeAllowedOrigins(cfg.Server.AllowedOrigins)

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if allowAllOrigins {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
		return corsCfg
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	corsCfg.AllowOrigins = allowedOrigins
	return corsCfg
}

func sanitizeAllowedOrigins(origins []string) []string {
	cleaned := make([]string, 0, len(origins))
	seen := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "*" {
			continue
		}
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		cleaned = append(cleaned, origin)
	}
	return cleaned
}

// jwtSkipPublic applies JWT auth on every route except publicPrefixes.
func jwtSkipPublic(jwtCfg middleware.JWTConfig) gin.HandlerFunc {
	jwtMw := middleware.JWTAuthWithConfig(jwtCfg)
	return func(c *gin.Context) {
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}
		jwtMw(c)
	}
}

// touchSession records activity on the caller's session after a successfully
// authenticated request (spec.md §3 ownership table: Session is "Mutated by"
// activity touch).
func touchSession(authSvc *authn.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		jti := c.GetString("jti")
		if jti == "" {
			return
		}
		_ = authSvc.Touch(c.Request.Context(), jti)
	}
}
