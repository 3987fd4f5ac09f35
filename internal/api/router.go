package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/dbpool"
	"github.com/funnelboard/funnelboard/internal/middleware"
	"github.com/funnelboard/funnelboard/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Pool        *dbpool.Pool
	Cache       Pinger
	Hub         *ws.Hub
	Sessions    Counter
	Funnels     FunnelService
	Shares      ShareService
	Metrics     MetricService
	Editing     SessionService
	Audit       AuditService
	UserLookup  middleware.UserLookup
	CORSOrigins []string
	Version     string
}

// Router-level limits.
const (
	maxBodySize     = 10 << 20 // 10 MB
	rateLimit       = 100      // requests per second per IP
	rateBurst       = 200      // token bucket burst size
	shareRateLimit  = 5        // shared-view lookups per second per token
	shareRateBurst  = 20
	editorRateLimit = 50 // editing ops per second per user
	editorRateBurst = 100
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "If-Match"},
		ExposeHeaders:    []string{"ETag", "X-Request-ID", "Content-Disposition"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware("/metrics", "/api/v1/health", "/api/v1/ready"))

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	var clients Counter
	if deps.Hub != nil {
		clients = CounterFunc(deps.Hub.ClientCount)
	}

	health := NewHealthHandler(HealthDeps{
		Pool:     deps.Pool,
		Cache:    deps.Cache,
		Sessions: deps.Sessions,
		Clients:  clients,
		Log:      log,
		Version:  deps.Version,
	})
	funnels := NewFunnelHandler(deps.Funnels, log)
	bundles := NewExportImportHandler(deps.Funnels, log)
	shares := NewShareHandler(deps.Shares, log)
	nodeMetrics := NewMetricHandler(deps.Metrics, log)
	sessions := NewSessionHandler(deps.Editing, log)
	templates := NewTemplateHandler(log)
	audit := NewAuditHandler(deps.Audit, log)

	// Health, readiness and the public shared view are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	shareLimiter := middleware.NewKeyedRateLimiter(ctx, shareRateLimit, shareRateBurst, middleware.ByParam("token"))
	api.GET("/shared/:token", shareLimiter.Handler(), shares.Resolve)

	// All other API routes require authentication.
	bfGuard := middleware.NewBruteForceGuard(ctx, log)
	lookup := middleware.NewCachedUserLookup(ctx, deps.UserLookup)
	authed := api.Group("")
	authed.Use(middleware.BruteForceMiddleware(bfGuard))
	authed.Use(middleware.AuthMiddleware(lookup, log, bfGuard))

	// Templates.
	authed.GET("/templates", templates.List)

	// Funnels.
	authed.GET("/funnels", funnels.List)
	authed.POST("/funnels", funnels.Create)
	authed.POST("/funnels/import", bundles.Import)
	authed.GET("/funnels/:id", funnels.Get)
	authed.PATCH("/funnels/:id", funnels.Rename)
	authed.DELETE("/funnels/:id", funnels.Delete)
	authed.POST("/funnels/:id/clone", funnels.Clone)
	authed.GET("/funnels/:id/canvas", funnels.LoadCanvas)
	authed.PUT("/funnels/:id/canvas", funnels.SaveCanvas)
	authed.GET("/funnels/:id/export", bundles.Export)
	authed.GET("/funnels/:id/activity", audit.FunnelActivity)

	// Share links.
	authed.POST("/funnels/:id/shares", shares.Create)
	authed.GET("/funnels/:id/shares", shares.List)
	authed.DELETE("/shares/:token", shares.Revoke)
	authed.POST("/shared/:token/clone", shares.Clone)

	// Node metrics.
	authed.GET("/funnels/:id/nodes/:node/metrics", nodeMetrics.List)
	authed.POST("/funnels/:id/nodes/:node/metrics", nodeMetrics.Record)
	authed.POST("/funnels/:id/metrics/ratio", nodeMetrics.Ratio)
	authed.DELETE("/metrics/:id", nodeMetrics.Delete)

	// Editing sessions. Ops are limited per user on top of the global IP limit.
	editLimiter := middleware.NewKeyedRateLimiter(ctx, editorRateLimit, editorRateBurst, middleware.ByUser)
	authed.POST("/funnels/:id/sessions", sessions.OpenOwned)
	authed.POST("/shared/:token/sessions", sessions.OpenShared)
	authed.GET("/sessions/:sid", sessions.Get)
	authed.DELETE("/sessions/:sid", sessions.Close)
	authed.POST("/sessions/:sid/ops", editLimiter.Handler(), sessions.Apply)
	authed.POST("/sessions/:sid/save", sessions.Save)
	authed.POST("/sessions/:sid/navigate", sessions.Navigate)

	// Audit.
	authed.GET("/audit", audit.Query)
	authed.DELETE("/audit", audit.Purge)

	// WebSocket endpoints.
	if deps.Hub != nil {
		authed.GET("/ws", userWSHandler(ctx, log, deps.Hub, deps.CORSOrigins, lookup))
		authed.GET("/shared/:token/ws", sharedWSHandler(ctx, log, deps.Hub, deps.CORSOrigins, deps.Shares))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
