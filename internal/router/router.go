package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lawmon-api/internal/handler"
	"github.com/noah-isme/lawmon-api/internal/middleware"
	"github.com/noah-isme/lawmon-api/internal/service"
	"github.com/noah-isme/lawmon-api/pkg/auth"
	"github.com/noah-isme/lawmon-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lawmon-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lawmon-api/pkg/middleware/requestid"
)

// Config controls route registration.
type Config struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	// RequireAuth guards mutating routes with a bearer token. Read routes stay open.
	RequireAuth    bool
	ApproverRoles  []string
	TestEmailRate  float64
	TestEmailBurst int
}

// Handlers groups every HTTP handler served by the API.
type Handlers struct {
	Amendments    *handler.AmendmentHandler
	Notifications *handler.NotificationHandler
	Dashboard     *handler.DashboardHandler
	Metrics       *handler.MetricsHandler
}

// New builds the gin engine with middleware and routes.
func New(cfg Config, h Handlers, verifier *auth.Verifier, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}
	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authn := func(c *gin.Context) { c.Next() }
	authz := authn
	if verifier != nil {
		authn = middleware.OptionalJWT(verifier)
		if cfg.RequireAuth {
			authn = middleware.JWT(verifier)
			authz = middleware.RequireRoles(cfg.ApproverRoles...)
		}
	}
	testEmailLimit := middleware.NewRateLimiter(cfg.TestEmailRate, cfg.TestEmailBurst)

	api := r.Group(prefix)
	api.GET("/metrics/summary", h.Metrics.Summary)
	api.GET("/dashboard/stats", h.Dashboard.Stats)

	amendments := api.Group("/law-amendments")
	amendments.GET("", h.Amendments.List)
	amendments.GET("/export", h.Amendments.Export)
	amendments.GET("/:id", h.Amendments.Get)
	amendments.PUT("/:id/status", authn, authz, middleware.Audit(logr, "amendment.transition"), h.Amendments.UpdateStatus)
	amendments.PUT("/:id", authn, authz, middleware.Audit(logr, "amendment.transition"), h.Amendments.UpdateStatus)
	amendments.POST("/:id/approval-request", authn, middleware.Audit(logr, "amendment.approval_request"), h.Amendments.RequestApproval)

	notifications := api.Group("/notifications")
	notifications.GET("", h.Notifications.List)
	notifications.GET("/stream", h.Notifications.Stream)
	notifications.POST("/mark-read", h.Notifications.MarkRead)
	notifications.POST("/test-email", testEmailLimit.Middleware(), h.Notifications.SendTestEmail)

	api.POST("/notification-settings", authn, middleware.Audit(logr, "notification_setting.upsert"), h.Notifications.UpsertSetting)
	api.GET("/laws/:lawId/notifications", h.Notifications.GetSetting)
	api.PUT("/laws/:lawId/notifications", authn, middleware.Audit(logr, "notification_setting.upsert"), h.Notifications.UpsertSetting)

	return r
}
