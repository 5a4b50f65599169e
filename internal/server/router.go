// Package server assembles the gin engine and its route table.
package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/masjid-field-reports/internal/handler"
	"github.com/noah-isme/masjid-field-reports/internal/middleware"
	"github.com/noah-isme/masjid-field-reports/internal/models"
	"github.com/noah-isme/masjid-field-reports/internal/service"
	"github.com/noah-isme/masjid-field-reports/pkg/config"
	"github.com/noah-isme/masjid-field-reports/pkg/logger"
	corsmiddleware "github.com/noah-isme/masjid-field-reports/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/masjid-field-reports/pkg/middleware/requestid"
)

// Handlers are the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Auth      *handler.AuthHandler
	Reference *handler.ReferenceHandler
	Records   *handler.RecordHandler
	Selection *handler.SelectionHandler
	Forms     *handler.FormHandler
	Results   *handler.ResultsHandler
	Metrics   *handler.MetricsHandler
}

// Deps are the cross-cutting collaborators of the router.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *service.MetricsService
	Auth    *service.AuthService
}

// NewRouter builds the engine with the middleware chain and every route.
func NewRouter(deps Deps, h Handlers) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Auth))
	reviewer := middleware.RequireReviewer()

	secured.GET("/auth/me", h.Auth.Me)

	secured.GET("/reference", h.Reference.Get)
	secured.GET("/reference/export", reviewer, h.Reference.Export)
	secured.POST("/reference/import", middleware.RequireRoles(models.RoleSuperAdmin), h.Reference.Import)

	records := secured.Group("/records/:kind")
	records.GET("", h.Records.List)
	records.GET("/:id", h.Records.Get)
	records.PUT("/:id", h.Records.Edit)
	records.PATCH("/:id/status", reviewer, h.Records.SetStatus)

	selection := secured.Group("/selection/:kind", reviewer)
	selection.GET("", h.Selection.Get)
	selection.POST("/toggle", h.Selection.Toggle)
	selection.POST("/toggle-all", h.Selection.ToggleAll)
	selection.POST("/bulk", h.Selection.Bulk)

	forms := secured.Group("/forms")
	forms.POST("", h.Forms.Open)
	forms.GET("/:id", h.Forms.Get)
	forms.PATCH("/:id", h.Forms.Update)
	forms.DELETE("/:id", h.Forms.Cancel)
	forms.POST("/:id/submit", h.Forms.Submit)

	secured.GET("/results/evaluations", h.Results.Evaluations)

	secured.GET("/exports/records/:kind", h.Records.Export)
	secured.GET("/exports/evaluations", h.Results.Export)

	secured.GET("/metrics/summary", reviewer, h.Metrics.Summary)

	return r
}
