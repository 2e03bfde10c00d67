// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"facet/internal/domain"
	"facet/internal/infrastructure/http/v1/handlers"
	"facet/internal/infrastructure/http/v1/middleware"
	"facet/internal/infrastructure/storage/postgres"
	"facet/pkg/logger"
)

// RouterConfig wires the repositories into the HTTP surface.
type RouterConfig struct {
	Pool   *pgxpool.Pool
	Logger *logger.Logger

	Attributes    domain.AttributeRepository
	AttributeSets domain.AttributeSetRepository
	EntityTypes   domain.EntityTypeRepository
	Entities      domain.EntityRepository

	// Audit is optional; nil disables mutation auditing.
	Audit *postgres.AuditLog
}

// NewRouter creates and configures the gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Order matters: recovery outermost, then tracing, then logging,
	// with error rendering closest to the handlers.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	base := handlers.NewBaseHandler()
	audit := handlers.NewAuditRecorder(cfg.Audit)

	api := router.Group("/api/v1")
	{
		RegisterCrudRoutes(api.Group("/attributes"),
			handlers.NewAttributeHandler(base, cfg.Attributes, audit))
		RegisterCrudRoutes(api.Group("/attribute-sets"),
			handlers.NewAttributeSetHandler(base, cfg.AttributeSets, audit))
		RegisterCrudRoutes(api.Group("/entities"),
			handlers.NewEntityHandler(base, cfg.Entities, audit))

		// Entity types have no update: code and name are fixed at
		// creation, everything mutable lives on sets and attributes.
		entityTypes := handlers.NewEntityTypeHandler(base, cfg.EntityTypes, audit)
		group := api.Group("/entity-types")
		group.GET("", entityTypes.List)
		group.POST("", entityTypes.Create)
		group.GET("/:id", entityTypes.Get)
		group.DELETE("/:id", entityTypes.Delete)
	}

	return router
}
