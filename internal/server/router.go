// Package server assembles the HTTP router.
package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/gym-registration-api/internal/handler"
	internalmiddleware "github.com/noah-isme/gym-registration-api/internal/middleware"
	"github.com/noah-isme/gym-registration-api/internal/service"
	"github.com/noah-isme/gym-registration-api/pkg/config"
	"github.com/noah-isme/gym-registration-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gym-registration-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gym-registration-api/pkg/middleware/requestid"
)

// Options configures router-wide behaviour.
type Options struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         internalmiddleware.TokenValidator
}

// Handlers groups the HTTP handlers mounted on the router.
type Handlers struct {
	Auth          *handler.AuthHandler
	Registrations *handler.RegistrationHandler
	Exports       *handler.ExportHandler
	Ops           *handler.MetricsHandler
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(opts.Metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", h.Ops.Health)
	r.GET("/ready", h.Ops.Ready)
	r.GET("/metrics", h.Ops.Prometheus)
	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	api.POST("/sessions", h.Auth.Login)

	requireToken := internalmiddleware.JWT(opts.Tokens)
	registrations := api.Group("/registrations")
	registrations.GET("/:id", h.Registrations.Show)
	registrations.GET("", requireToken, h.Registrations.Index)
	registrations.POST("", requireToken, h.Registrations.Store)
	registrations.PUT("/:id", requireToken, h.Registrations.Update)
	registrations.DELETE("/:id", requireToken, h.Registrations.Delete)
	registrations.GET("/export", requireToken, h.Exports.Roster)
	registrations.GET("/:id/receipt", requireToken, h.Exports.Receipt)

	return r
}
