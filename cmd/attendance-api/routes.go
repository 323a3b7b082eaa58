package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/handler"
	"github.com/noah-isme/sma-attendance-api/internal/middleware"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	"github.com/noah-isme/sma-attendance-api/pkg/config"
	"github.com/noah-isme/sma-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-attendance-api/pkg/middleware/requestid"
)

type routeDeps struct {
	auth          middleware.TokenValidator
	metrics       *service.MetricsService
	attendance    *handler.AttendanceHandler
	excuses       *handler.ExcuseHandler
	notifications *handler.NotificationHandler
	observability *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.observability.Health)
	r.GET("/ready", deps.observability.Ready)
	r.GET("/metrics", deps.observability.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	api := r.Group(cfg.APIPrefix, middleware.JWT(deps.auth))
	{
		attendance := api.Group("/attendance")
		attendance.POST("/mark", staff, deps.attendance.Mark)
		attendance.GET("/summary", deps.attendance.Summary)

		excuses := api.Group("/excuses")
		excuses.POST("", middleware.RequireRoles(models.RoleStudent), deps.excuses.Submit)
		excuses.GET("/pending", staff, deps.excuses.Pending)
		excuses.POST("/approve", staff, deps.excuses.Approve)
		excuses.POST("/reject", staff, deps.excuses.Reject)

		notifications := api.Group("/notifications")
		notifications.GET("", deps.notifications.List)
		notifications.PATCH("/:id/read", deps.notifications.MarkRead)
	}
	return r
}
