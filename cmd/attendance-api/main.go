package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-attendance-api/api/swagger"
	"github.com/noah-isme/sma-attendance-api/internal/handler"
	"github.com/noah-isme/sma-attendance-api/internal/repository"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	"github.com/noah-isme/sma-attendance-api/pkg/cache"
	"github.com/noah-isme/sma-attendance-api/pkg/config"
	"github.com/noah-isme/sma-attendance-api/pkg/database"
	"github.com/noah-isme/sma-attendance-api/pkg/jobs"
	"github.com/noah-isme/sma-attendance-api/pkg/logger"
)

// @title SMA Attendance API
// @version 1.0.0
// @description Attendance marking, excuse approval and notifications
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database, 5*time.Second)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	repoOpts := []repository.Option{
		repository.WithQueryTimeout(cfg.Attendance.StorageTimeout),
		repository.WithQueryObserver(metrics),
	}
	enrollmentRepo := repository.NewEnrollmentRepository(db, repoOpts...)
	recordRepo := repository.NewAttendanceRecordRepository(db, repoOpts...)
	notificationRepo := repository.NewNotificationRepository(db, repoOpts...)
	userRepo := repository.NewUserRepository(db, repoOpts...)

	checks := map[string]handler.Pinger{"postgres": db}
	var redisClient *redis.Client
	if cfg.Summary.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, summary cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
		}
	}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Summary.CacheTTL, logr, redisClient != nil)

	validate := validator.New()
	clock := service.SystemClock{}

	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	resolver := service.NewEnrollmentService(enrollmentRepo, logr)
	notifier := service.NewNotificationService(notificationRepo, userRepo, clock, metrics, validate, logr)
	if cfg.Notifications.Async {
		notifier.EnableAsync(ctx, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.Retries,
			RetryDelay: cfg.Notifications.RetryDelay,
		})
	}
	defer notifier.Close()

	summarySvc := service.NewSummaryService(recordRepo, cacheSvc, cfg.Summary.CacheTTL, logr)
	attendanceSvc := service.NewAttendanceService(resolver, recordRepo, notifier, summarySvc, metrics, validate, logr)
	excuseSvc := service.NewExcuseService(resolver, enrollmentRepo, recordRepo, notifier, summarySvc, clock, metrics, validate, logr)

	r := newRouter(cfg, logr, routeDeps{
		auth:          authSvc,
		metrics:       metrics,
		attendance:    handler.NewAttendanceHandler(attendanceSvc, summarySvc),
		excuses:       handler.NewExcuseHandler(excuseSvc),
		notifications: handler.NewNotificationHandler(notifier),
		observability: handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
