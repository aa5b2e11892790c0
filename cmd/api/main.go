package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gym-registration-api/api/swagger"
	"github.com/noah-isme/gym-registration-api/internal/handler"
	"github.com/noah-isme/gym-registration-api/internal/repository"
	"github.com/noah-isme/gym-registration-api/internal/server"
	"github.com/noah-isme/gym-registration-api/internal/service"
	"github.com/noah-isme/gym-registration-api/pkg/cache"
	"github.com/noah-isme/gym-registration-api/pkg/config"
	"github.com/noah-isme/gym-registration-api/pkg/database"
	"github.com/noah-isme/gym-registration-api/pkg/jobs"
	"github.com/noah-isme/gym-registration-api/pkg/logger"
)

// @title Gym Registration API
// @version 1.0.0
// @description Enrolls gym students in plans and manages their registrations
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB, logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled || cfg.Queue.Driver == config.QueueDriverRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			if cfg.Queue.Driver == config.QueueDriverRedis {
				logr.Fatal("redis is required by the redis queue driver", zap.Error(err))
			}
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	planRepo := repository.NewPlanRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	worker := service.NewRegistrationMailWorker(service.NewLogMailer(logr.Named("mailer")), metrics, logr)
	queue := newQueue(cfg, redisClient, worker, logr)
	queue.Start(ctx)
	defer queue.Stop()

	gate := service.NewAdminGate(userRepo)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	registrationSvc := service.NewRegistrationService(registrationRepo, studentRepo, planRepo, gate, queue, cacheSvc, metrics, validate, logr, service.RegistrationServiceConfig{
		PastDateTolerance: cfg.Registration.PastDateTolerance,
		CacheTTL:          cfg.Cache.TTL,
	})
	exportSvc := service.NewExportService(registrationRepo, gate, logr, nil, nil)

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := server.NewRouter(server.Options{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         authSvc,
	}, server.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Registrations: handler.NewRegistrationHandler(registrationSvc),
		Exports:       handler.NewExportHandler(exportSvc),
		Ops:           handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "queue", cfg.Queue.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newQueue(cfg *config.Config, client *redis.Client, worker *service.RegistrationMailWorker, logr *zap.Logger) jobs.Runner {
	queueCfg := jobs.QueueConfig{
		Workers:    cfg.Queue.Workers,
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
		Logger:     logr.Named("queue"),
	}
	if cfg.Queue.Driver == config.QueueDriverRedis && client != nil {
		return jobs.NewRedisQueue(cfg.Queue.Name, client, worker.Handle, queueCfg)
	}
	return jobs.NewQueue(cfg.Queue.Name, worker.Handle, queueCfg)
}
