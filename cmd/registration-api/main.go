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
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-registration-api/api/swagger"
	"github.com/noah-isme/course-registration-api/internal/handler"
	"github.com/noah-isme/course-registration-api/internal/middleware"
	"github.com/noah-isme/course-registration-api/internal/repository"
	"github.com/noah-isme/course-registration-api/internal/service"
	"github.com/noah-isme/course-registration-api/pkg/cache"
	"github.com/noah-isme/course-registration-api/pkg/config"
	"github.com/noah-isme/course-registration-api/pkg/database"
	"github.com/noah-isme/course-registration-api/pkg/events"
	"github.com/noah-isme/course-registration-api/pkg/jobs"
	"github.com/noah-isme/course-registration-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-registration-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-registration-api/pkg/middleware/requestid"
)

// @title Course Registration API
// @version 1.0.0
// @description Enrollment transaction engine for course registration
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(context.Background(), db, os.Args[2:], logr); err != nil {
			logr.Fatal("migration failed", zap.Error(err))
		}
		return
	}

	if cfg.Database.AutoMigrate {
		if err := runMigrate(context.Background(), db, []string{"up"}, logr); err != nil {
			logr.Fatal("auto migration failed", zap.Error(err))
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Redis.CacheTTL, logr, redisClient != nil)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		rabbit, err := events.NewRabbitMQPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange, logr)
		if err != nil {
			logr.Warn("rabbitmq unavailable, enrollment events will not be published", zap.Error(err))
		} else {
			publisher = rabbit
		}
	}
	defer publisher.Close() //nolint:errcheck

	eventWorker := service.NewEventWorker(publisher, metricsSvc, logr)
	eventQueue := jobs.NewQueue("enrollment-events", eventWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Events.Workers,
		MaxRetries: cfg.Events.Retries,
		RetryDelay: cfg.Events.RetryDelay,
		Logger:     logr,
	})
	eventQueue.Start(context.Background())
	defer eventQueue.Stop()

	validate := validator.New()

	registrationRepo := repository.NewRegistrationRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)

	registrationSvc := service.NewRegistrationService(
		registrationRepo,
		enrollmentRepo,
		cacheSvc,
		service.NewEventDispatcher(eventQueue, logr),
		metricsSvc,
		validate,
		logr,
		service.RegistrationServiceConfig{TxTimeout: cfg.Registration.TxTimeout},
	)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	semesterSvc := service.NewSemesterService(semesterRepo, cacheSvc, logr)
	tokenSvc := service.NewTokenService(logr, service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(cacheRepo.Ping)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Routes{
		Tokens:      tokenSvc,
		Enrollments: handler.NewEnrollmentHandler(registrationSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Semesters:   handler.NewSemesterHandler(semesterSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc, checks),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func runMigrate(ctx context.Context, db *sqlx.DB, args []string, logr *zap.Logger) error {
	migrator, err := database.NewMigrator(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logr.Warn("failed to release migrator", zap.Error(err))
		}
	}()

	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	switch direction {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "version":
	default:
		return fmt.Errorf("unknown migrate command %q", direction)
	}
	if err != nil {
		return err
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	logr.Info("schema migrated", zap.String("direction", direction), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
