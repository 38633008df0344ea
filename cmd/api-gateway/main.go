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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/degree-planner-api/api/swagger"
	"github.com/noah-isme/degree-planner-api/internal/degree"
	"github.com/noah-isme/degree-planner-api/internal/handler"
	internalmiddleware "github.com/noah-isme/degree-planner-api/internal/middleware"
	"github.com/noah-isme/degree-planner-api/internal/repository"
	"github.com/noah-isme/degree-planner-api/internal/service"
	"github.com/noah-isme/degree-planner-api/pkg/cache"
	"github.com/noah-isme/degree-planner-api/pkg/config"
	"github.com/noah-isme/degree-planner-api/pkg/database"
	"github.com/noah-isme/degree-planner-api/pkg/jobs"
	"github.com/noah-isme/degree-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/degree-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/degree-planner-api/pkg/middleware/requestid"
)

// @title Degree Planner API
// @version 1.0.0
// @description Degree requirement tracking: catalogs, transcripts and computed degree status.
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("failed to migrate database", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo *repository.CacheRepository
	if cfg.Degree.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis, 5*time.Second)
		if err != nil {
			logr.Warn("redis unavailable, degree status cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	var cacheStore service.CacheRepository
	if cacheRepo != nil {
		cacheStore = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheStore, metricsSvc, cfg.Degree.CacheTTL, logr, cacheRepo != nil)

	catalogRepo := repository.NewCatalogRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	engine := degree.NewEngine(logr, degree.WithSearchBudget(cfg.Degree.SearchBudget))
	transcriptSvc := service.NewTranscriptService(validate, metricsSvc, logr)
	degreeSvc := service.NewDegreeStatusService(studentRepo, catalogRepo, courseRepo, transcriptSvc, engine, cacheSvc, metricsSvc, validate, logr)
	exportSvc := service.NewExportService(degreeSvc, logr, nil, nil)

	recomputeQueue := jobs.NewQueue("degree-recompute", degreeSvc.HandleRecompute, jobs.QueueConfig{
		Workers:    cfg.Recompute.Workers,
		MaxRetries: cfg.Recompute.Retries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	recomputeQueue.Start(ctx)
	defer recomputeQueue.Stop()

	catalogSvc := service.NewCatalogService(catalogRepo, studentRepo, courseRepo, recomputeQueue, cacheSvc, validate, logr)

	checks := map[string]handler.Pinger{"database": handler.PingFunc(db.PingContext)}
	if cacheRepo != nil {
		checks["cache"] = cacheRepo
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	degreeHandler := handler.NewDegreeStatusHandler(degreeSvc, exportSvc)
	transcriptHandler := handler.NewTranscriptHandler(transcriptSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Swagger.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/transcripts/parse", transcriptHandler.Parse)
	api.PUT("/courses", catalogHandler.UpsertCourses)

	catalogs := api.Group("/catalogs")
	catalogs.GET("", catalogHandler.List)
	catalogs.POST("", catalogHandler.Create)
	catalogs.POST("/validate", catalogHandler.Validate)
	catalogs.GET("/:id", catalogHandler.Get)
	catalogs.PUT("/:id", catalogHandler.Update)
	catalogs.DELETE("/:id", catalogHandler.Delete)

	students := api.Group("/students/:id")
	students.GET("/degree-status", degreeHandler.Get)
	students.POST("/degree-status/compute", degreeHandler.Compute)
	students.GET("/degree-status/export", degreeHandler.Export)
	students.PUT("/catalog", degreeHandler.AssignCatalog)
	students.POST("/transcript", degreeHandler.ImportTranscript)
	students.PUT("/courses/:courseId", degreeHandler.UpdateCourse)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
