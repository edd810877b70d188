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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/raito-kakutani/timable/api/swagger"
	"github.com/raito-kakutani/timable/internal/handler"
	"github.com/raito-kakutani/timable/internal/middleware"
	"github.com/raito-kakutani/timable/internal/repository"
	"github.com/raito-kakutani/timable/internal/router"
	"github.com/raito-kakutani/timable/internal/service"
	"github.com/raito-kakutani/timable/pkg/cache"
	"github.com/raito-kakutani/timable/pkg/config"
	"github.com/raito-kakutani/timable/pkg/database"
	"github.com/raito-kakutani/timable/pkg/logger"
	corsmiddleware "github.com/raito-kakutani/timable/pkg/middleware/cors"
	reqidmiddleware "github.com/raito-kakutani/timable/pkg/middleware/requestid"
	"github.com/raito-kakutani/timable/pkg/storage"
)

// @title Timable API
// @version 0.1.0
// @description School timetable solver, rotation and publishing service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	configRepo := repository.NewSchoolConfigRepository(db)
	priorityRepo := repository.NewPriorityRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "timable-api",
	})
	teacherSvc := service.NewTeacherService(teacherRepo, nil, logr)
	classSvc := service.NewClassService(classRepo, teacherRepo, configRepo, nil, logr)
	configSvc := service.NewSchoolConfigService(configRepo, nil, logr)
	prioritySvc := service.NewPriorityService(priorityRepo, classRepo, nil, logr)

	timetableSvc := service.NewTimetableService(
		timetableRepo,
		teacherRepo,
		classRepo,
		configRepo,
		priorityRepo,
		redisClient,
		metricsSvc,
		nil,
		logr,
		service.TimetableServiceConfig{
			SolveTimeout:      cfg.Solver.Timeout,
			OptimizerMaxSwaps: cfg.Solver.OptimizerMaxSwaps,
			HeavyWeight:       cfg.Solver.HeavyWeight,
			RotationWeeks:     cfg.Solver.RotationWeeks,
			RelaxDailyCaps:    cfg.Solver.RelaxDailyCaps,
			ViewCacheTTL:      cfg.Views.CacheTTL,
		},
	)
	scenarioSvc := service.NewScenarioService(timetableSvc, teacherRepo, nil, logr)
	analyticsSvc := service.NewAnalyticsService(timetableSvc, teacherRepo, priorityRepo, logr)
	exportSvc := service.NewExportService(timetableSvc, teacherRepo, exportStore, signer, nil, logr, service.ExportServiceConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		Workers:         cfg.Exports.WorkerConcurrency,
		MaxRetries:      cfg.Exports.WorkerRetries,
	})
	seedSvc := service.NewSeedService(teacherSvc, classSvc, configSvc, prioritySvc, redisClient, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exportSvc.Start(ctx)
	defer exportSvc.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.Register(r, cfg.APIPrefix, authSvc, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Teacher:   handler.NewTeacherHandler(teacherSvc),
		Class:     handler.NewClassHandler(classSvc),
		Config:    handler.NewSchoolConfigHandler(configSvc),
		Priority:  handler.NewPriorityHandler(prioritySvc),
		Timetable: handler.NewTimetableHandler(timetableSvc),
		Scenario:  handler.NewScenarioHandler(scenarioSvc),
		Analytics: handler.NewAnalyticsHandler(analyticsSvc),
		Export:    handler.NewExportHandler(exportSvc, metricsSvc),
		Seed:      handler.NewSeedHandler(seedSvc),
		System:    handler.NewSystemHandler(db, redisClient, metricsSvc),
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
