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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/exam-observer-api/api/swagger"
	"github.com/noah-isme/exam-observer-api/internal/handler"
	"github.com/noah-isme/exam-observer-api/internal/middleware"
	"github.com/noah-isme/exam-observer-api/internal/models"
	"github.com/noah-isme/exam-observer-api/internal/repository"
	"github.com/noah-isme/exam-observer-api/internal/service"
	"github.com/noah-isme/exam-observer-api/pkg/cache"
	"github.com/noah-isme/exam-observer-api/pkg/config"
	"github.com/noah-isme/exam-observer-api/pkg/database"
	"github.com/noah-isme/exam-observer-api/pkg/jobs"
	"github.com/noah-isme/exam-observer-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-observer-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-observer-api/pkg/middleware/requestid"
	"github.com/noah-isme/exam-observer-api/pkg/storage"
)

// @title Exam Observer API
// @version 1.0.0
// @description Observer allocation engine for exam section coverage
// @BasePath /api
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()

	// Repositories.
	teacherRepo := repository.NewTeacherRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	stageRepo := repository.NewStageRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	examRepo := repository.NewExamRepository(db)
	exclusionRepo := repository.NewExclusionRepository(db)
	eligibilityRepo := repository.NewEligibilityRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)

	// A nil Redis client leaves the cache repository as a pass-through.
	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, roster cache disabled", "error", err)
		} else {
			redisClient = client
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	// Services.
	metricsService := service.NewMetricsService()
	eligibilityService := service.NewEligibilityService(eligibilityRepo, shiftRepo, cfg.Allocation, logr)
	allocationService := service.NewAllocationService(
		shiftRepo, examRepo, sectionRepo, assignmentRepo, historyRepo, teacherRepo,
		eligibilityService, cacheRepo, metricsService, db,
		validate, logr, cfg.Allocation, cfg.Cache.AssignmentTTL,
	)
	exportService := service.NewExportService(assignmentRepo, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.Export.SigningSecret, cfg.Export.URLTTL)
	archiveService := service.NewArchiveService(exportService, exportStore, exportSigner, cfg.Export.URLTTL, validate, logr)
	exportQueue := jobs.NewQueue("roster-exports", archiveService.HandleJob, jobs.QueueConfig{
		Workers: cfg.Export.Workers,
		Logger:  logr,
	})
	archiveService.SetQueue(exportQueue)
	exportQueue.Start(context.Background())
	defer exportQueue.Stop()
	teacherService := service.NewTeacherService(teacherRepo, validate, logr)
	departmentService := service.NewDepartmentService(departmentRepo, validate, logr)
	stageService := service.NewStageService(stageRepo, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo, validate, logr)
	shiftService := service.NewShiftService(shiftRepo, sectionRepo, validate, logr)
	examService := service.NewExamService(examRepo, subjectRepo, stageRepo, shiftRepo, validate, logr)
	exclusionService := service.NewExclusionService(exclusionRepo, teacherRepo, validate, logr)
	historyService := service.NewHistoryService(historyRepo, logr)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "exam-observer-api",
	})

	// Handlers.
	assignmentHandler := handler.NewAssignmentHandler(allocationService, exportService)
	exportHandler := handler.NewExportHandler(archiveService)
	teacherHandler := handler.NewTeacherHandler(teacherService)
	departmentHandler := handler.NewDepartmentHandler(departmentService)
	stageHandler := handler.NewStageHandler(stageService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
	shiftHandler := handler.NewShiftHandler(shiftService)
	examHandler := handler.NewExamHandler(examService)
	exclusionHandler := handler.NewExclusionHandler(exclusionService)
	historyHandler := handler.NewHistoryHandler(historyService)
	authHandler := handler.NewAuthHandler(authService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	mutating := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)

	protected.GET("/assignments", assignmentHandler.List)
	protected.GET("/assignments/summary", assignmentHandler.Summary)
	protected.GET("/assignments/eligible", assignmentHandler.Eligible)
	protected.GET("/assignments/export", assignmentHandler.Export)
	protected.POST("/assignments/export/archive", mutating, exportHandler.Archive)
	protected.GET("/assignments/export/archive/:id", exportHandler.Status)
	protected.DELETE("/assignments/export/archive/:id", mutating, exportHandler.Delete)
	protected.POST("/assignments/export/cleanup", mutating, exportHandler.Cleanup)
	protected.GET("/assignments/export/download", exportHandler.Download)
	protected.POST("/assignments/generate", mutating, assignmentHandler.Generate)
	protected.POST("/assignments", mutating, assignmentHandler.CommitPlan)
	protected.PUT("/assignments/manual", mutating, assignmentHandler.ManualUpdate)
	protected.DELETE("/assignments", mutating, assignmentHandler.Clear)

	protected.GET("/teachers", teacherHandler.List)
	protected.GET("/teachers/:id", teacherHandler.Get)
	protected.POST("/teachers", mutating, teacherHandler.Create)
	protected.PUT("/teachers/:id", mutating, teacherHandler.Update)
	protected.DELETE("/teachers/:id", mutating, teacherHandler.Delete)

	protected.GET("/subjects", subjectHandler.List)
	protected.GET("/subjects/:id", subjectHandler.Get)
	protected.POST("/subjects", mutating, subjectHandler.Create)
	protected.PUT("/subjects/:id", mutating, subjectHandler.Update)
	protected.DELETE("/subjects/:id", mutating, subjectHandler.Delete)

	protected.GET("/departments", departmentHandler.List)
	protected.POST("/departments", mutating, departmentHandler.Create)
	protected.DELETE("/departments/:id", mutating, departmentHandler.Delete)

	protected.GET("/stages", stageHandler.List)
	protected.POST("/stages", mutating, stageHandler.Create)
	protected.PUT("/stages/:id", mutating, stageHandler.Update)
	protected.DELETE("/stages/:id", mutating, stageHandler.Delete)

	protected.GET("/shifts", shiftHandler.List)
	protected.GET("/shifts/:id/sections", shiftHandler.Sections)
	protected.PUT("/shifts/:id", mutating, shiftHandler.UpdateSections)

	protected.GET("/exams", examHandler.List)
	protected.POST("/exams", mutating, examHandler.Create)
	protected.DELETE("/exams/:id", mutating, examHandler.Delete)

	protected.GET("/exclusions", exclusionHandler.List)
	protected.POST("/exclusions", mutating, exclusionHandler.Create)
	protected.DELETE("/exclusions/:id", mutating, exclusionHandler.Delete)

	protected.GET("/history", historyHandler.List)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
	logr.Info("server stopped")
}
