package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/seminar-ops/scheduling-api/api/swagger"
	"github.com/seminar-ops/scheduling-api/internal/handler"
	"github.com/seminar-ops/scheduling-api/internal/middleware"
	"github.com/seminar-ops/scheduling-api/internal/repository"
	"github.com/seminar-ops/scheduling-api/internal/service"
	"github.com/seminar-ops/scheduling-api/pkg/cache"
	"github.com/seminar-ops/scheduling-api/pkg/config"
	"github.com/seminar-ops/scheduling-api/pkg/database"
	"github.com/seminar-ops/scheduling-api/pkg/logger"
	"github.com/seminar-ops/scheduling-api/pkg/mailer"
	corsmiddleware "github.com/seminar-ops/scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/seminar-ops/scheduling-api/pkg/middleware/requestid"
)

// @title Seminar Ops Scheduling API
// @version 1.0.0
// @description Course scheduling, trainer assignment and recommendation service
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()

	courseRepo := repository.NewCourseRepository(db)
	trainerRepo := repository.NewTrainerRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	metricsSvc := service.NewMetricsService()

	var suggestionCache service.SuggestionCache
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		suggestionCache = service.NewRedisSuggestionCache(cacheRepo, cfg.Matching.CacheTTL, logr)
	} else {
		suggestionCache = service.NewMemorySuggestionCache(cfg.Matching.CacheTTL, nil)
	}

	authSvc, err := service.NewAuthService(cfg.Auth, validate, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init auth service", "error", err)
	}

	conflictSvc := service.NewConflictService(courseRepo)
	ruleScorer := service.NewRuleScorer()

	var primary service.Scorer
	model := ""
	if cfg.Matching.APIKey != "" {
		scorer := service.NewOpenAIScorer(cfg.Matching, logr)
		primary = scorer
		model = scorer.Model()
	} else {
		logr.Info("external matching service not configured, using rule-based ranking only")
	}
	matchingSvc := service.NewMatchingService(courseRepo, trainerRepo, primary, ruleScorer, suggestionCache, model, metricsSvc, logr)

	courseSvc := service.NewCourseService(courseRepo, trainerRepo, conflictSvc, validate, logr)
	trainerSvc := service.NewTrainerService(trainerRepo, courseRepo, validate, logr)
	historySvc := service.NewHistoryService(historyRepo, cfg.History.Limit)
	exportSvc := service.NewExportService(courseRepo, trainerRepo, historyRepo)

	var assignmentSvc *service.AssignmentService
	if cfg.Mail.Host != "" {
		assignmentSvc = service.NewAssignmentService(courseRepo, trainerRepo, conflictSvc, mailer.New(cfg.Mail), metricsSvc, logr)
	} else {
		logr.Info("smtp not configured, assignment emails disabled")
		assignmentSvc = service.NewAssignmentService(courseRepo, trainerRepo, conflictSvc, nil, metricsSvc, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	trainerHandler := handler.NewTrainerHandler(trainerSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, historySvc)
	matchingHandler := handler.NewMatchingHandler(matchingSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

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
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("", middleware.JWT(authSvc))
	protected.GET("/auth/me", authHandler.Me)

	protected.GET("/courses", courseHandler.List)
	protected.POST("/courses", courseHandler.Create)
	protected.GET("/courses/:id", courseHandler.Get)
	protected.PUT("/courses/:id", courseHandler.Update)
	protected.DELETE("/courses/:id", courseHandler.Delete)
	protected.POST("/courses/:id/assign", assignmentHandler.Assign)
	protected.GET("/courses/:id/match", matchingHandler.Match)

	protected.GET("/trainers", trainerHandler.List)
	protected.POST("/trainers", trainerHandler.Create)
	protected.GET("/trainers/:id", trainerHandler.Get)
	protected.PUT("/trainers/:id", trainerHandler.Update)
	protected.DELETE("/trainers/:id", trainerHandler.Delete)

	protected.GET("/assignments/history", assignmentHandler.History)

	protected.GET("/export/schedule", exportHandler.ScheduleCSV)
	protected.GET("/export/history", exportHandler.HistoryPDF)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
