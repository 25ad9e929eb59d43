package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/unidept/timetable-api/api/swagger"
	"github.com/unidept/timetable-api/internal/handler"
	"github.com/unidept/timetable-api/internal/middleware"
	"github.com/unidept/timetable-api/internal/repository"
	"github.com/unidept/timetable-api/internal/service"
	"github.com/unidept/timetable-api/pkg/cache"
	"github.com/unidept/timetable-api/pkg/config"
	"github.com/unidept/timetable-api/pkg/database"
	"github.com/unidept/timetable-api/pkg/jobs"
	"github.com/unidept/timetable-api/pkg/logger"
	corsmiddleware "github.com/unidept/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/unidept/timetable-api/pkg/middleware/requestid"
)

// @title Department Timetable API
// @version 1.0.0
// @description Scheduling engine for university department timetables
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, timetable cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Repositories.
	semesterRepo := repository.NewSemesterRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	doctorRepo := repository.NewDoctorRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	timeSlotRepo := repository.NewTimeSlotRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Async audit trail.
	var auditSvc *service.AuditService
	if cfg.Audit.Enabled {
		worker := service.NewAuditWorker(auditRepo, logr)
		queue := jobs.NewQueue("audit-trail", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Audit.Workers,
			BufferSize: cfg.Audit.BufferSize,
			Logger:     logr,
		})
		queue.Start(context.Background())
		defer queue.Stop()
		auditSvc = service.NewAuditService(queue, auditRepo, logr)
	}

	// Services.
	conflictSvc := service.NewConflictService(sectionRepo, classroomRepo, scheduleRepo,
		service.ConflictConfig{MaxSlotsPerEntry: cfg.Timetable.MaxSlotsPerEntry}, logr)
	timetableSvc := service.NewTimetableService(sectionRepo, timeSlotRepo, classroomRepo,
		scheduleRepo, doctorRepo, conflictSvc, auditSvc, cacheRepo, metrics, logr,
		service.TimetableConfig{CacheTTL: cfg.Timetable.CacheTTL})
	semesterSvc := service.NewSemesterService(semesterRepo, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, validate, logr)
	doctorSvc := service.NewDoctorService(doctorRepo, validate, logr)
	sectionSvc := service.NewSectionService(sectionRepo, doctorRepo, validate, logr)
	timeSlotSvc := service.NewTimeSlotService(timeSlotRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, conflictSvc, cacheRepo, validate, logr)

	// Handlers.
	semesterHandler := handler.NewSemesterHandler(semesterSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	doctorHandler := handler.NewDoctorHandler(doctorSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc)
	timeSlotHandler := handler.NewTimeSlotHandler(timeSlotSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc, conflictSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		semesters := api.Group("/semesters")
		semesters.GET("", semesterHandler.List)
		semesters.POST("", semesterHandler.Create)
		semesters.GET("/:id", semesterHandler.Get)
		semesters.PUT("/:id", semesterHandler.Update)
		semesters.DELETE("/:id", semesterHandler.Delete)
		semesters.POST("/:id/activate", semesterHandler.Activate)

		semesters.GET("/:id/timetable", timetableHandler.Timetable)
		semesters.POST("/:id/timetable/generate", timetableHandler.Generate)
		semesters.POST("/:id/timetable/validate", timetableHandler.Validate)
		semesters.POST("/:id/timetable/publish", timetableHandler.Publish)

		if cfg.Exports.Enabled {
			exportSvc := service.NewExportService(timetableSvc, semesterRepo, nil, nil, logr)
			exportHandler := handler.NewExportHandler(exportSvc)
			semesters.GET("/:id/timetable/export", exportHandler.Timetable)
		}

		if auditSvc != nil {
			auditHandler := handler.NewAuditHandler(auditSvc)
			semesters.GET("/:id/audit", auditHandler.Trail)
		}

		classrooms := api.Group("/classrooms")
		classrooms.GET("", classroomHandler.List)
		classrooms.POST("", classroomHandler.Create)
		classrooms.GET("/:id", classroomHandler.Get)
		classrooms.PUT("/:id", classroomHandler.Update)
		classrooms.DELETE("/:id", classroomHandler.Delete)

		doctors := api.Group("/doctors")
		doctors.GET("", doctorHandler.List)
		doctors.POST("", doctorHandler.Create)
		doctors.GET("/:id", doctorHandler.Get)
		doctors.PUT("/:id", doctorHandler.Update)
		doctors.DELETE("/:id", doctorHandler.Delete)

		sections := api.Group("/sections")
		sections.GET("", sectionHandler.List)
		sections.POST("", sectionHandler.Create)
		sections.GET("/:id", sectionHandler.Get)
		sections.PUT("/:id", sectionHandler.Update)
		sections.DELETE("/:id", sectionHandler.Delete)

		timeslots := api.Group("/timeslots")
		timeslots.GET("", timeSlotHandler.List)
		timeslots.POST("", timeSlotHandler.Create)
		timeslots.GET("/:id", timeSlotHandler.Get)
		timeslots.PUT("/:id", timeSlotHandler.Update)
		timeslots.DELETE("/:id", timeSlotHandler.Delete)

		schedules := api.Group("/schedules")
		schedules.GET("", scheduleHandler.List)
		schedules.POST("", scheduleHandler.Create)
		schedules.GET("/:id", scheduleHandler.Get)
		schedules.PUT("/:id", scheduleHandler.Update)
		schedules.DELETE("/:id", scheduleHandler.Delete)
		schedules.POST("/:id/cancel", scheduleHandler.Cancel)

		api.POST("/timetable/check", timetableHandler.CheckConflicts)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
