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

	_ "github.com/noah-isme/course-allocation-api/api/swagger"
	"github.com/noah-isme/course-allocation-api/internal/handler"
	"github.com/noah-isme/course-allocation-api/internal/middleware"
	"github.com/noah-isme/course-allocation-api/internal/repository"
	"github.com/noah-isme/course-allocation-api/internal/service"
	"github.com/noah-isme/course-allocation-api/pkg/cache"
	"github.com/noah-isme/course-allocation-api/pkg/config"
	"github.com/noah-isme/course-allocation-api/pkg/database"
	"github.com/noah-isme/course-allocation-api/pkg/jobs"
	"github.com/noah-isme/course-allocation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-allocation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-allocation-api/pkg/middleware/requestid"
)

// @title Course Allocation API
// @version 1.0.0
// @description Course-seat allocation with optimistic concurrency control
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	// A missing Redis degrades caching to no-op rather than blocking startup.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	requirementRepo := repository.NewRequirementRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	// Services.
	metricsService := service.NewMetricsService()

	auditService := service.NewAuditService(auditRepo, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
		Logger:     logr,
	}, logr)

	eligibilityService := service.NewEligibilityService(studentRepo, courseRepo, requirementRepo, enrollmentRepo, logr)
	allocationService := service.NewAllocationService(allocationRepo, enrollmentRepo, metricsService, cfg.Allocation.MaxClaimRetries, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, allocationService, logr)
	requestService := service.NewRequestService(requestRepo, studentRepo, courseRepo, enrollmentRepo, eligibilityService, allocationService, auditService, logr)
	adminService := service.NewAdminService(courseRepo, studentRepo, enrollmentRepo, requestRepo, departmentRepo, semesterRepo, eligibilityService, allocationService, cacheRepo, auditService, cfg.Statistics.CacheTTL, cfg.Allocation.MaxClaimRetries, logr)
	courseService := service.NewCourseService(courseRepo, requirementRepo, semesterRepo, cacheRepo, logr)
	studentService := service.NewStudentService(studentRepo, logr)
	semesterService := service.NewSemesterService(semesterRepo, logr)
	departmentService := service.NewDepartmentService(departmentRepo, logr)
	authService := service.NewAuthService(userRepo, studentRepo, auditService, cfg.JWT, logr)
	portalService := service.NewPortalService(studentRepo, courseRepo, enrollmentRepo, semesterRepo, eligibilityService, cacheRepo, cfg.Catalog.CacheTTL, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditService.Start(ctx)
	defer auditService.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService)
	courseHandler := handler.NewCourseHandler(courseService)
	departmentHandler := handler.NewDepartmentHandler(departmentService)
	semesterHandler := handler.NewSemesterHandler(semesterService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	requestHandler := handler.NewRequestHandler(requestService)
	adminHandler := handler.NewAdminHandler(adminService, auditService)
	portalHandler := handler.NewPortalHandler(portalService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsService))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	portal := protected.Group("/portal")
	{
		portal.GET("/courses", portalHandler.AvailableCourses)
		portal.GET("/courses/:courseId/eligibility", portalHandler.CheckEligibility)
		portal.GET("/transcript", portalHandler.Transcript)
		portal.GET("/transcript/export", portalHandler.ExportTranscript)
		portal.GET("/schedule", portalHandler.Schedule)
	}

	students := protected.Group("/students")
	{
		students.GET("", middleware.RequireStaff(), studentHandler.List)
		students.GET("/:id", studentHandler.Get)
		students.POST("", middleware.RequireAdmin(), studentHandler.Create)
		students.PUT("/:id", middleware.RequireAdmin(), studentHandler.Update)
	}

	courses := protected.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", middleware.RequireStaff(), courseHandler.Create)
		courses.PUT("/:id", middleware.RequireStaff(), courseHandler.Update)
		courses.GET("/:id/requirements", courseHandler.ListRequirements)
		courses.POST("/:id/requirements", middleware.RequireStaff(), courseHandler.AddRequirement)
		courses.DELETE("/:id/requirements/:requirementId", middleware.RequireStaff(), courseHandler.RemoveRequirement)
	}

	departments := protected.Group("/departments")
	{
		departments.GET("", departmentHandler.List)
		departments.GET("/:id", departmentHandler.Get)
		departments.POST("", middleware.RequireAdmin(), departmentHandler.Create)
		departments.PUT("/:id", middleware.RequireAdmin(), departmentHandler.Update)
	}

	semesters := protected.Group("/semesters")
	{
		semesters.GET("", semesterHandler.List)
		semesters.GET("/active", semesterHandler.GetActive)
		semesters.GET("/:id", semesterHandler.Get)
		semesters.POST("", middleware.RequireAdmin(), semesterHandler.Create)
		semesters.POST("/:id/activate", middleware.RequireAdmin(), semesterHandler.Activate)
	}

	enrollments := protected.Group("/enrollments")
	{
		enrollments.GET("", enrollmentHandler.List)
		enrollments.GET("/:id", enrollmentHandler.Get)
		enrollments.POST("/:id/drop", enrollmentHandler.Drop)
		enrollments.POST("/:id/withdraw", enrollmentHandler.Withdraw)
		enrollments.POST("/:id/complete", middleware.RequireStaff(), enrollmentHandler.Complete)
	}

	requests := protected.Group("/requests")
	{
		requests.POST("", requestHandler.Submit)
		requests.GET("", requestHandler.List)
		requests.GET("/:id", requestHandler.Get)
		requests.POST("/:id/process", middleware.RequireStaff(), requestHandler.Process)
		requests.POST("/bulk-approve", middleware.RequireStaff(), requestHandler.BulkApprove)
		requests.POST("/:id/cancel", requestHandler.Cancel)
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/force-enroll", adminHandler.ForceEnroll)
		admin.POST("/enrollments/:id/force-drop", adminHandler.ForceDrop)
		admin.PUT("/courses/:id/capacity", adminHandler.UpdateCapacity)
		admin.GET("/statistics", adminHandler.Statistics)
		admin.GET("/audit", adminHandler.AuditTrail)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
