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
	"go.uber.org/zap"

	"github.com/noah-isme/ziel-classes-api/internal/handler"
	"github.com/noah-isme/ziel-classes-api/internal/repository"
	"github.com/noah-isme/ziel-classes-api/internal/router"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
	"github.com/noah-isme/ziel-classes-api/internal/service"
	"github.com/noah-isme/ziel-classes-api/pkg/cache"
	"github.com/noah-isme/ziel-classes-api/pkg/config"
	"github.com/noah-isme/ziel-classes-api/pkg/database"
	"github.com/noah-isme/ziel-classes-api/pkg/logger"
)

// @title Ziel Classes API
// @version 1.0.0
// @description Tutoring center bookings, teacher availability and conflict checks.
// @BasePath /api
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	rules, hours, err := schedulingFromConfig(cfg.Scheduling)
	if err != nil {
		return err
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cacheRepo.Enabled())

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "ziel-classes-api",
	})
	if _, err := service.EnsureAdmin(ctx, userRepo, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName, logr); err != nil {
		return err
	}

	auditSvc := service.NewAuditService(userRepo, service.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		Workers:    cfg.Audit.Workers,
		Retries:    cfg.Audit.Retries,
		RetryDelay: cfg.Audit.RetryDelay,
	}, logr)
	// Audit workers outlive the signal context; the deferred Stop runs after Shutdown and flushes the buffer.
	auditSvc.Start(context.WithoutCancel(ctx))
	defer auditSvc.Stop()

	bookingSvc := service.NewBookingService(bookingRepo, teacherRepo, studentRepo, rules, metrics, validate, logr)
	slotSvc := service.NewSlotService(bookingRepo, teacherRepo, studentRepo, hours, logr)
	exportSvc := service.NewExportService(bookingRepo, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, authSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Students: studentRepo,
		Teachers: teacherRepo,
		Bookings: bookingRepo,
		Cache:    cacheSvc,
		CacheTTL: cfg.Dashboard.CacheTTL,
		Logger:   logr,
	})

	handlers := router.Handlers{
		Booking: handler.NewBookingHandler(bookingSvc, slotSvc, exportSvc),
		Teacher: handler.NewTeacherHandler(teacherSvc),
		Student: handler.NewStudentHandler(studentSvc),
		Auth:    handler.NewAuthHandler(authSvc),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"database": db.PingContext,
			"cache":    cacheRepo.Ping,
		}),
	}
	if cfg.Dashboard.Enabled {
		handlers.Dashboard = handler.NewDashboardHandler(dashboardSvc)
	}

	engine := router.New(router.Params{
		Logger:         logr,
		Metrics:        metrics,
		Auth:           authSvc,
		Audit:          auditSvc,
		Dashboard:      dashboardSvc,
		Handlers:       handlers,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func schedulingFromConfig(cfg config.SchedulingConfig) (service.BookingRules, scheduling.WorkingHours, error) {
	parse := func(name, raw string) (scheduling.TimeOfDay, error) {
		t, err := scheduling.ParseTimeOfDay(raw)
		if err != nil {
			return "", fmt.Errorf("config %s: %w", name, err)
		}
		return t, nil
	}

	var (
		rules service.BookingRules
		hours scheduling.WorkingHours
		err   error
	)
	if rules.PartTimeSlot.Start, err = parse("SCHEDULING_PART_TIME_SLOT_START", cfg.PartTimeSlotStart); err != nil {
		return rules, hours, err
	}
	if rules.PartTimeSlot.End, err = parse("SCHEDULING_PART_TIME_SLOT_END", cfg.PartTimeSlotEnd); err != nil {
		return rules, hours, err
	}
	if !rules.PartTimeSlot.Valid() {
		return rules, hours, fmt.Errorf("config: part-time slot %s-%s is empty", rules.PartTimeSlot.Start, rules.PartTimeSlot.End)
	}
	if hours.Start, err = parse("SCHEDULING_WORKING_HOURS_START", cfg.WorkingHoursStart); err != nil {
		return rules, hours, err
	}
	if hours.End, err = parse("SCHEDULING_WORKING_HOURS_END", cfg.WorkingHoursEnd); err != nil {
		return rules, hours, err
	}
	hours.SlotDuration = cfg.SlotDuration
	return rules, hours, nil
}
