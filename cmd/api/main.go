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
	"go.uber.org/zap"

	_ "github.com/noah-isme/coursehub-api/api/swagger"
	"github.com/noah-isme/coursehub-api/internal/handler"
	"github.com/noah-isme/coursehub-api/internal/middleware"
	"github.com/noah-isme/coursehub-api/internal/repository"
	"github.com/noah-isme/coursehub-api/internal/service"
	"github.com/noah-isme/coursehub-api/migrations"
	"github.com/noah-isme/coursehub-api/pkg/cache"
	"github.com/noah-isme/coursehub-api/pkg/config"
	"github.com/noah-isme/coursehub-api/pkg/database"
	"github.com/noah-isme/coursehub-api/pkg/jobs"
	"github.com/noah-isme/coursehub-api/pkg/logger"
	"github.com/noah-isme/coursehub-api/pkg/validation"
)

const shutdownTimeout = 15 * time.Second

// @title CourseHub API
// @version 1.0.0
// @description Course delivery backend: courses, segments, students and enrollments.
// @BasePath /api/v1
// @schemes http https

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
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Migrations.AutoMigrate {
		if err := database.Migrate(db, migrations.FS, "up"); err != nil {
			return err
		}
		logr.Info("migrations applied")
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	metrics := service.NewMetricsService()

	principalRepo := repository.NewPrincipalRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)
	adminRepo := repository.NewAdminRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	provider := service.NewLocalIdentityProvider(principalRepo, sessionRepo, logr.Named("identity"), service.LocalIdentityConfig{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: cfg.Session.Issuer,
	})

	compensator := service.NewPrincipalCompensator(provider, metrics, logr.Named("compensation"))
	compensationQueue := jobs.NewQueue("principal-compensation", compensator.Handle, jobs.QueueConfig{
		Workers:    cfg.Compensation.Workers,
		BufferSize: cfg.Compensation.BufferSize,
		Retry: jobs.RetryPolicy{
			MaxAttempts: cfg.Compensation.MaxAttempts,
			BaseDelay:   cfg.Compensation.RetryDelay,
			MaxDelay:    cfg.Compensation.MaxRetryDelay,
		},
		AttemptTimeout: cfg.Compensation.AttemptTimeout,
		Logger:         logr.Named("jobs"),
		OnGiveUp:       compensator.GiveUp,
	})
	compensator.SetQueue(compensationQueue)
	// The queue outlives the signal context: it is stopped after srv.Shutdown
	// has drained in-flight requests, which may still schedule cleanups.
	compensationQueue.Start(context.Background())
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Compensation.DrainTimeout)
		defer cancel()
		if err := compensationQueue.Stop(drainCtx); err != nil {
			logr.Warn("compensation queue did not drain", zap.Error(err))
		}
	}()

	identitySvc := service.NewIdentityService(provider, adminRepo, studentRepo, logr)
	authSvc := service.NewAuthService(provider, adminRepo, studentRepo, logr)
	courseSvc := service.NewCourseService(courseRepo, segmentRepo, logr)
	segmentSvc := service.NewSegmentService(courseRepo, segmentRepo, logr)
	studentSvc := service.NewStudentService(studentRepo, provider, compensator, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, segmentRepo, cfg.Exports.PDFTitle, logr)
	actionSvc := service.NewActionService(courseSvc, segmentSvc, studentSvc, enrollmentSvc, authSvc, validation.New(),
		service.WithAuditRecorder(auditRepo),
		service.WithActionMetrics(metrics),
		service.WithActionLogger(logr.Named("actions")),
	)

	cookie := middleware.SessionCookie{
		Name:   cfg.Session.CookieName,
		Domain: cfg.Session.CookieDomain,
		Secure: cfg.Session.CookieSecure,
		TTL:    cfg.Session.TTL,
	}

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Cookie:         cookie,
		Logger:         logr,
		Metrics:        metrics,
		Resolver:       identitySvc,
		Actions:        handler.NewActionHandler(actionSvc, cookie),
		Courses:        handler.NewCourseHandler(courseSvc, segmentSvc, enrollmentSvc),
		Students:       handler.NewStudentHandler(studentSvc, enrollmentSvc),
		Me:             handler.NewMeHandler(enrollmentSvc),
		Probes: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"postgres": db.PingContext,
			"redis":    func(ctx context.Context) error { return cache.Ping(ctx, redisClient) },
		}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
