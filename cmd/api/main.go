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
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/childcare-reservation-api/api/swagger"
	"github.com/noah-isme/childcare-reservation-api/internal/calendar"
	"github.com/noah-isme/childcare-reservation-api/internal/handler"
	"github.com/noah-isme/childcare-reservation-api/internal/middleware"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
	"github.com/noah-isme/childcare-reservation-api/internal/repository"
	"github.com/noah-isme/childcare-reservation-api/internal/service"
	"github.com/noah-isme/childcare-reservation-api/pkg/cache"
	"github.com/noah-isme/childcare-reservation-api/pkg/config"
	"github.com/noah-isme/childcare-reservation-api/pkg/database"
	"github.com/noah-isme/childcare-reservation-api/pkg/export"
	"github.com/noah-isme/childcare-reservation-api/pkg/jobs"
	"github.com/noah-isme/childcare-reservation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/childcare-reservation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/childcare-reservation-api/pkg/middleware/requestid"
	"github.com/noah-isme/childcare-reservation-api/pkg/mq"
)

// @title Childcare Reservation API
// @version 1.0.0
// @description Drop-off reservations with automatic admission control
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @securityDefinitions.basic BasicAuth

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	limits, err := capacityLimits(cfg.Facility)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.Facility.TimeZone)
	if err != nil {
		return fmt.Errorf("load facility time zone %q: %w", cfg.Facility.TimeZone, err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, calendar cache disabled", zap.Error(err))
		redisClient = nil
	}
	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "childcare")
		defer cacheRepo.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	reservationRepo := repository.NewReservationRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	rules := calendar.NewRules(loc, calendar.NewJapanHolidays(logr))
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Calendar.CacheTTL, logr, cfg.Calendar.CacheEnabled && cacheRepo != nil)

	notifier, closeNotifier := newNotifier(ctx, cfg.Notifications, metrics, logr)
	defer closeNotifier()

	admission := service.NewAdmissionService(rules, limits, metrics, logr)
	reservationSvc := service.NewReservationService(reservationRepo, admission, auditRepo, notifier, metrics, validate, logr, cfg.Facility.StoreTimeout)
	overrideSvc := service.NewOverrideService(overrideRepo, rules, auditRepo, cacheSvc, validate, logr)
	calendarSvc := service.NewCalendarService(rules, overrideRepo, cacheSvc, cfg.Calendar.CacheTTL, logr)
	exportSvc := service.NewExportService(reservationRepo, rules, export.NewCSVExporter(), rosterExporter(cfg.Export, logr), validate, logr)
	authSvc := service.NewAuthService(auditRepo, validate, logr, service.AuthConfig{
		Username:          cfg.Staff.Username,
		PasswordHash:      cfg.Staff.PasswordHash,
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	if !authSvc.Configured() {
		logr.Warn("staff account not configured, admin endpoints will refuse all requests")
	}

	checks := map[string]handler.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if cacheRepo != nil {
		checks["redis"] = cacheRepo.Ping
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routes{
		reservations: handler.NewReservationHandler(reservationSvc),
		calendar:     handler.NewCalendarHandler(calendarSvc),
		auth:         handler.NewAuthHandler(authSvc),
		admin:        handler.NewAdminReservationHandler(reservationSvc),
		overrides:    handler.NewOverrideHandler(overrideSvc),
		exports:      handler.NewExportHandler(exportSvc),
		staffAuth:    middleware.StaffAuth(authSvc),
		audit: func(resource string) gin.HandlerFunc {
			return middleware.Audit(auditRepo, logr, models.AuditActionExport, resource)
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
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

type routes struct {
	reservations *handler.ReservationHandler
	calendar     *handler.CalendarHandler
	auth         *handler.AuthHandler
	admin        *handler.AdminReservationHandler
	overrides    *handler.OverrideHandler
	exports      *handler.ExportHandler
	staffAuth    gin.HandlerFunc
	audit        func(resource string) gin.HandlerFunc
}

func registerRoutes(api *gin.RouterGroup, h routes) {
	api.GET("/availability", h.reservations.Availability)
	api.POST("/reservations", h.reservations.Submit)
	api.GET("/calendar", h.calendar.Month)
	api.POST("/admin/login", h.auth.Login)

	admin := api.Group("/admin", h.staffAuth)
	admin.GET("/me", h.auth.Me)
	admin.GET("/reservations", h.admin.List)
	admin.GET("/reservations/:id", h.admin.Get)
	admin.PATCH("/reservations/:id/status", h.admin.UpdateStatus)
	admin.PATCH("/reservations/:id/dropoff", h.admin.UpdateDropoff)
	admin.GET("/reservations/:id/history", h.admin.History)
	admin.GET("/overrides/:date", h.overrides.Get)
	admin.PUT("/overrides/:date", h.overrides.Upsert)
	admin.GET("/capacity", h.admin.Capacity)
	admin.GET("/export/reservations.csv", h.audit("reservations_csv"), h.exports.Reservations)
	admin.GET("/export/people.csv", h.audit("people_csv"), h.exports.People)
	admin.GET("/export/roster.pdf", h.audit("roster_pdf"), h.exports.Roster)
}

// newNotifier wires reservation events to RabbitMQ when enabled, or to the log.
// The returned func drains the queue and closes the broker connection.
func newNotifier(ctx context.Context, cfg config.NotificationsConfig, metrics *service.MetricsService, logr *zap.Logger) (*service.NotificationService, func()) {
	var (
		publisher service.EventPublisher
		mqPub     *mq.Publisher
	)
	if cfg.Enabled {
		p, err := mq.NewPublisher(cfg.AMQPURL, cfg.Exchange, logr)
		if err != nil {
			logr.Warn("broker unavailable, reservation events will be logged only", zap.Error(err))
		} else {
			mqPub = p
			publisher = p
		}
	}
	if publisher == nil {
		publisher = service.NewLogPublisher(logr)
	}

	notifier := service.NewNotificationService(publisher, metrics, logr, cfg.PublishTimeout)
	queue := jobs.NewQueue("reservation-events", notifier.Handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logr,
	})
	queue.Start(ctx)
	notifier.UseQueue(queue)

	return notifier, func() {
		queue.Stop()
		if mqPub != nil {
			if err := mqPub.Close(); err != nil {
				logr.Warn("failed to close broker connection", zap.Error(err))
			}
		}
	}
}

// rosterExporter embeds the configured Japanese font, falling back to the
// core font when none is set or it cannot be read.
func rosterExporter(cfg config.ExportConfig, logr *zap.Logger) *export.PDFExporter {
	if cfg.RosterFontPath == "" {
		logr.Warn("ROSTER_FONT_PATH not set, roster PDF cannot render Japanese names")
		return export.NewPDFExporter()
	}
	exporter, err := export.NewPDFExporterWithFont(cfg.RosterFontPath)
	if err != nil {
		logr.Warn("roster font unavailable, using core font", zap.Error(err))
		return export.NewPDFExporter()
	}
	return exporter
}

func capacityLimits(cfg config.FacilityConfig) (models.CapacityLimits, error) {
	counted := make([]models.ReservationStatus, 0, len(cfg.CountedStatuses))
	for _, raw := range cfg.CountedStatuses {
		status := models.ReservationStatus(raw)
		if !status.Valid() {
			return models.CapacityLimits{}, fmt.Errorf("unknown counted status %q", raw)
		}
		counted = append(counted, status)
	}
	if cfg.DailyLimit < 0 || cfg.MorningLimit < 0 || cfg.AfternoonLimit < 0 || cfg.AutoApproveThreshold < 0 {
		return models.CapacityLimits{}, errors.New("capacity limits must not be negative")
	}
	return models.CapacityLimits{
		Daily:                cfg.DailyLimit,
		Morning:              cfg.MorningLimit,
		Afternoon:            cfg.AfternoonLimit,
		AutoApproveThreshold: cfg.AutoApproveThreshold,
		CountedStatuses:      counted,
		BlockDuplicateChild:  cfg.BlockDuplicateChild,
	}, nil
}
