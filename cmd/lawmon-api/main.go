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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lawmon-api/api/swagger"
	"github.com/noah-isme/lawmon-api/internal/handler"
	"github.com/noah-isme/lawmon-api/internal/repository"
	"github.com/noah-isme/lawmon-api/internal/router"
	"github.com/noah-isme/lawmon-api/internal/service"
	"github.com/noah-isme/lawmon-api/pkg/auth"
	"github.com/noah-isme/lawmon-api/pkg/cache"
	"github.com/noah-isme/lawmon-api/pkg/config"
	"github.com/noah-isme/lawmon-api/pkg/database"
	"github.com/noah-isme/lawmon-api/pkg/export"
	"github.com/noah-isme/lawmon-api/pkg/logger"
	"github.com/noah-isme/lawmon-api/pkg/mailer"
	"github.com/noah-isme/lawmon-api/pkg/realtime"
)

// @title Law Amendment Monitoring API
// @version 1.0.0
// @description Tracks law amendments through review and approval and dispatches notifications.
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	location, err := time.LoadLocation(cfg.DueDate.Timezone)
	if err != nil {
		logr.Sugar().Warnw("unknown timezone, falling back to UTC", "timezone", cfg.DueDate.Timezone, "error", err)
		location = time.UTC
	}

	checks := map[string]handler.ReadinessCheck{}

	store, db, err := openStore(ctx, cfg, location, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to open record store", "driver", cfg.Store.Driver, "error", err)
	}
	if db != nil {
		defer db.Close()
		checks["database"] = db.PingContext
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled || cfg.Realtime.Driver == config.RealtimeRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		redisRepo := repository.NewCacheRepository(redisClient, logr)
		checks["redis"] = redisRepo.Ping
		cacheRepo = redisRepo
	} else {
		cacheRepo = repository.NewMemoryCacheRepository(cfg.Dashboard.CacheTTL, 2*cfg.Dashboard.CacheTTL)
	}
	snapshots := service.NewSnapshotCache(service.SnapshotCacheParams{
		Repo:    cacheRepo,
		Metrics: metrics,
		Logger:  logr,
		TTL:     cfg.Dashboard.CacheTTL,
		Enabled: cfg.Dashboard.CacheEnabled,
	})

	hub := realtime.NewHub(cfg.Realtime.SubscriberBuf, logr)
	defer hub.Close()
	metrics.TrackSubscribers(hub.Len)

	var publisher realtime.Publisher = hub
	if cfg.Realtime.Driver == config.RealtimeRedis {
		publisher = realtime.NewRedisPublisher(redisClient, cfg.Realtime.Channel)
		go func() {
			if err := realtime.Relay(ctx, redisClient, cfg.Realtime.Channel, hub, logr); err != nil {
				logr.Error("realtime relay stopped", zap.Error(err))
			}
		}()
	}

	var mail service.Mailer = mailer.NewLogMailer(logr)
	if cfg.SMTP.Enabled {
		mail = mailer.NewSMTPMailer(cfg.SMTP, logr)
	}

	dispatcher := service.NewDispatcher(service.DispatcherParams{
		Broadcaster: service.NewRealtimeBroadcaster(publisher),
		Mailer:      mail,
		Metrics:     metrics,
		Logger:      logr,
		Config: service.DispatcherConfig{
			EmailSubject:    cfg.Notify.EmailSubject,
			OperatorEmail:   cfg.Notify.OperatorEmail,
			OperatorSubject: cfg.Notify.OperatorSubject,
			SendTimeout:     cfg.Notify.SendTimeout,
		},
	})

	validate := validator.New()
	amendments := service.NewAmendmentService(service.AmendmentServiceParams{
		Store:      store,
		Factory:    service.NewNotificationFactory(nil),
		Dispatcher: dispatcher,
		Cache:      snapshots,
		Metrics:    metrics,
		Validator:  validate,
		Logger:     logr,
		Location:   location,
	})
	notifications := service.NewNotificationService(store, dispatcher, validate, logr)
	dashboard := service.NewDashboardService(service.DashboardServiceParams{
		Source:   store,
		Cache:    snapshots,
		Logger:   logr,
		Location: location,
		Config: service.DashboardServiceConfig{
			MonthlyWindow:      cfg.Dashboard.MonthlyWindow,
			UpcomingWindowDays: cfg.Dashboard.UpcomingWindowDays,
		},
	})
	exporter := service.NewExportService(service.ExportServiceParams{
		Amendments: amendments,
		CSV:        export.NewCSVExporter(),
		PDF:        export.NewPDFExporter(cfg.Export.PDFFontPath),
		Logger:     logr,
		Config:     service.ExportConfig{Title: cfg.Export.PDFTitle},
	})

	if cfg.DueDate.Enabled {
		scanner := service.NewDueDateService(service.DueDateServiceParams{
			Source:   store,
			Notifier: amendments,
			Logger:   logr,
			Location: location,
		})
		scheduler, err := service.NewDueDateScheduler(scanner, service.DueDateSchedulerConfig{
			Cron:       cfg.DueDate.Cron,
			Location:   location,
			Workers:    cfg.DueDate.Workers,
			MaxRetries: cfg.DueDate.MaxRetries,
			RetryDelay: cfg.DueDate.RetryDelay,
		}, metrics, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to schedule due date scan", "error", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	var verifier *auth.Verifier
	if cfg.JWT.Enabled {
		verifier = auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	}

	engine := router.New(router.Config{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		RequireAuth:    cfg.JWT.Enabled,
		ApproverRoles:  cfg.JWT.ApproverRoles,
		TestEmailRate:  cfg.Notify.TestEmailRate,
		TestEmailBurst: cfg.Notify.TestEmailBurst,
	}, router.Handlers{
		Amendments:    handler.NewAmendmentHandler(amendments, exporter),
		Notifications: handler.NewNotificationHandler(notifications, amendments, hub, logr),
		Dashboard:     handler.NewDashboardHandler(dashboard),
		Metrics:       handler.NewMetricsHandler(metrics, checks),
	}, verifier, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver, "realtime", cfg.Realtime.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logr.Info("server exited")
}

func openStore(ctx context.Context, cfg *config.Config, location *time.Location, logr *zap.Logger) (service.RecordStore, *sqlx.DB, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database, logr)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresStore(db), db, nil
	case config.StoreMemory, "":
		seed := repository.Seed{}
		if cfg.Store.Seed {
			seed = repository.DefaultSeed(time.Now().In(location))
		}
		return repository.NewMemoryStore(seed), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
