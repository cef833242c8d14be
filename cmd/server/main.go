package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qbdsync/backend/internal/application/qbwc"
	appqueue "github.com/qbdsync/backend/internal/application/queue"
	apprealm "github.com/qbdsync/backend/internal/application/realm"
	"github.com/qbdsync/backend/internal/application/translator"
	"github.com/qbdsync/backend/internal/infrastructure/auth"
	"github.com/qbdsync/backend/internal/infrastructure/config"
	"github.com/qbdsync/backend/internal/infrastructure/lock"
	"github.com/qbdsync/backend/internal/infrastructure/logger"
	"github.com/qbdsync/backend/internal/infrastructure/persistence"
	"github.com/qbdsync/backend/internal/infrastructure/storage"
	"github.com/qbdsync/backend/internal/infrastructure/telemetry"
	"github.com/qbdsync/backend/internal/interfaces/http/handler"
	"github.com/qbdsync/backend/internal/interfaces/http/middleware"
	"github.com/qbdsync/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/qbdsync/backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(cfg.Log)
	defer func() {
		_ = log.Sync()
	}()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting QuickBooks sync server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = logger.Tee(log, providers.LogCore(logger.Level(cfg.Log)))

	profiler, err := telemetry.StartProfiler(cfg.Telemetry.Profiling, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Failed to stop profiler", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get underlying sql.DB", zap.Error(err))
	}

	locker, closeLocker, err := newLocker(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize realm locker", zap.Error(err))
	}
	defer closeLocker()

	meter := otel.Meter(instrumentationName)
	syncMetrics, err := telemetry.NewSyncMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}
	dispatchOpts := []qbwc.Option{qbwc.WithMetrics(syncMetrics)}

	if cfg.Archive.Enabled {
		archive, err := storage.NewS3Archive(ctx, cfg.Archive, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize qbXML archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare qbXML archive bucket", zap.Error(err))
		}
		dispatchOpts = append(dispatchOpts, qbwc.WithArchiver(archive))
		log.Info("qbXML archive enabled", zap.String("bucket", cfg.Archive.Bucket))
	}

	// Repositories bound to the root connection serve reads outside the
	// dispatch transaction.
	repos := persistence.NewGormRepositories(db.DB)
	hasher := auth.NewPasswordHasher(cfg.Password.BcryptCost)
	registry := apprealm.NewRegistryService(repos.Realms(), hasher, log)
	translate := translator.New(log)
	taskService := appqueue.NewTaskService(repos.Tasks(), repos, translate, log)

	dispatcher := qbwc.NewDispatcher(
		registry,
		persistence.NewGormTransactionScope(db.DB),
		locker,
		translate,
		qbwc.Config{
			ServerVersion:    cfg.QBWC.ServerVersion,
			MinClientVersion: cfg.QBWC.MinClientVersion,
			CompanyFile:      cfg.QBWC.CompanyFile,
		},
		log,
		dispatchOpts...,
	)

	jwtService := auth.NewJWTService(cfg.JWT)
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.HSTSEnabled = cfg.App.Env == "production"

	var soapLimiter *middleware.RateLimiter
	if cfg.HTTP.SOAPRateLimit > 0 {
		soapLimiter = middleware.NewRateLimiter(cfg.HTTP.SOAPRateLimit, time.Minute)
		go soapLimiter.Run(ctx)
	}

	engine, err := router.NewEngine(router.Handlers{
		QBWC:   handler.NewQBWCHandler(dispatcher, log),
		QWC:    handler.NewQWCHandler(registry, cfg.QBWC),
		Tasks:  handler.NewTaskHandler(taskService),
		System: handler.NewSystemHandler(cfg.App.Name, cfg.QBWC.ServerVersion, sqlDB),
	}, router.Options{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     providers.Enabled(),
			SkipPaths:   []string{"/health"},
		},
		Meter:          meter,
		CORS:           corsCfg,
		Security:       securityCfg,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		SOAPLimiter:    soapLimiter,
		Auth: middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{
			Validator: jwtService,
			Logger:    log,
		}),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}
	middleware.SetupValidator()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newLocker picks the per-realm lock: an in-process mutex for a single
// replica, or a Redis lease when several replicas share the database.
func newLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (qbwc.TenantLocker, func(), error) {
	if cfg.Lock.Driver != "redis" {
		return lock.NewLocalLocker(), func() {}, nil
	}

	client, err := lock.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Using Redis realm lock", zap.String("addr", cfg.Redis.Addr()))

	return lock.NewRedisLocker(client, cfg.Lock, log), func() {
		if err := client.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}, nil
}
