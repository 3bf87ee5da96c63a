package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	_ "github.com/erp/backoffice/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/erp/backoffice/internal/bootstrap"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/scheduler"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/erp/backoffice/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Local development reads a .env file; deployments use real env vars
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server terminated", zap.Error(err))
	}
}

func run(cfg *config.Config, baseLog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		return err
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		return err
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		return err
	}
	log := loggerProvider.Bridge(baseLog, zapcore.InfoLevel)
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(log, tracerProvider, meterProvider, loggerProvider, profiler)

	log.Info("Starting supplier back-office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	core, err := bootstrap.NewCore(ctx, cfg, log, meter)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			log.Error("Error closing connections", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Collection runtime
	pool, err := scheduler.NewWorkerPool(scheduler.WorkerPoolConfigFrom(cfg.Collection), log)
	if err != nil {
		return err
	}
	if err := pool.Start(context.Background()); err != nil {
		return err
	}
	orchestrator := core.NewOrchestrator(pool)

	var trigger *scheduler.CollectionTrigger
	if cfg.Collection.ScheduleEnabled {
		trigger = scheduler.NewCollectionTrigger(cfg.Collection.ScheduleInterval, core.Suppliers, orchestrator, log)
		if err := trigger.Start(context.Background()); err != nil {
			return err
		}
	}
	sweeper := scheduler.NewStaleJobSweeper(scheduler.StaleJobSweeperConfig{
		Interval:   cfg.Collection.StaleSweepInterval,
		JobTimeout: orchestrator.JobTimeout(),
		Grace:      cfg.Collection.StaleGrace,
	}, orchestrator, log)
	if err := sweeper.Start(context.Background()); err != nil {
		return err
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		}),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(meter, log),
		middleware.ProfilingWithConfig(middleware.ProfilingConfig{
			Enabled:          profiler.IsEnabled(),
			SkipPaths:        []string{"/health", "/live"},
			SkipPathPrefixes: []string{"/swagger"},
		}),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, core.DB, core.Registry)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/live", systemHandler.Live)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{Enabled: cfg.HTTP.SwaggerEnabled}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	workerAuthCfg := middleware.WorkerAuthConfig{Revocation: core.Revocation, Logger: log}
	var tokenLifetime handler.TokenLifetime
	if core.Tokens != nil {
		workerAuthCfg.Tokens = core.Tokens
		tokenLifetime = core.Tokens
	} else {
		log.Warn("Worker token secret not set, worker callbacks are disabled")
	}
	workerChain := []gin.HandlerFunc{middleware.WorkerAuth(workerAuthCfg), middleware.TracingAttributeInjector()}
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		workerChain = append(workerChain, middleware.RateLimitByKey(limiter, middleware.WorkerTokenKey))
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterAPI(r, router.Handlers{
		Suppliers: handler.NewSupplierHandler(core.SupplierAdmin),
		Jobs:      handler.NewCollectionJobHandler(orchestrator),
		Stock:     handler.NewStockHandler(core.StockQueries),
		Worker:    handler.NewWorkerCallbackHandler(orchestrator, core.Reconciliation, core.StockPolicy, tokenLifetime, core.Revocation),
	}, workerChain...)
	r.Register(router.NewDomainGroup("system", "/system").GET("/info", systemHandler.GetSystemInfo))
	r.Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	serveErr := g.Wait()

	// Stop producing jobs before draining the pool
	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if trigger != nil {
		if err := trigger.Stop(stopCtx); err != nil {
			log.Warn("Collection trigger did not stop cleanly", zap.Error(err))
		}
	}
	if err := sweeper.Stop(stopCtx); err != nil {
		log.Warn("Stale job sweeper did not stop cleanly", zap.Error(err))
	}
	if err := pool.Stop(stopCtx); err != nil {
		log.Warn("Worker pool did not drain, remaining jobs will be swept", zap.Error(err))
	}

	if serveErr != nil {
		return serveErr
	}
	log.Info("Server exited gracefully")
	return nil
}

func shutdownTelemetry(
	log *zap.Logger,
	tp *telemetry.TracerProvider,
	mp *telemetry.MeterProvider,
	lp *telemetry.LoggerProvider,
	profiler *telemetry.Profiler,
) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := profiler.Stop(); err != nil {
		log.Warn("Failed to stop profiler", zap.Error(err))
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Warn("Failed to shutdown tracer provider", zap.Error(err))
	}
	if err := mp.Shutdown(ctx); err != nil {
		log.Warn("Failed to shutdown meter provider", zap.Error(err))
	}
	if err := lp.Shutdown(ctx); err != nil {
		log.Warn("Failed to shutdown logger provider", zap.Error(err))
	}
}
