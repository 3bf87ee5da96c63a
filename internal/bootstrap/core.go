// Package bootstrap assembles the collection pipeline from configuration.
// Both the API server and the collectctl CLI build on Core.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	appcatalog "github.com/erp/backoffice/internal/application/catalog"
	appcollection "github.com/erp/backoffice/internal/application/collection"
	apppartner "github.com/erp/backoffice/internal/application/partner"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/erp/backoffice/internal/infrastructure/collector"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/storage"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
)

// Core holds the long-lived collaborators of the collection pipeline
type Core struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *persistence.Database

	Suppliers   *persistence.GormSupplierRepository
	Jobs        *persistence.GormCollectionJobRepository
	Products    *persistence.GormProductRepository
	Transitions *persistence.GormStockTransitionRepository
	Alerts      *persistence.GormStockAlertRepository

	Reconciliation *appcatalog.ReconciliationService
	StockQueries   *appcatalog.StockQueryService
	SupplierAdmin  *apppartner.SupplierService
	Registry       *appcollection.Registry
	StockPolicy    catalog.StockPolicy

	Locks      appcollection.SupplierLock
	Tokens     *auth.WorkerTokenService // nil without a worker secret
	Revocation auth.TokenRevocation
	Metrics    *telemetry.CollectionMetrics // nil when instruments fail to register

	redis *redis.Client
}

// NewCore connects to the database and Redis and builds the pipeline.
// meter may be nil, in which case collection metrics are not recorded.
func NewCore(ctx context.Context, cfg *config.Config, log *zap.Logger, meter metric.Meter) (*Core, error) {
	db, err := persistence.NewDatabase(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return Assemble(ctx, cfg, db, log, meter)
}

// Assemble builds the pipeline on an open database. The Core takes
// ownership of db and closes it, also when assembly fails.
func Assemble(ctx context.Context, cfg *config.Config, db *persistence.Database, log *zap.Logger, meter metric.Meter) (*Core, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Core{Config: cfg, Logger: log, DB: db}

	if err := c.init(ctx, meter); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Core) init(ctx context.Context, meter metric.Meter) error {
	cfg, log := c.Config, c.Logger

	tracing := telemetry.DefaultDBTracingConfig()
	tracing.Enabled = cfg.Telemetry.Enabled && cfg.Database.TraceEnabled
	if cfg.Database.SlowThreshold > 0 {
		tracing.SlowQueryThresh = cfg.Database.SlowThreshold
	}
	if err := telemetry.RegisterDBTracing(c.DB.DB, tracing, log); err != nil {
		return fmt.Errorf("register db tracing: %w", err)
	}

	c.Suppliers = persistence.NewGormSupplierRepository(c.DB.DB)
	c.Jobs = persistence.NewGormCollectionJobRepository(c.DB.DB)
	c.Products = persistence.NewGormProductRepository(c.DB.DB)
	c.Transitions = persistence.NewGormStockTransitionRepository(c.DB.DB)
	c.Alerts = persistence.NewGormStockAlertRepository(c.DB.DB)

	policy, err := catalog.NewStockPolicy(cfg.Collection.LowStockThreshold)
	if err != nil {
		return err
	}
	c.StockPolicy = policy

	if meter != nil {
		metrics, err := telemetry.NewCollectionMetrics(meter)
		if err != nil {
			log.Warn("Collection metrics disabled", zap.Error(err))
		} else {
			c.Metrics = metrics
		}
	}

	var reconOpts []appcatalog.ReconciliationOption
	if c.Metrics != nil {
		reconOpts = append(reconOpts, appcatalog.WithMetrics(c.Metrics))
	}
	c.Reconciliation = appcatalog.NewReconciliationService(persistence.NewGormTransactionScope(c.DB.DB), log, reconOpts...)
	c.StockQueries = appcatalog.NewStockQueryService(c.Products, c.Transitions, c.Alerts)
	c.SupplierAdmin = apppartner.NewSupplierService(c.Suppliers)

	locks, client, err := cache.NewLockFactory(cfg.Redis, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		return err
	}
	c.Locks, c.redis = locks, client
	if client != nil {
		c.Revocation = auth.NewRedisTokenRevocation(client, cfg.Redis.KeyPrefix)
	} else {
		c.Revocation = auth.NewInMemoryTokenRevocation()
	}

	if cfg.Worker.TokenSecret != "" {
		tokens, err := auth.NewWorkerTokenService(cfg.Worker)
		if err != nil {
			return err
		}
		c.Tokens = tokens
	}

	deps := collector.Dependencies{
		GraphQL:    collector.GraphQLConfigFrom(cfg.Collection),
		Worker:     collector.RemoteWorkerConfigFrom(cfg.Worker),
		HTTPClient: &http.Client{Transport: http.DefaultTransport},
		Logger:     log,
	}
	// Leave the interfaces nil rather than wrapping nil pointers.
	if c.Tokens != nil {
		deps.Tokens = c.Tokens
	}
	if cfg.Archive.Enabled {
		archive, err := storage.NewS3PayloadArchive(ctx, cfg.Archive, storage.WithLogger(log))
		if err != nil {
			return fmt.Errorf("payload archive: %w", err)
		}
		if cfg.Archive.CreateBucket {
			if err := archive.EnsureBucket(ctx); err != nil {
				return fmt.Errorf("payload archive: %w", err)
			}
		}
		deps.Archive = archive
	}

	c.Registry = appcollection.NewRegistry()
	return collector.RegisterDefaults(c.Registry, deps)
}

// NewOrchestrator builds an orchestrator that runs jobs on dispatcher
func (c *Core) NewOrchestrator(dispatcher appcollection.Dispatcher) *appcollection.Orchestrator {
	var opts []appcollection.OrchestratorOption
	if c.Metrics != nil {
		opts = append(opts, appcollection.WithOrchestratorMetrics(c.Metrics))
	}
	return appcollection.NewOrchestrator(
		c.Suppliers,
		c.Jobs,
		c.Registry,
		c.Reconciliation,
		c.Locks,
		dispatcher,
		appcollection.OrchestratorConfig{
			JobTimeout:        c.Config.Collection.JobTimeout,
			LockTTL:           c.Config.Collection.LockTTL,
			DefaultWindowDays: c.Config.Collection.DefaultWindowDays,
		},
		c.Logger,
		opts...,
	)
}

// Close releases the Redis client and the database connection
func (c *Core) Close() error {
	var errs []error
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
