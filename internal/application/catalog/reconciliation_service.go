package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
)

// maxUpsertAttempts bounds retries after losing an insert race on the
// natural key.
const maxUpsertAttempts = 2

// ReconciliationService turns normalized product snapshots into durable
// catalog state: it decides create-vs-update by natural key, records stock
// transitions and raises stock alerts, all in one transaction per item.
type ReconciliationService struct {
	scope   TransactionScope
	metrics Metrics
	now     func() time.Time
	logger  *zap.Logger
}

// ReconciliationOption configures a ReconciliationService
type ReconciliationOption func(*ReconciliationService)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) ReconciliationOption {
	return func(s *ReconciliationService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ReconciliationOption {
	return func(s *ReconciliationService) {
		s.now = now
	}
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(scope TransactionScope, log *zap.Logger, opts ...ReconciliationOption) *ReconciliationService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &ReconciliationService{
		scope:   scope,
		metrics: noopMetrics{},
		now:     time.Now,
		logger:  log.Named("reconciliation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertProduct reconciles one snapshot. It implements collection.ProductSink.
func (s *ReconciliationService) UpsertProduct(ctx context.Context, snapshot catalog.Snapshot) (*collection.UpsertResult, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	var (
		result *collection.UpsertResult
		alerts []*catalog.StockAlert
		err    error
	)
	for attempt := 1; attempt <= maxUpsertAttempts; attempt++ {
		result, alerts, err = s.reconcile(ctx, snapshot)
		if !errors.Is(err, catalog.ErrDuplicateNaturalKey) {
			break
		}
		s.logger.Debug("Natural key inserted concurrently, retrying as update",
			zap.String("supplier_id", snapshot.SupplierID.String()),
			zap.String("natural_key", snapshot.NaturalKey),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", snapshot.NaturalKey, err)
	}

	s.metrics.RecordUpsert(ctx, result.Action)
	for _, alert := range alerts {
		s.metrics.RecordStockAlert(ctx, alert.AlertType)
	}
	return result, nil
}

func (s *ReconciliationService) reconcile(ctx context.Context, snapshot catalog.Snapshot) (*collection.UpsertResult, []*catalog.StockAlert, error) {
	var (
		result *collection.UpsertResult
		alerts []*catalog.StockAlert
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		alerts = nil
		now := s.now()

		existing, err := repos.Products().FindByNaturalKeyForUpdate(ctx, snapshot.SupplierID, snapshot.NaturalKey)
		if err != nil {
			return fmt.Errorf("find product: %w", err)
		}

		if existing == nil {
			product, err := catalog.NewProductFromSnapshot(snapshot, now)
			if err != nil {
				return err
			}
			if err := repos.Products().Create(ctx, product); err != nil {
				return err
			}
			if alert := catalog.AlertForNewProduct(product, now); alert != nil {
				if err := repos.Alerts().Append(ctx, alert); err != nil {
					return fmt.Errorf("append stock alert: %w", err)
				}
				alerts = append(alerts, alert)
			}
			result = &collection.UpsertResult{Action: collection.UpsertActionCreated, ProductID: product.ID}
			return nil
		}

		transition, err := existing.Apply(snapshot, now)
		if err != nil {
			return err
		}
		if err := repos.Products().Update(ctx, existing); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if transition != nil {
			if alert := catalog.AlertForTransition(existing, transition, now); alert != nil {
				if err := repos.Alerts().Append(ctx, alert); err != nil {
					return fmt.Errorf("append stock alert: %w", err)
				}
				alerts = append(alerts, alert)
			}
			if err := repos.Transitions().Append(ctx, transition); err != nil {
				return fmt.Errorf("append stock transition: %w", err)
			}
		}
		result = &collection.UpsertResult{Action: collection.UpsertActionUpdated, ProductID: existing.ID}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, alerts, nil
}

var _ collection.ProductSink = (*ReconciliationService)(nil)
