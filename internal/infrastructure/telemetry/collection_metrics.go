package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
)

// Metric attribute keys
var (
	AttrTrigger   = attribute.Key("trigger")
	AttrStatus    = attribute.Key("status")
	AttrAction    = attribute.Key("action")
	AttrAlertType = attribute.Key("type")
)

// jobDurationBuckets spans a quick API sync to a long crawl.
var jobDurationBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600}

// CollectionMetrics records collection job and reconciliation metrics. It
// satisfies both the orchestrator and the reconciliation service metrics
// ports.
type CollectionMetrics struct {
	jobsStarted  *Counter
	jobsFinished *Counter
	items        *Counter
	failedItems  *Counter
	stockAlerts  *Counter
	jobDuration  *Histogram
}

// NewCollectionMetrics registers the collection instruments on meter.
func NewCollectionMetrics(meter metric.Meter) (*CollectionMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   CollectionMetrics
		err error
	)
	if m.jobsStarted, err = NewCounter(meter,
		"collection_jobs_started_total", "Total number of collection jobs started", "{jobs}"); err != nil {
		return nil, err
	}
	if m.jobsFinished, err = NewCounter(meter,
		"collection_jobs_finished_total", "Total number of collection jobs that reached a terminal state", "{jobs}"); err != nil {
		return nil, err
	}
	if m.items, err = NewCounter(meter,
		"collection_items_total", "Total number of products reconciled", "{items}"); err != nil {
		return nil, err
	}
	if m.failedItems, err = NewCounter(meter,
		"collection_items_failed_total", "Total number of products that failed during collection", "{items}"); err != nil {
		return nil, err
	}
	if m.stockAlerts, err = NewCounter(meter,
		"collection_stock_alerts_total", "Total number of stock alerts raised", "{alerts}"); err != nil {
		return nil, err
	}
	if m.jobDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "collection_job_duration_seconds",
		Description: "Wall-clock duration of collection jobs",
		Unit:        "s",
		Buckets:     jobDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return &m, nil
}

// JobStarted counts a job entering Running.
func (m *CollectionMetrics) JobStarted(ctx context.Context, trigger collection.Trigger) {
	m.jobsStarted.Inc(ctx, AttrTrigger.String(string(trigger)))
}

// JobFinished counts a terminal job and records its duration.
func (m *CollectionMetrics) JobFinished(ctx context.Context, status collection.JobStatus, duration time.Duration, counters collection.Counters) {
	statusAttr := AttrStatus.String(string(status))
	m.jobsFinished.Inc(ctx, statusAttr)
	m.jobDuration.RecordDuration(ctx, duration, statusAttr)
	if counters.Failed > 0 {
		m.failedItems.Add(ctx, int64(counters.Failed))
	}
}

// RecordUpsert counts one reconciled product.
func (m *CollectionMetrics) RecordUpsert(ctx context.Context, action collection.UpsertAction) {
	m.items.Inc(ctx, AttrAction.String(string(action)))
}

// RecordStockAlert counts one raised alert.
func (m *CollectionMetrics) RecordStockAlert(ctx context.Context, alertType catalog.AlertType) {
	m.stockAlerts.Inc(ctx, AttrAlertType.String(string(alertType)))
}
