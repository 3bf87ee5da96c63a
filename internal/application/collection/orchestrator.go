package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/partner"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
)

// Errors returned when starting a collection
var (
	ErrSupplierNotFound = shared.NewDomainError(shared.CodeNotFound, "Supplier not found")
	ErrSupplierInactive = shared.NewDomainError(shared.CodeInvalidState, "Supplier is not active")
)

// terminalWriteTimeout bounds the write of a job's final state, which uses a
// context detached from the (possibly expired) run context.
const terminalWriteTimeout = 10 * time.Second

// OrchestratorConfig holds job lifecycle settings
type OrchestratorConfig struct {
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// LockTTL bounds how long a supplier lock survives a crashed owner.
	// Defaults to JobTimeout plus the terminal write timeout.
	LockTTL time.Duration
	// DefaultWindowDays is used when neither the trigger nor the supplier
	// specify a window
	DefaultWindowDays int
}

// DefaultOrchestratorConfig returns default configuration
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		JobTimeout:        30 * time.Minute,
		DefaultWindowDays: 7,
	}
}

// StartRequest asks for one collection run.
type StartRequest struct {
	SupplierID uuid.UUID
	Window     collection.WindowSpec
	Trigger    collection.Trigger
}

// CompletionReport is what an out-of-process worker sends when it is done.
type CompletionReport struct {
	Success         bool
	TotalProducts   int
	NewProducts     int
	UpdatedProducts int
	FailedProducts  int
	Errors          []string
}

// Orchestrator owns the collection job lifecycle. It creates the job log
// row, hands execution to a dispatcher and is the only writer of terminal
// job state.
type Orchestrator struct {
	suppliers  partner.SupplierRepository
	jobs       collection.JobRepository
	registry   *Registry
	sink       collection.ProductSink
	locks      SupplierLock
	dispatcher Dispatcher
	metrics    Metrics
	config     OrchestratorConfig
	now        func() time.Time
	logger     *zap.Logger
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorMetrics sets the job metrics sink.
func WithOrchestratorMetrics(m Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithOrchestratorClock overrides the time source.
func WithOrchestratorClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	suppliers partner.SupplierRepository,
	jobs collection.JobRepository,
	registry *Registry,
	sink collection.ProductSink,
	locks SupplierLock,
	dispatcher Dispatcher,
	config OrchestratorConfig,
	logger *zap.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultOrchestratorConfig().JobTimeout
	}
	if config.LockTTL <= 0 {
		config.LockTTL = config.JobTimeout + terminalWriteTimeout
	}
	if config.DefaultWindowDays <= 0 {
		config.DefaultWindowDays = DefaultOrchestratorConfig().DefaultWindowDays
	}
	o := &Orchestrator{
		suppliers:  suppliers,
		jobs:       jobs,
		registry:   registry,
		sink:       sink,
		locks:      locks,
		dispatcher: dispatcher,
		metrics:    noopMetrics{},
		config:     config,
		now:        time.Now,
		logger:     logger.Named("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// JobTimeout returns the configured per-job deadline.
func (o *Orchestrator) JobTimeout() time.Duration {
	return o.config.JobTimeout
}

// StartCollection creates a running job for the supplier and returns it as
// soon as the row is stored. The collection itself runs on the dispatcher.
func (o *Orchestrator) StartCollection(ctx context.Context, req StartRequest) (*collection.CollectionJob, error) {
	return o.start(ctx, req, o.dispatcher)
}

// RunCollection starts a job and runs it to completion on the caller's
// goroutine, returning the job in its terminal state.
func (o *Orchestrator) RunCollection(ctx context.Context, req StartRequest) (*collection.CollectionJob, error) {
	job, err := o.start(ctx, req, InlineDispatcher{Ctx: ctx})
	if err != nil {
		return nil, err
	}
	return o.jobs.FindByID(ctx, job.ID)
}

func (o *Orchestrator) start(ctx context.Context, req StartRequest, dispatcher Dispatcher) (*collection.CollectionJob, error) {
	supplier, err := o.suppliers.FindByID(ctx, req.SupplierID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("load supplier: %w", err)
	}
	if !supplier.IsActive() {
		return nil, ErrSupplierInactive
	}

	now := o.now()
	window, err := collection.ResolveWindow(req.Window, supplier.Integration.WindowDefaults, o.config.DefaultWindowDays, now)
	if err != nil {
		return nil, err
	}

	job, err := collection.NewCollectionJob(supplier.ID, window, req.Trigger, now)
	if err != nil {
		return nil, err
	}
	if err := job.Start(now); err != nil {
		return nil, err
	}

	owner := job.ID.String()
	acquired, err := o.locks.Acquire(ctx, supplier.ID, owner, o.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire supplier lock: %w", err)
	}
	if !acquired {
		return nil, collection.ErrCollectionInProgress
	}
	// A lock can lapse under a job that is still running.
	running, err := o.jobs.HasRunning(ctx, supplier.ID)
	if err != nil {
		o.releaseLock(supplier.ID, owner)
		return nil, fmt.Errorf("check running jobs: %w", err)
	}
	if running {
		o.releaseLock(supplier.ID, owner)
		return nil, collection.ErrCollectionInProgress
	}

	if err := o.jobs.Create(ctx, job); err != nil {
		o.releaseLock(supplier.ID, owner)
		return nil, fmt.Errorf("create collection job: %w", err)
	}
	o.metrics.JobStarted(ctx, job.Trigger)

	o.logger.Info("Collection job started",
		zap.String("job_id", job.ID.String()),
		zap.String("supplier_id", supplier.ID.String()),
		zap.String("integration_type", string(supplier.Integration.Type)),
		zap.String("trigger", string(job.Trigger)),
		zap.Time("window_start", window.Start),
		zap.Time("window_end", window.End),
	)

	snapshot := *job
	if err := dispatcher.Submit(func(runCtx context.Context) {
		o.run(runCtx, &snapshot, supplier)
	}); err != nil {
		o.failJob(context.Background(), job, collection.StageDispatch, fmt.Sprintf("dispatch job: %v", err), collection.Counters{})
		o.releaseLock(supplier.ID, owner)
		return nil, fmt.Errorf("dispatch collection job: %w", err)
	}

	return job, nil
}

// run executes one job. It always leaves the job in a terminal state unless
// the collector deferred completion to a remote worker.
func (o *Orchestrator) run(ctx context.Context, job *collection.CollectionJob, supplier *partner.Supplier) {
	ctx, span := telemetry.StartSpan(ctx, "collection.run",
		telemetry.WithAttribute(telemetry.SpanAttrJobID, job.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrSupplierCode, supplier.Code),
		telemetry.WithAttribute(telemetry.SpanAttrIntegrationType, string(supplier.Integration.Type)),
		telemetry.WithAttribute(telemetry.SpanAttrTrigger, string(job.Trigger)),
	)
	defer func() {
		telemetry.SetAttributes(span, telemetry.SpanAttrStatus, string(job.Status))
		span.End()
	}()

	log := o.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("supplier_id", supplier.ID.String()),
	)
	deferred := false
	defer func() {
		if !deferred {
			o.releaseLock(supplier.ID, job.ID.String())
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error("Collector panicked", zap.Any("panic", r), zap.Stack("stacktrace"))
			o.failJob(ctx, job, collection.StageRun, fmt.Sprintf("collector panic: %v", r), job.Counters)
		}
	}()

	// Queue time counts against the job deadline.
	budget := o.remainingBudget(job)
	if budget <= 0 {
		log.Warn("Collection job expired before it ran", zap.Duration("job_timeout", o.config.JobTimeout))
		o.failJob(ctx, job, collection.StageDispatch,
			fmt.Sprintf("%v after %s: deadline passed while queued", collection.ErrJobTimeout, o.config.JobTimeout), collection.Counters{})
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	factory, err := o.registry.Resolve(supplier.Integration.Type, supplier.EndpointHost())
	if err != nil {
		log.Warn("No collector for supplier integration", zap.Error(err))
		o.failJob(ctx, job, collection.StageResolve, err.Error(), collection.Counters{})
		return
	}

	collector, err := factory(collection.CollectorParams{JobID: job.ID, Supplier: supplier, Sink: o.sink})
	if err != nil {
		o.failJob(ctx, job, collection.StageResolve, fmt.Sprintf("build collector: %v", err), collection.Counters{})
		return
	}

	var result *collection.Result
	labels := telemetry.CollectionLabels(supplier.Code, string(supplier.Integration.Type), string(job.Trigger))
	telemetry.WithProfilingLabels(runCtx, labels, func(c context.Context) {
		result, err = collector.Collect(c, job.Window)
	})
	switch {
	case errors.Is(err, collection.ErrCompletionDeferred):
		deferred = true
		log.Info("Collection handed to remote worker")
		return
	case err != nil:
		var counters collection.Counters
		var details []collection.CollectionError
		if result != nil {
			counters = result.Counters()
			details = result.Errors
		}
		message := err.Error()
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			message = fmt.Sprintf("%v after %s: %v", collection.ErrJobTimeout, o.config.JobTimeout, err)
		}
		summary := collection.SummarizeErrors(append([]collection.CollectionError{{Stage: collection.StageRun, Message: message}}, details...), 0)
		telemetry.RecordError(span, err)
		log.Error("Collection job aborted", zap.Error(err))
		o.failJob(ctx, job, collection.StageRun, summary, counters)
		return
	case result == nil:
		o.failJob(ctx, job, collection.StageRun, "collector returned no result", collection.Counters{})
		return
	}

	if err := job.Finish(*result, o.now()); err != nil {
		log.Error("Failed to finish collection job", zap.Error(err))
		return
	}
	o.saveTerminal(ctx, job)
}

// remainingBudget returns how much of the job timeout is left, measured from
// the moment the job was started.
func (o *Orchestrator) remainingBudget(job *collection.CollectionJob) time.Duration {
	if job.StartedAt == nil {
		return o.config.JobTimeout
	}
	return o.config.JobTimeout - o.now().Sub(*job.StartedAt)
}

// failJob records a failure, keeping the message as-is when it is already a
// rendered summary.
func (o *Orchestrator) failJob(ctx context.Context, job *collection.CollectionJob, stage collection.Stage, message string, counters collection.Counters) {
	if job.IsTerminal() {
		return
	}
	if stage != collection.StageRun {
		message = collection.CollectionError{Stage: stage, Message: message}.String()
	}
	if err := job.Fail(message, counters, o.now()); err != nil {
		o.logger.Error("Failed to mark collection job failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return
	}
	o.saveTerminal(ctx, job)
}

func (o *Orchestrator) saveTerminal(ctx context.Context, job *collection.CollectionJob) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()

	if err := o.jobs.SaveTerminal(writeCtx, job); err != nil {
		o.logger.Error("Failed to persist collection job result",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)),
			zap.Error(err),
		)
		return
	}
	o.metrics.JobFinished(writeCtx, job.Status, job.Duration(), job.Counters)

	o.logger.Info("Collection job finished",
		zap.String("job_id", job.ID.String()),
		zap.String("supplier_id", job.SupplierID.String()),
		zap.String("status", string(job.Status)),
		zap.Int("total_items", job.Counters.Total),
		zap.Int("new_items", job.Counters.New),
		zap.Int("updated_items", job.Counters.Updated),
		zap.Int("failed_items", job.Counters.Failed),
		zap.Duration("duration", job.Duration()),
	)
}

func (o *Orchestrator) releaseLock(supplierID uuid.UUID, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), terminalWriteTimeout)
	defer cancel()
	if err := o.locks.Release(ctx, supplierID, owner); err != nil {
		o.logger.Warn("Failed to release supplier lock",
			zap.String("supplier_id", supplierID.String()),
			zap.String("owner", owner),
			zap.Error(err),
		)
	}
}

// ReportCompletion records the outcome sent by an out-of-process worker.
func (o *Orchestrator) ReportCompletion(ctx context.Context, jobID uuid.UUID, report CompletionReport) (*collection.CollectionJob, error) {
	job, err := o.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return nil, collection.ErrJobAlreadyFinished
	}

	errs := make([]collection.CollectionError, 0, len(report.Errors))
	for _, msg := range report.Errors {
		errs = append(errs, collection.CollectionError{Stage: collection.StageRun, ItemRef: "remote", Message: msg})
	}
	result := collection.Result{
		Success:         report.Success,
		TotalProducts:   report.TotalProducts,
		NewProducts:     report.NewProducts,
		UpdatedProducts: report.UpdatedProducts,
		FailedProducts:  report.FailedProducts,
		Errors:          errs,
	}
	if err := job.Finish(result, o.now()); err != nil {
		return nil, err
	}
	if err := o.jobs.SaveTerminal(ctx, job); err != nil {
		return nil, err
	}
	o.metrics.JobFinished(ctx, job.Status, job.Duration(), job.Counters)
	o.releaseLock(job.SupplierID, job.ID.String())

	o.logger.Info("Remote collection reported",
		zap.String("job_id", job.ID.String()),
		zap.String("status", string(job.Status)),
		zap.Int("total_items", job.Counters.Total),
	)
	return job, nil
}

// FailStaleJobs fails running jobs that started before cutoff. It returns
// how many jobs it closed.
func (o *Orchestrator) FailStaleJobs(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	stale, err := o.jobs.FindRunningStartedBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("find stale jobs: %w", err)
	}

	closed := 0
	for i := range stale {
		job := &stale[i]
		if err := job.Fail(collection.ErrJobTimeout.Error(), job.Counters, o.now()); err != nil {
			continue
		}
		if err := o.jobs.SaveTerminal(ctx, job); err != nil {
			if !errors.Is(err, collection.ErrJobAlreadyFinished) {
				o.logger.Error("Failed to close stale job", zap.String("job_id", job.ID.String()), zap.Error(err))
			}
			continue
		}
		o.metrics.JobFinished(ctx, job.Status, job.Duration(), job.Counters)
		o.releaseLock(job.SupplierID, job.ID.String())
		closed++
	}
	return closed, nil
}

// GetJob returns one job.
func (o *Orchestrator) GetJob(ctx context.Context, id uuid.UUID) (*collection.CollectionJob, error) {
	return o.jobs.FindByID(ctx, id)
}

// ListJobs returns a page of jobs.
func (o *Orchestrator) ListJobs(ctx context.Context, filter collection.JobFilter) (shared.Paginated[collection.CollectionJob], error) {
	filter.Filter = filter.Filter.Normalize()
	jobs, total, err := o.jobs.List(ctx, filter)
	if err != nil {
		return shared.Paginated[collection.CollectionJob]{}, err
	}
	return shared.NewPaginated(jobs, total, filter.Page, filter.PageSize), nil
}
