package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/partner"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/config"
)

// ErrWorkerUnavailable is returned when the worker did not accept a job
var ErrWorkerUnavailable = errors.New("remote worker: job not accepted")

// TokenIssuer signs job-scoped worker tokens
type TokenIssuer interface {
	Issue(jobID, supplierID uuid.UUID) (*auth.IssuedToken, error)
}

// RemoteWorkerConfig holds the worker endpoint and callback settings
type RemoteWorkerConfig struct {
	// URL is where job requests are posted
	URL string
	// CallbackBaseURL is this service's externally reachable base URL
	CallbackBaseURL string
	// RequestTimeout bounds the hand-off request
	RequestTimeout time.Duration
}

// RemoteWorkerConfigFrom maps the worker section of the service config.
func RemoteWorkerConfigFrom(cfg config.WorkerConfig) RemoteWorkerConfig {
	return RemoteWorkerConfig{
		URL:             cfg.URL,
		CallbackBaseURL: cfg.CallbackBaseURL,
		RequestTimeout:  cfg.RequestTimeout,
	}
}

// workerJobRequest is the body posted to the worker
type workerJobRequest struct {
	JobID           string            `json:"jobId"`
	SupplierID      string            `json:"supplierId"`
	SupplierCode    string            `json:"supplierCode"`
	IntegrationType string            `json:"integrationType"`
	Endpoint        string            `json:"endpoint"`
	Window          collection.Window `json:"window"`
	CallbackURL     string            `json:"callbackURL"`
	ProductsURL     string            `json:"productsURL"`
	Token           string            `json:"token"`
	TokenExpiresAt  time.Time         `json:"tokenExpiresAt"`
}

// RemoteWorkerCollector hands a job to an out-of-process worker, typically
// a browser-based crawler. The worker upserts products and reports
// completion through the HTTP API using the job token it receives.
type RemoteWorkerCollector struct {
	jobID      uuid.UUID
	supplier   *partner.Supplier
	config     RemoteWorkerConfig
	tokens     TokenIssuer
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRemoteWorkerCollector creates a collector for one job
func NewRemoteWorkerCollector(params collection.CollectorParams, cfg RemoteWorkerConfig, tokens TokenIssuer, logger *zap.Logger) (*RemoteWorkerCollector, error) {
	if cfg.URL == "" {
		return nil, errors.New("remote worker: url is required")
	}
	if cfg.CallbackBaseURL == "" {
		return nil, errors.New("remote worker: callback base url is required")
	}
	if tokens == nil {
		return nil, errors.New("remote worker: token issuer is required")
	}
	if params.Supplier == nil {
		return nil, errors.New("remote worker: supplier is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteWorkerCollector{
		jobID:      params.JobID,
		supplier:   params.Supplier,
		config:     cfg,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger.Named("remote_worker_collector").With(
			zap.String("job_id", params.JobID.String()),
			zap.String("supplier_id", params.Supplier.ID.String()),
		),
	}, nil
}

// Collect posts the job to the worker and returns ErrCompletionDeferred once
// the worker accepted it.
func (c *RemoteWorkerCollector) Collect(ctx context.Context, window collection.Window) (*collection.Result, error) {
	token, err := c.tokens.Issue(c.jobID, c.supplier.ID)
	if err != nil {
		return nil, fmt.Errorf("issue worker token: %w", err)
	}

	base := strings.TrimRight(c.config.CallbackBaseURL, "/")
	payload, err := json.Marshal(workerJobRequest{
		JobID:           c.jobID.String(),
		SupplierID:      c.supplier.ID.String(),
		SupplierCode:    c.supplier.Code,
		IntegrationType: string(c.supplier.Integration.Type),
		Endpoint:        c.supplier.Integration.Endpoint,
		Window:          window,
		CallbackURL:     fmt.Sprintf("%s/api/v1/collection-jobs/%s/complete", base, c.jobID),
		ProductsURL:     fmt.Sprintf("%s/api/v1/suppliers/%s/products", base, c.supplier.ID),
		Token:           token.Token,
		TokenExpiresAt:  token.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode worker request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("remote worker: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", c.jobID.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkerUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrWorkerUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.logger.Info("Collection job handed to remote worker",
		zap.String("worker_url", c.config.URL),
		zap.Int("status", resp.StatusCode),
		zap.Time("token_expires_at", token.ExpiresAt),
	)
	return nil, collection.ErrCompletionDeferred
}

var _ collection.Collector = (*RemoteWorkerCollector)(nil)
