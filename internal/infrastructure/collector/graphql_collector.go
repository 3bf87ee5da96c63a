package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/partner"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
)

// Errors returned by the GraphQL collector
var (
	ErrInvalidEndpoint   = errors.New("graphql collector: invalid endpoint")
	ErrRejected          = errors.New("graphql collector: request rejected")
	ErrPageCeiling       = errors.New("graphql collector: page ceiling reached")
	ErrTooManyFailures   = errors.New("graphql collector: too many consecutive page failures")
	ErrMissingProducts   = errors.New("graphql collector: response has no products field")
	ErrResponseMalformed = errors.New("graphql collector: malformed response")
)

// statusError is a non-2xx HTTP response from the supplier
type statusError struct {
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// isFatalOnFirstPage reports whether a first-page failure means the
// endpoint or credentials are wrong, which aborts the run. An endpoint that
// cannot be reached at all (refused, DNS, TLS) counts as wrong; a page
// timeout does not.
func isFatalOnFirstPage(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return true
		}
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return !ue.Timeout() && !errors.Is(ue.Err, context.Canceled)
	}
	return errors.Is(err, ErrRejected)
}

// PayloadArchive stores raw page payloads for audit
type PayloadArchive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// GraphQLCollector pages through a supplier catalog exposed as a GraphQL
// products query. Pages are fetched sequentially under a fixed-interval
// throttle.
type GraphQLCollector struct {
	BaseCollector
	config     GraphQLConfig
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	archive    PayloadArchive
}

// GraphQLOption configures a GraphQLCollector
type GraphQLOption func(*GraphQLCollector)

// WithHTTPClient sets the HTTP client used for page requests
func WithHTTPClient(client *http.Client) GraphQLOption {
	return func(c *GraphQLCollector) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithArchive stores every fetched page body in the archive
func WithArchive(archive PayloadArchive) GraphQLOption {
	return func(c *GraphQLCollector) {
		c.archive = archive
	}
}

// NewGraphQLCollector creates a collector for one job
func NewGraphQLCollector(params collection.CollectorParams, cfg GraphQLConfig, logger *zap.Logger, opts ...GraphQLOption) (*GraphQLCollector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if params.Supplier == nil || params.Sink == nil {
		return nil, errors.New("graphql collector: supplier and sink are required")
	}
	endpoint, err := parseEndpoint(params.Supplier.Integration.Endpoint)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.PageDelay > 0 {
		limit = rate.Every(cfg.PageDelay)
	}

	c := &GraphQLCollector{
		BaseCollector: NewBaseCollector(params, cfg.StockPolicy, cfg.MaxErrors, logger.Named("graphql_collector")),
		config:        cfg,
		endpoint:      endpoint,
		httpClient:    &http.Client{Timeout: cfg.PageTimeout},
		limiter:       rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseEndpoint(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEndpoint, raw)
	}
	return u.String(), nil
}

// Collect fetches every page of the window and persists each item. Page
// failures are counted and skipped, except an authentication, unreachable
// endpoint or rejected endpoint failure on the first page which aborts the
// run.
func (c *GraphQLCollector) Collect(ctx context.Context, window collection.Window) (*collection.Result, error) {
	c.logger.Info("Collecting supplier catalog",
		zap.String("endpoint", c.endpoint),
		zap.Int("page_size", c.config.PageSize),
		zap.Time("window_start", window.Start),
		zap.Time("window_end", window.End),
	)

	consecutiveFailures := 0
	knownPages := 0
	page := 1
	for ; ; page++ {
		if page > c.config.MaxPages {
			c.recordWarning(collection.StageFetch, pageRef(page), fmt.Errorf("%w: %d pages", ErrPageCeiling, c.config.MaxPages))
			break
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return c.aborted(), err
		}

		body, resp, err := c.fetchPage(ctx, page, window)
		if err != nil {
			if ctx.Err() != nil {
				return c.aborted(), ctx.Err()
			}
			if page == 1 && isFatalOnFirstPage(err) {
				c.recordWarning(collection.StageFetch, pageRef(page), err)
				return c.aborted(), fmt.Errorf("%w: %v", collection.ErrFatal, err)
			}
			c.recordBatchFailure(collection.StageFetch, pageRef(page), c.config.PageSize, err)

			consecutiveFailures++
			if knownPages > 0 && page >= knownPages {
				break
			}
			if knownPages == 0 && consecutiveFailures >= c.config.MaxConsecutiveFailures {
				c.recordWarning(collection.StageFetch, pageRef(page), ErrTooManyFailures)
				break
			}
			continue
		}
		consecutiveFailures = 0
		c.archivePage(ctx, page, body)

		for _, raw := range resp.Items {
			if err := ctx.Err(); err != nil {
				return c.aborted(), err
			}
			var product remoteProduct
			if err := json.Unmarshal(raw, &product); err != nil {
				c.recordItemFailure(collection.StageNormalize, pageRef(page), fmt.Errorf("%w: %v", ErrResponseMalformed, err))
				continue
			}
			c.saveProduct(ctx, product.toCatalogItem(raw))
		}

		if resp.PageInfo.TotalPages > 0 {
			knownPages = resp.PageInfo.TotalPages
		}
		if !resp.PageInfo.hasMore(page, len(resp.Items), c.config.PageSize) {
			break
		}
	}

	result := c.result()
	c.logger.Info("Supplier catalog collected",
		zap.Int("pages", min(page, c.config.MaxPages)),
		zap.Int("total_products", result.TotalProducts),
		zap.Int("new_products", result.NewProducts),
		zap.Int("updated_products", result.UpdatedProducts),
		zap.Int("failed_products", result.FailedProducts),
		zap.Bool("success", result.Success),
	)
	return result, nil
}

// fetchPage requests and decodes one page under the per-page timeout.
func (c *GraphQLCollector) fetchPage(ctx context.Context, page int, window collection.Window) (_ []byte, _ *productPage, err error) {
	ctx, span := telemetry.StartSpan(ctx, "collection.graphql.page",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrJobID, c.jobID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrPage, page),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	pageCtx, cancel := context.WithTimeout(ctx, c.config.PageTimeout)
	defer cancel()

	payload, err := json.Marshal(graphQLRequest{
		Query:         productsQuery,
		OperationName: "Products",
		Variables: map[string]any{
			"page":        page,
			"pageSize":    c.config.PageSize,
			"updatedFrom": window.Start.UTC().Format(time.RFC3339),
			"updatedTo":   window.End.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(pageCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	setCredentials(req, c.supplier.Integration.Credentials)
	otel.GetTextMapPropagator().Inject(pageCtx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, nil, &statusError{StatusCode: resp.StatusCode}
	}

	var decoded graphQLResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return body, nil, fmt.Errorf("%w: %v", ErrResponseMalformed, err)
	}
	if len(decoded.Errors) > 0 && decoded.Data.Products == nil {
		return body, nil, graphQLErrors(decoded.Errors)
	}
	if decoded.Data.Products == nil {
		return body, nil, ErrMissingProducts
	}
	return body, decoded.Data.Products, nil
}

// graphQLErrors folds GraphQL errors into one error. Authentication codes
// are marked as rejections.
func graphQLErrors(errs []graphQLError) error {
	messages := make([]string, 0, len(errs))
	rejected := false
	for _, e := range errs {
		messages = append(messages, e.Message)
		switch strings.ToUpper(e.Extensions.Code) {
		case "UNAUTHENTICATED", "FORBIDDEN", "UNAUTHORIZED":
			rejected = true
		}
	}
	joined := strings.Join(messages, "; ")
	if rejected {
		return fmt.Errorf("%w: %s", ErrRejected, joined)
	}
	return fmt.Errorf("graphql errors: %s", joined)
}

func setCredentials(req *http.Request, creds partner.Credentials) {
	if creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}
	if creds.APIKey != "" {
		req.Header.Set("X-API-Key", creds.APIKey)
	}
}

// archivePage stores the raw page body. Failures are kept as archive-stage
// errors and never fail items.
func (c *GraphQLCollector) archivePage(ctx context.Context, page int, body []byte) {
	if c.archive == nil {
		return
	}
	key := fmt.Sprintf("%s/%s/page-%d.json", c.supplier.ID, c.jobID, page)
	if err := c.archive.Put(ctx, key, body, "application/json"); err != nil {
		c.recordWarning(collection.StageArchive, pageRef(page), err)
	}
}

func pageRef(page int) string {
	return fmt.Sprintf("page %d", page)
}

var _ collection.Collector = (*GraphQLCollector)(nil)
