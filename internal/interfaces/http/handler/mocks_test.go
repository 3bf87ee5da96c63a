package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	apppartner "github.com/erp/backoffice/internal/application/partner"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockCollectionJobService implements CollectionJobService and CompletionReporter
type MockCollectionJobService struct {
	mock.Mock
}

func (m *MockCollectionJobService) StartCollection(ctx context.Context, req appcollection.StartRequest) (*collection.CollectionJob, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*collection.CollectionJob), args.Error(1)
}

func (m *MockCollectionJobService) GetJob(ctx context.Context, id uuid.UUID) (*collection.CollectionJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*collection.CollectionJob), args.Error(1)
}

func (m *MockCollectionJobService) ListJobs(ctx context.Context, filter collection.JobFilter) (shared.Paginated[collection.CollectionJob], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[collection.CollectionJob]), args.Error(1)
}

func (m *MockCollectionJobService) ReportCompletion(ctx context.Context, jobID uuid.UUID, report appcollection.CompletionReport) (*collection.CollectionJob, error) {
	args := m.Called(ctx, jobID, report)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*collection.CollectionJob), args.Error(1)
}

// MockSupplierService implements SupplierService
type MockSupplierService struct {
	mock.Mock
}

func (m *MockSupplierService) Create(ctx context.Context, req apppartner.CreateSupplierRequest) (*apppartner.SupplierResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppartner.SupplierResponse), args.Error(1)
}

func (m *MockSupplierService) GetByID(ctx context.Context, id uuid.UUID) (*apppartner.SupplierResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppartner.SupplierResponse), args.Error(1)
}

func (m *MockSupplierService) List(ctx context.Context, filter apppartner.SupplierListFilter) (shared.Paginated[apppartner.SupplierResponse], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[apppartner.SupplierResponse]), args.Error(1)
}

func (m *MockSupplierService) Update(ctx context.Context, id uuid.UUID, req apppartner.UpdateSupplierRequest) (*apppartner.SupplierResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppartner.SupplierResponse), args.Error(1)
}

func (m *MockSupplierService) Activate(ctx context.Context, id uuid.UUID) (*apppartner.SupplierResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppartner.SupplierResponse), args.Error(1)
}

func (m *MockSupplierService) Deactivate(ctx context.Context, id uuid.UUID) (*apppartner.SupplierResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppartner.SupplierResponse), args.Error(1)
}

// MockStockQueries implements StockQueries
type MockStockQueries struct {
	mock.Mock
}

func (m *MockStockQueries) ListTransitions(ctx context.Context, productID uuid.UUID, filter shared.Filter) (shared.Paginated[catalog.StockTransition], error) {
	args := m.Called(ctx, productID, filter)
	return args.Get(0).(shared.Paginated[catalog.StockTransition]), args.Error(1)
}

func (m *MockStockQueries) ListAlerts(ctx context.Context, filter catalog.AlertFilter) (shared.Paginated[catalog.StockAlert], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[catalog.StockAlert]), args.Error(1)
}

func (m *MockStockQueries) MarkAlertRead(ctx context.Context, id uuid.UUID) (*catalog.StockAlert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.StockAlert), args.Error(1)
}

// MockProductSink implements collection.ProductSink
type MockProductSink struct {
	mock.Mock
}

func (m *MockProductSink) UpsertProduct(ctx context.Context, snapshot catalog.Snapshot) (*collection.UpsertResult, error) {
	args := m.Called(ctx, snapshot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*collection.UpsertResult), args.Error(1)
}

// MockTokenRevocation implements auth.TokenRevocation
type MockTokenRevocation struct {
	mock.Mock
}

func (m *MockTokenRevocation) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	args := m.Called(ctx, jti, ttl)
	return args.Error(0)
}

func (m *MockTokenRevocation) IsRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

var _ auth.TokenRevocation = (*MockTokenRevocation)(nil)

// fixedTTL implements TokenLifetime
type fixedTTL time.Duration

func (f fixedTTL) RemainingTTL(*auth.WorkerClaims) time.Duration {
	return time.Duration(f)
}

func newRunningJob(supplierID uuid.UUID) *collection.CollectionJob {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &collection.CollectionJob{
		ID:         uuid.New(),
		SupplierID: supplierID,
		Window: collection.Window{
			Start: now.AddDate(0, 0, -30),
			End:   now,
		},
		Status:    collection.JobStatusRunning,
		Trigger:   collection.TriggerManual,
		StartedAt: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) APIResponse[T] {
	t.Helper()
	var resp APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
