package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/shared"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByNaturalKeyForUpdate(ctx context.Context, supplierID uuid.UUID, naturalKey string) (*catalog.Product, error) {
	args := m.Called(ctx, supplierID, naturalKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) CountBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	args := m.Called(ctx, supplierID)
	return args.Get(0).(int64), args.Error(1)
}

// MockStockTransitionRepository is a mock implementation of catalog.StockTransitionRepository
type MockStockTransitionRepository struct {
	mock.Mock
}

func (m *MockStockTransitionRepository) Append(ctx context.Context, transition *catalog.StockTransition) error {
	args := m.Called(ctx, transition)
	return args.Error(0)
}

func (m *MockStockTransitionRepository) ListByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]catalog.StockTransition, int64, error) {
	args := m.Called(ctx, productID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]catalog.StockTransition), args.Get(1).(int64), args.Error(2)
}

// MockStockAlertRepository is a mock implementation of catalog.StockAlertRepository
type MockStockAlertRepository struct {
	mock.Mock
}

func (m *MockStockAlertRepository) Append(ctx context.Context, alert *catalog.StockAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockStockAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.StockAlert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.StockAlert), args.Error(1)
}

func (m *MockStockAlertRepository) List(ctx context.Context, filter catalog.AlertFilter) ([]catalog.StockAlert, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]catalog.StockAlert), args.Get(1).(int64), args.Error(2)
}

func (m *MockStockAlertRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// fakeScope runs fn directly against the mock repositories and records
// whether the unit of work was rolled back.
type fakeScope struct {
	products    *MockProductRepository
	transitions *MockStockTransitionRepository
	alerts      *MockStockAlertRepository
	calls       int
	rollbacks   int
}

func newFakeScope() *fakeScope {
	return &fakeScope{
		products:    new(MockProductRepository),
		transitions: new(MockStockTransitionRepository),
		alerts:      new(MockStockAlertRepository),
	}
}

func (s *fakeScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.calls++
	if err := fn(s); err != nil {
		s.rollbacks++
		return err
	}
	return nil
}

func (s *fakeScope) Products() catalog.ProductRepository             { return s.products }
func (s *fakeScope) Transitions() catalog.StockTransitionRepository { return s.transitions }
func (s *fakeScope) Alerts() catalog.StockAlertRepository           { return s.alerts }

// recordingMetrics counts metric calls
type recordingMetrics struct {
	upserts map[collection.UpsertAction]int
	alerts  map[catalog.AlertType]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		upserts: map[collection.UpsertAction]int{},
		alerts:  map[catalog.AlertType]int{},
	}
}

func (r *recordingMetrics) RecordUpsert(_ context.Context, action collection.UpsertAction) {
	r.upserts[action]++
}

func (r *recordingMetrics) RecordStockAlert(_ context.Context, alertType catalog.AlertType) {
	r.alerts[alertType]++
}
