package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/partner"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an isolated in-memory SQLite database with the schema migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	database, err := Open(sqlite.Open(dsn), config.DatabaseConfig{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, database.DB.AutoMigrate(models.AllModels()...))
	return database.DB
}

// newMockDB creates a GORM DB backed by sqlmock using the postgres dialect.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func createTestSupplier(t *testing.T, db *gorm.DB, code string, scheduled bool) *partner.Supplier {
	t.Helper()

	supplier, err := partner.NewSupplier(code, "Supplier "+code, partner.Integration{
		Type:            partner.IntegrationTypeGraphQL,
		Endpoint:        "https://api." + code + ".example.com/graphql",
		Credentials:     partner.Credentials{APIKey: "key-" + code},
		WindowDefaults:  partner.WindowDefaults{Days: 7},
		ScheduleEnabled: scheduled,
	})
	require.NoError(t, err)
	require.NoError(t, NewGormSupplierRepository(db).Save(t.Context(), supplier))
	return supplier
}

func testSnapshot(supplierID uuid.UUID, key string, qty int, status catalog.StockStatus) catalog.Snapshot {
	return catalog.Snapshot{
		SupplierID:    supplierID,
		NaturalKey:    key,
		Name:          "Product " + key,
		Price:         decimal.RequireFromString("19.99"),
		Status:        catalog.ProductStatusActive,
		StockStatus:   status,
		StockQuantity: qty,
		Metadata:      map[string]any{"category_ref": "cat-1"},
	}
}

func newRunningJob(t *testing.T, supplierID uuid.UUID, startedAt time.Time) *collection.CollectionJob {
	t.Helper()

	window := collection.Window{Start: startedAt.AddDate(0, 0, -7), End: startedAt}
	job, err := collection.NewCollectionJob(supplierID, window, collection.TriggerManual, startedAt)
	require.NoError(t, err)
	require.NoError(t, job.Start(startedAt))
	return job
}
