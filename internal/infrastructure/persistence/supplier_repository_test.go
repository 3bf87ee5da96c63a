package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/domain/partner"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGormSupplierRepository_FindByID_Mock(t *testing.T) {
	t.Run("maps integration columns", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormSupplierRepository(db)

		supplierID := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "code", "name", "status",
			"integration_type", "endpoint", "credentials", "window_days", "window_months", "schedule_enabled"}).
			AddRow(supplierID.String(), now, now, "ACME", "Acme Corp", "active",
				"graphql", "https://api.acme.com/graphql", `{"api_key":"secret"}`, 3, 0, true)

		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(supplierID, 1).
			WillReturnRows(rows)

		supplier, err := repo.FindByID(context.Background(), supplierID)
		require.NoError(t, err)
		assert.Equal(t, "ACME", supplier.Code)
		assert.Equal(t, partner.IntegrationTypeGraphQL, supplier.Integration.Type)
		assert.Equal(t, "secret", supplier.Integration.Credentials.APIKey)
		assert.Equal(t, 3, supplier.Integration.WindowDefaults.Days)
		assert.True(t, supplier.Integration.ScheduleEnabled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps record not found to ErrNotFound", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormSupplierRepository(db)

		supplierID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(supplierID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByID(context.Background(), supplierID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSupplierRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSupplierRepository(db)
	ctx := context.Background()

	acme := createTestSupplier(t, db, "ACME", true)
	createTestSupplier(t, db, "BETA", false)
	gamma := createTestSupplier(t, db, "GAMMA", true)
	gamma.Deactivate()
	require.NoError(t, repo.Save(ctx, gamma))

	t.Run("round trips integration config", func(t *testing.T) {
		found, err := repo.FindByID(ctx, acme.ID)
		require.NoError(t, err)
		assert.Equal(t, acme.Integration, found.Integration)
		assert.True(t, found.IsActive())
	})

	t.Run("schedulable excludes inactive and unscheduled", func(t *testing.T) {
		suppliers, err := repo.FindSchedulable(ctx)
		require.NoError(t, err)
		require.Len(t, suppliers, 1)
		assert.Equal(t, acme.ID, suppliers[0].ID)
	})

	t.Run("duplicate code is rejected", func(t *testing.T) {
		dup, err := partner.NewSupplier("ACME", "Another", acme.Integration)
		require.NoError(t, err)
		err = repo.Save(ctx, dup)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("missing supplier", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormSupplierRepository_FindByCodeAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSupplierRepository(db)
	ctx := context.Background()

	acme := createTestSupplier(t, db, "ACME", true)
	createTestSupplier(t, db, "BETA", false)
	gamma := createTestSupplier(t, db, "GAMMA", true)
	gamma.Deactivate()
	require.NoError(t, repo.Save(ctx, gamma))

	t.Run("find by code ignores case", func(t *testing.T) {
		found, err := repo.FindByCode(ctx, " acme ")
		require.NoError(t, err)
		assert.Equal(t, acme.ID, found.ID)

		_, err = repo.FindByCode(ctx, "NOPE")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("lists by code ascending by default", func(t *testing.T) {
		suppliers, total, err := repo.List(ctx, partner.SupplierFilter{Filter: shared.Filter{Page: 1, PageSize: 10}})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, suppliers, 3)
		assert.Equal(t, "ACME", suppliers[0].Code)
		assert.Equal(t, "GAMMA", suppliers[2].Code)
	})

	t.Run("filters by status", func(t *testing.T) {
		suppliers, total, err := repo.List(ctx, partner.SupplierFilter{
			Filter: shared.Filter{Page: 1, PageSize: 10},
			Status: partner.SupplierStatusInactive,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, suppliers, 1)
		assert.Equal(t, gamma.ID, suppliers[0].ID)
	})

	t.Run("search matches code or name", func(t *testing.T) {
		suppliers, total, err := repo.List(ctx, partner.SupplierFilter{
			Filter: shared.Filter{Page: 1, PageSize: 10},
			Search: "bet",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, suppliers, 1)
		assert.Equal(t, "BETA", suppliers[0].Code)
	})

	t.Run("pages with total", func(t *testing.T) {
		suppliers, total, err := repo.List(ctx, partner.SupplierFilter{
			Filter: shared.Filter{Page: 2, PageSize: 2, OrderBy: "code", OrderDir: "asc"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, suppliers, 1)
		assert.Equal(t, "GAMMA", suppliers[0].Code)
	})
}
