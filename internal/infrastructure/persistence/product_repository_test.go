package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormProductRepository_FindByNaturalKeyForUpdate_LocksRow(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(db)

	supplierID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE supplier_id = \$1 AND natural_key = \$2 LIMIT \$3 FOR UPDATE`).
		WithArgs(supplierID, "sku-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	product, err := repo.FindByNaturalKeyForUpdate(context.Background(), supplierID, "sku-1")
	require.NoError(t, err)
	assert.Nil(t, product)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	supplier := createTestSupplier(t, db, "ACME", false)
	now := time.Now().UTC().Truncate(time.Second)

	product, err := catalog.NewProductFromSnapshot(testSnapshot(supplier.ID, "sku-1", 40, catalog.StockStatusInStock), now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, product))

	t.Run("finds by natural key", func(t *testing.T) {
		found, err := repo.FindByNaturalKeyForUpdate(ctx, supplier.ID, "sku-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, product.ID, found.ID)
		assert.True(t, product.Price.Equal(found.Price))
		assert.Equal(t, "cat-1", found.Metadata["category_ref"])
	})

	t.Run("absent natural key returns nil", func(t *testing.T) {
		found, err := repo.FindByNaturalKeyForUpdate(ctx, supplier.ID, "sku-404")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("duplicate natural key", func(t *testing.T) {
		dup, err := catalog.NewProductFromSnapshot(testSnapshot(supplier.ID, "sku-1", 1, ""), now)
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, catalog.ErrDuplicateNaturalKey)
	})

	t.Run("update overwrites mutable fields", func(t *testing.T) {
		snap := testSnapshot(supplier.ID, "sku-1", 0, catalog.StockStatusOutOfStock)
		snap.Name = "Renamed"
		_, err := product.Apply(snap, now.Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.Update(ctx, product))

		found, err := repo.FindByID(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", found.Name)
		assert.Equal(t, catalog.StockStatusOutOfStock, found.StockStatus)
		assert.Equal(t, 0, found.StockQuantity)
	})

	t.Run("update of unknown product", func(t *testing.T) {
		ghost, err := catalog.NewProductFromSnapshot(testSnapshot(supplier.ID, "ghost", 1, ""), now)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Update(ctx, ghost), shared.ErrNotFound)
	})

	t.Run("count by supplier", func(t *testing.T) {
		count, err := repo.CountBySupplier(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
