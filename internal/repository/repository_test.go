package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go-pos-sync/internal/model"
	"go-pos-sync/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.OpenLocal(filepath.Join(t.TempDir(), "pos.db"), database.LocalOptions{Silent: true})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return NewStore(db)
}

func newProduct(tenant uuid.UUID, sku string) *model.Product {
	return &model.Product{
		SyncModel:    model.SyncModel{TenantID: tenant},
		SKU:          sku,
		Name:         "Product " + sku,
		CostPrice:    decimal.NewFromInt(2),
		SellingPrice: decimal.NewFromInt(3),
		ReorderLevel: 5,
		Active:       true,
	}
}

func TestSyncRepo_InsertAndUpdateClearSynced(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tenant := uuid.New()

	p := newProduct(tenant, "A-1")
	id, err := store.Products.Insert(ctx, p)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.NotEqual(t, uuid.Nil, p.UUID)

	got, err := store.Products.FindByID(ctx, tenant, id)
	require.NoError(t, err)
	assert.False(t, got.Synced)
	assert.Equal(t, "A-1", got.SKU)

	ok, err := store.Products.MarkSynced(ctx, id, tenant, got.LastUpdatedAt)
	require.NoError(t, err)
	require.True(t, ok)

	got.Name = "Renamed"
	require.NoError(t, store.Products.Update(ctx, got))

	again, err := store.Products.FindByUUID(ctx, tenant, p.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Name)
	assert.False(t, again.Synced)
	assert.Equal(t, p.UUID, again.UUID)
}

func TestSyncRepo_InsertWithoutTenant(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Units.Insert(context.Background(), &model.Unit{Name: "pcs"})
	assert.ErrorIs(t, err, model.ErrNoActiveTenant)
}

func TestSyncRepo_TenantScoping(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tenantA, tenantB := uuid.New(), uuid.New()

	id, err := store.Products.Insert(ctx, newProduct(tenantA, "A-1"))
	require.NoError(t, err)
	_, err = store.Products.Insert(ctx, newProduct(tenantB, "B-1"))
	require.NoError(t, err)

	_, err = store.Products.FindByID(ctx, tenantB, id)
	assert.ErrorIs(t, err, ErrNotFound)

	rows, err := store.Products.QueryAll(ctx, tenantA)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A-1", rows[0].SKU)

	other, err := store.Products.FindByID(ctx, tenantA, id)
	require.NoError(t, err)
	other.TenantID = tenantB
	err = store.Products.Update(ctx, other)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncRepo_SoftDeleteKeepsTombstone(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tenant := uuid.New()

	id, err := store.Customers.Insert(ctx, &model.Customer{SyncModel: model.SyncModel{TenantID: tenant}, Name: "Ana"})
	require.NoError(t, err)
	got, err := store.Customers.FindByID(ctx, tenant, id)
	require.NoError(t, err)
	_, err = store.Customers.MarkSynced(ctx, id, tenant, got.LastUpdatedAt)
	require.NoError(t, err)

	require.NoError(t, store.Customers.SoftDelete(ctx, id, tenant))

	live, err := store.Customers.QueryAll(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, live)

	pending, err := store.Customers.QueryUnsynced(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Deleted)

	err = store.Customers.SoftDelete(ctx, id, tenant)
	assert.ErrorIs(t, err, ErrNotFound, "a tombstone cannot be deleted twice")
}

func TestSyncRepo_MarkSyncedGuardsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tenant := uuid.New()

	id, err := store.Units.Insert(ctx, &model.Unit{SyncModel: model.SyncModel{TenantID: tenant}, Name: "pcs"})
	require.NoError(t, err)
	row, err := store.Units.FindByID(ctx, tenant, id)
	require.NoError(t, err)

	// Snapshot taken before the row was last written.
	ok, err := store.Units.MarkSynced(ctx, id, tenant, row.LastUpdatedAt.Add(-time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	pending, err := store.Units.Count(ctx, tenant, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)

	ok, err = store.Units.MarkSynced(ctx, id, tenant, row.LastUpdatedAt)
	require.NoError(t, err)
	assert.True(t, ok)

	pending, err = store.Units.Count(ctx, tenant, true)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestSyncRepo_UpsertRemote(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tenant := uuid.New()
	id := uuid.New()
	stamp := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	created, err := store.Suppliers.UpsertRemote(ctx, &model.Supplier{
		SyncModel: model.SyncModel{UUID: id, TenantID: tenant, LastUpdatedAt: stamp},
		Name:      "Acme",
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Suppliers.UpsertRemote(ctx, &model.Supplier{
		SyncModel: model.SyncModel{UUID: id, TenantID: tenant, LastUpdatedAt: stamp.Add(time.Hour)},
		Name:      "Acme Ltd",
	})
	require.NoError(t, err)
	assert.False(t, created)

	rows, err := store.Suppliers.QueryAll(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme Ltd", rows[0].Name)
	assert.True(t, rows[0].Synced)
	assert.Equal(t, id, rows[0].UUID)
	assert.True(t, rows[0].LastUpdatedAt.Equal(stamp.Add(time.Hour)))

	_, err = store.Suppliers.UpsertRemote(ctx, &model.Supplier{
		SyncModel: model.SyncModel{UUID: id, TenantID: uuid.New()},
		Name:      "Hijack",
	})
	assert.ErrorIs(t, err, ErrTenantMismatch)
}

func TestDescriptor_PrepareResolvesReferences(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tenant := uuid.New()

	p := newProduct(tenant, "A-1")
	productID, err := store.Products.Insert(ctx, p)
	require.NoError(t, err)

	entry := &model.StockLedger{
		SyncModel:     model.SyncModel{UUID: uuid.New(), TenantID: tenant},
		ProductUUID:   p.UUID,
		QuantityDelta: 3,
	}
	require.NoError(t, LedgerDescriptor.Prepare(ctx, store, tenant, entry))
	assert.Equal(t, productID, entry.ProductID)
	assert.Equal(t, model.ReasonAdjustment, entry.Reason)

	orphan := &model.SaleItem{
		SyncModel:   model.SyncModel{UUID: uuid.New(), TenantID: tenant},
		SaleUUID:    uuid.New(),
		ProductUUID: p.UUID,
	}
	err = SaleItemDescriptor.Prepare(ctx, store, tenant, orphan)
	assert.ErrorIs(t, err, ErrMissingReference)

	unknownCategory := uuid.New()
	withCategory := newProduct(tenant, "A-2")
	withCategory.CategoryUUID = &unknownCategory
	require.NoError(t, ProductDescriptor.Prepare(ctx, store, tenant, withCategory))
	assert.Nil(t, withCategory.CategoryID)
	require.NotNil(t, withCategory.CategoryUUID)
	assert.Equal(t, unknownCategory, *withCategory.CategoryUUID)
}

func TestDescriptor_SaleTransactionDateDefaults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tenant := uuid.New()

	updated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	stamped := &model.Sale{SyncModel: model.SyncModel{UUID: uuid.New(), TenantID: tenant, LastUpdatedAt: updated}}
	require.NoError(t, SaleDescriptor.Prepare(ctx, store, tenant, stamped))
	assert.True(t, stamped.TransactionDate.Equal(updated))

	before := model.Now()
	bare := &model.Sale{SyncModel: model.SyncModel{UUID: uuid.New(), TenantID: tenant}}
	require.NoError(t, SaleDescriptor.Prepare(ctx, store, tenant, bare))
	assert.False(t, bare.TransactionDate.IsZero())
	assert.False(t, bare.TransactionDate.Before(before.Add(-time.Second)))
}

func TestDescriptor_ReferenceFromOtherTenantDoesNotResolve(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	p := newProduct(uuid.New(), "X")
	_, err := store.Products.Insert(ctx, p)
	require.NoError(t, err)

	tenant := uuid.New()
	entry := &model.StockLedger{SyncModel: model.SyncModel{TenantID: tenant}, ProductUUID: p.UUID}
	err = LedgerDescriptor.Prepare(ctx, store, tenant, entry)
	assert.ErrorIs(t, err, ErrMissingReference)
}

func TestStore_RelinkCategoryParents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tenant := uuid.New()
	parentUUID := uuid.New()

	child := &model.Category{
		SyncModel:  model.SyncModel{UUID: uuid.New(), TenantID: tenant},
		Name:       "Soft drinks",
		ParentUUID: &parentUUID,
	}
	require.NoError(t, CategoryDescriptor.Prepare(ctx, store, tenant, child))
	_, err := store.Categories.UpsertRemote(ctx, child)
	require.NoError(t, err)

	parent := &model.Category{SyncModel: model.SyncModel{UUID: parentUUID, TenantID: tenant}, Name: "Drinks"}
	_, err = store.Categories.UpsertRemote(ctx, parent)
	require.NoError(t, err)

	n, err := store.RelinkCategoryParents(ctx, tenant)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.Categories.FindByUUID(ctx, tenant, child.UUID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, parent.ID, *got.ParentID)
}

func TestStore_StockIsLedgerSum(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tenant := uuid.New()

	p := newProduct(tenant, "A-1")
	productID, err := store.Products.Insert(ctx, p)
	require.NoError(t, err)
	_, err = store.Products.Insert(ctx, newProduct(tenant, "A-2"))
	require.NoError(t, err)

	var lastID uint
	for _, delta := range []float64{10, -3, 2.5} {
		lastID, err = store.Ledger.Insert(ctx, &model.StockLedger{
			SyncModel:     model.SyncModel{TenantID: tenant},
			ProductID:     productID,
			ProductUUID:   p.UUID,
			QuantityDelta: delta,
			Reason:        model.ReasonAdjustment,
		})
		require.NoError(t, err)
	}

	stock, err := store.StockOf(ctx, tenant, productID)
	require.NoError(t, err)
	assert.InDelta(t, 9.5, stock, 1e-9)

	require.NoError(t, store.Ledger.SoftDelete(ctx, lastID, tenant))
	stock, err = store.StockOf(ctx, tenant, productID)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, stock, 1e-9)

	levels, err := store.StockLevels(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.InDelta(t, 7.0, levels[0].Stock, 1e-9)
	assert.Zero(t, levels[1].Stock)

	stats, err := store.DashboardStats(ctx, tenant)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalProducts)
	assert.EqualValues(t, 1, stats.LowStockCount)
	assert.True(t, stats.TotalValuation.Equal(decimal.NewFromInt(14)), stats.TotalValuation.String())
	assert.EqualValues(t, 5, stats.UnsyncedRows)

	movement, err := store.StockMovement(ctx, tenant, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, movement)
	assert.InDelta(t, 10.0, movement[0].Inbound, 1e-9)
	assert.InDelta(t, 3.0, movement[0].Outbound, 1e-9)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tenant := uuid.New()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.Units.Insert(ctx, &model.Unit{SyncModel: model.SyncModel{TenantID: tenant}, Name: "kg"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := store.Units.Count(ctx, tenant, false)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_SettingsAndUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tenant := uuid.New()

	_, err := store.Settings.Insert(ctx, &model.Setting{SyncModel: model.SyncModel{TenantID: tenant}, Key: "currency", Value: "EUR"})
	require.NoError(t, err)
	setting, err := store.SettingByKey(ctx, tenant, "currency")
	require.NoError(t, err)
	assert.Equal(t, "EUR", setting.Value)
	_, err = store.SettingByKey(ctx, tenant, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Users.Insert(ctx, &model.User{SyncModel: model.SyncModel{TenantID: tenant}, Username: "cashier1", Role: model.RoleCashier, IsActive: true})
	require.NoError(t, err)
	user, err := store.UserByUsername(ctx, "cashier1")
	require.NoError(t, err)
	assert.Equal(t, tenant, user.TenantID)
	_, err = store.UserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTenantRepo_SaveAndActivate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	id := uuid.New()

	_, err := store.Tenants.Current(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Tenants.Save(ctx, &model.Tenant{UUID: id, Name: "Shop", Status: model.TenantStatusActive}))
	require.NoError(t, store.Tenants.Save(ctx, &model.Tenant{UUID: id, Name: "Shop 2", Status: model.TenantStatusActive}))
	require.NoError(t, store.Tenants.MarkActivated(ctx, id))

	current, err := store.Tenants.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, current.UUID)
	assert.Equal(t, "Shop 2", current.Name)
	assert.NotNil(t, current.ActivatedAt)

	assert.ErrorIs(t, store.Tenants.MarkActivated(ctx, uuid.New()), ErrNotFound)
}
