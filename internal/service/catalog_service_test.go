package service

import (
	"testing"

	"go-pos-sync/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_CategoryParentRules(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.store, nil)

	root, err := svc.CreateCategory(f.ctx, f.session, &CategoryInput{Name: "Drinks"})
	require.NoError(t, err)
	child, err := svc.CreateCategory(f.ctx, f.session, &CategoryInput{Name: "Soda", ParentID: &root.UUID})
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)

	_, err = svc.UpdateCategory(f.ctx, f.session, root.UUID, &CategoryInput{Name: "Drinks", ParentID: &child.UUID})
	assert.ErrorIs(t, err, ErrCategoryCycle)
	_, err = svc.UpdateCategory(f.ctx, f.session, root.UUID, &CategoryInput{Name: "Drinks", ParentID: &root.UUID})
	assert.ErrorIs(t, err, ErrCategoryCycle)

	missing := uuid.New()
	_, err = svc.CreateCategory(f.ctx, f.session, &CategoryInput{Name: "Orphan", ParentID: &missing})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	// a parent from another tenant is invisible
	other := &model.Category{SyncModel: model.SyncModel{TenantID: uuid.New()}, Name: "Foreign"}
	_, err = f.store.Categories.Insert(f.ctx, other)
	require.NoError(t, err)
	_, err = svc.CreateCategory(f.ctx, f.session, &CategoryInput{Name: "X", ParentID: &other.UUID})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	require.NoError(t, svc.DeleteCategory(f.ctx, f.session, child.UUID))
	list, err := svc.ListCategories(f.ctx, f.session)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, root.UUID, list[0].UUID)
	assert.ErrorIs(t, svc.DeleteCategory(f.ctx, f.session, child.UUID), ErrCategoryNotFound)
}

func TestCatalog_ProductSKUIsUniquePerTenant(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.store, nil)

	unit, err := svc.CreateUnit(f.ctx, f.session, &model.Unit{Name: "Piece", Abbreviation: "pc"})
	require.NoError(t, err)

	p, err := svc.CreateProduct(f.ctx, f.session, &ProductInput{
		SKU:          " COLA-1 ",
		Name:         "Cola",
		UnitID:       &unit.UUID,
		SellingPrice: decimal.NewFromInt(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "COLA-1", p.SKU)
	assert.True(t, p.Active)
	require.NotNil(t, p.UnitID)
	assert.Equal(t, unit.ID, *p.UnitID)

	_, err = svc.CreateProduct(f.ctx, f.session, &ProductInput{SKU: "COLA-1", Name: "Other"})
	assert.ErrorIs(t, err, ErrSKUExists)

	// updating a product with its own SKU is fine
	inactive := false
	updated, err := svc.UpdateProduct(f.ctx, f.session, p.UUID, &ProductInput{SKU: "COLA-1", Name: "Cola Zero", Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Cola Zero", updated.Name)
	assert.False(t, updated.Active)
	assert.Nil(t, updated.UnitID)

	// a tombstoned product frees its SKU
	require.NoError(t, svc.DeleteProduct(f.ctx, f.session, p.UUID))
	_, err = svc.CreateProduct(f.ctx, f.session, &ProductInput{SKU: "COLA-1", Name: "Cola again"})
	require.NoError(t, err)

	_, err = svc.CreateProduct(f.ctx, f.session, &ProductInput{SKU: "", Name: "No SKU"})
	assert.Error(t, err)
	_, err = svc.CreateProduct(f.ctx, f.session, &ProductInput{SKU: "T", Name: "Bad tax", TaxRate: decimal.NewFromInt(2)})
	assert.Error(t, err)
}

func TestCatalog_SupplierLinks(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.store, nil)
	p := f.product(t, "SKU-1", 10)
	sup, err := svc.CreateSupplier(f.ctx, f.session, &model.Supplier{Name: "Acme", Email: "sales@acme.test"})
	require.NoError(t, err)

	req := &SupplierLinkInput{ProductID: p.UUID, SupplierID: sup.UUID, SupplierCode: "A-9"}
	link, err := svc.LinkSupplier(f.ctx, f.session, req)
	require.NoError(t, err)
	assert.Equal(t, sup.UUID, link.SupplierUUID)

	_, err = svc.LinkSupplier(f.ctx, f.session, req)
	assert.ErrorIs(t, err, ErrSupplierLinkExists)

	require.NoError(t, svc.UnlinkSupplier(f.ctx, f.session, link.UUID))
	_, err = svc.LinkSupplier(f.ctx, f.session, req)
	require.NoError(t, err)

	_, err = svc.CreateSupplier(f.ctx, f.session, &model.Supplier{Name: "Bad", Email: "not-an-email"})
	assert.Error(t, err)
}

func TestCatalog_UpdatePlainEntities(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.store, nil)

	c, err := svc.CreateCustomer(f.ctx, f.session, &model.Customer{Name: "Ann"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, c.UUID)

	updated, err := svc.UpdateCustomer(f.ctx, f.session, c.UUID, &model.Customer{Name: "Ann B.", Phone: "555"})
	require.NoError(t, err)
	assert.Equal(t, c.UUID, updated.UUID)
	assert.Equal(t, "555", updated.Phone)

	_, err = svc.UpdateCustomer(f.ctx, f.session, uuid.New(), &model.Customer{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	list, err := svc.ListCustomers(f.ctx, f.session)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ann B.", list[0].Name)
}

func TestCatalog_Settings(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.store, nil)

	_, err := svc.GetSetting(f.ctx, f.session, "currency")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	first, err := svc.SetSetting(f.ctx, f.session, "currency", "EUR")
	require.NoError(t, err)
	second, err := svc.SetSetting(f.ctx, f.session, "currency", "USD")
	require.NoError(t, err)
	assert.Equal(t, first.UUID, second.UUID)

	v, err := svc.GetSetting(f.ctx, f.session, "currency")
	require.NoError(t, err)
	assert.Equal(t, "USD", v)

	all, err := svc.ListSettings(f.ctx, f.session)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.SetSetting(f.ctx, f.session, "  ", "x")
	assert.Error(t, err)
}
