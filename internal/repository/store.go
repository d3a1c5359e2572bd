package repository

import (
	"context"
	"errors"
	"fmt"

	"go-pos-sync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store bundles the repositories of every entity over one *gorm.DB. A Store
// built inside Transaction shares the transaction; code running inside it
// must only use that Store, since the local database allows a single
// connection.
type Store struct {
	db *gorm.DB

	Tenants          *TenantRepo
	Users            *SyncRepo[model.User, *model.User]
	Categories       *SyncRepo[model.Category, *model.Category]
	Units            *SyncRepo[model.Unit, *model.Unit]
	Suppliers        *SyncRepo[model.Supplier, *model.Supplier]
	Customers        *SyncRepo[model.Customer, *model.Customer]
	Settings         *SyncRepo[model.Setting, *model.Setting]
	Products         *SyncRepo[model.Product, *model.Product]
	ProductSuppliers *SyncRepo[model.ProductSupplier, *model.ProductSupplier]
	Sales            *SyncRepo[model.Sale, *model.Sale]
	SaleItems        *SyncRepo[model.SaleItem, *model.SaleItem]
	Payments         *SyncRepo[model.Payment, *model.Payment]
	Ledger           *SyncRepo[model.StockLedger, *model.StockLedger]
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:               db,
		Tenants:          &TenantRepo{db: db},
		Users:            NewSyncRepo[model.User](db, model.KindUsers),
		Categories:       NewSyncRepo[model.Category](db, model.KindCategories),
		Units:            NewSyncRepo[model.Unit](db, model.KindUnits),
		Suppliers:        NewSyncRepo[model.Supplier](db, model.KindSuppliers),
		Customers:        NewSyncRepo[model.Customer](db, model.KindCustomers),
		Settings:         NewSyncRepo[model.Setting](db, model.KindSettings),
		Products:         NewSyncRepo[model.Product](db, model.KindProducts),
		ProductSuppliers: NewSyncRepo[model.ProductSupplier](db, model.KindProductSuppliers),
		Sales:            NewSyncRepo[model.Sale](db, model.KindSales),
		SaleItems:        NewSyncRepo[model.SaleItem](db, model.KindSaleItems),
		Payments:         NewSyncRepo[model.Payment](db, model.KindPayments),
		Ledger:           NewSyncRepo[model.StockLedger](db, model.KindStockLedger),
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn inside one database transaction. Any error returned by
// fn rolls back every write made through tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// LookupID maps a uuid of the given kind to its local id. Tombstoned rows
// still resolve.
func (s *Store) LookupID(ctx context.Context, kind model.EntityKind, tenant, id uuid.UUID) (uint, bool, error) {
	var localID uint
	err := s.db.WithContext(ctx).
		Table(string(kind)).
		Select("id").
		Where("tenant_id = ? AND uuid = ?", tenant, id).
		Limit(1).
		Scan(&localID).Error
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s %s: %w", kind, id, err)
	}
	return localID, localID != 0, nil
}

// RelinkCategoryParents binds parent_id on categories whose parent arrived
// later in the same pull.
func (s *Store) RelinkCategoryParents(ctx context.Context, tenant uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).Exec(`
		UPDATE categories
		SET parent_id = (
			SELECT p.id FROM categories p
			WHERE p.uuid = categories.parent_uuid AND p.tenant_id = categories.tenant_id
		)
		WHERE tenant_id = ?
			AND parent_uuid IS NOT NULL
			AND parent_id IS NULL
			AND EXISTS (
				SELECT 1 FROM categories p
				WHERE p.uuid = categories.parent_uuid AND p.tenant_id = categories.tenant_id
			)`, tenant)
	if res.Error != nil {
		return 0, fmt.Errorf("relink categories: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UserByUsername is tenant-agnostic: it runs before any tenant is known.
func (s *Store) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("username = ? AND deleted = ?", username, false).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// SettingByKey returns the live setting stored under key, or ErrNotFound.
func (s *Store) SettingByKey(ctx context.Context, tenant uuid.UUID, key string) (*model.Setting, error) {
	rows, err := s.Settings.Where(ctx, tenant, "key = ?", key)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	return &rows[0], nil
}

// SupplierLink returns the product/supplier pair, or ErrNotFound.
func (s *Store) SupplierLink(ctx context.Context, tenant uuid.UUID, productID, supplierID uint) (*model.ProductSupplier, error) {
	rows, err := s.ProductSuppliers.Where(ctx, tenant, "product_id = ? AND supplier_id = ?", productID, supplierID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("product supplier: %w", ErrNotFound)
	}
	return &rows[0], nil
}

// TenantRepo stores the tenant records fetched at activation. Tenants are not
// syncable: they are read from the remote store and never pushed.
type TenantRepo struct {
	db *gorm.DB
}

// Save inserts or refreshes the tenant by uuid.
func (r *TenantRepo) Save(ctx context.Context, tenant *model.Tenant) error {
	tenant.ID = 0
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "status", "license_key", "expires_at", "updated_at"}),
	}).Create(tenant).Error
	if err != nil {
		return fmt.Errorf("save tenant %s: %w", tenant.UUID, err)
	}
	return nil
}

func (r *TenantRepo) FindByUUID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).Where("uuid = ?", id).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tenant %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &tenant, nil
}

// Current returns the most recently activated tenant of this installation.
func (r *TenantRepo) Current(ctx context.Context) (*model.Tenant, error) {
	var tenant model.Tenant
	err := r.db.WithContext(ctx).
		Where("activated_at IS NOT NULL").
		Order("activated_at DESC").
		First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("activated tenant: %w", ErrNotFound)
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *TenantRepo) MarkActivated(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Tenant{}).
		Where("uuid = ?", id).
		UpdateColumn("activated_at", model.Now())
	if res.Error != nil {
		return fmt.Errorf("activate tenant %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("activate tenant %s: %w", id, ErrNotFound)
	}
	return nil
}
