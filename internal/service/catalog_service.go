package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/repository"
	"go-pos-sync/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryCycle       = errors.New("category cannot be its own ancestor")
	ErrUnitNotFound        = errors.New("unit not found")
	ErrSKUExists           = errors.New("SKU already exists")
	ErrSupplierLinkExists  = errors.New("product is already linked to this supplier")
	ErrSupplierLinkMissing = errors.New("product supplier link not found")
	ErrSettingNotFound     = errors.New("setting not found")
)

type CatalogService interface {
	CreateCategory(ctx context.Context, session model.Session, req *CategoryInput) (*model.Category, error)
	UpdateCategory(ctx context.Context, session model.Session, id uuid.UUID, req *CategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, session model.Session, id uuid.UUID) error
	ListCategories(ctx context.Context, session model.Session) ([]model.Category, error)

	CreateUnit(ctx context.Context, session model.Session, req *model.Unit) (*model.Unit, error)
	UpdateUnit(ctx context.Context, session model.Session, id uuid.UUID, req *model.Unit) (*model.Unit, error)
	DeleteUnit(ctx context.Context, session model.Session, id uuid.UUID) error
	ListUnits(ctx context.Context, session model.Session) ([]model.Unit, error)

	CreateSupplier(ctx context.Context, session model.Session, req *model.Supplier) (*model.Supplier, error)
	UpdateSupplier(ctx context.Context, session model.Session, id uuid.UUID, req *model.Supplier) (*model.Supplier, error)
	DeleteSupplier(ctx context.Context, session model.Session, id uuid.UUID) error
	ListSuppliers(ctx context.Context, session model.Session) ([]model.Supplier, error)

	CreateCustomer(ctx context.Context, session model.Session, req *model.Customer) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, session model.Session, id uuid.UUID, req *model.Customer) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, session model.Session, id uuid.UUID) error
	ListCustomers(ctx context.Context, session model.Session) ([]model.Customer, error)

	CreateProduct(ctx context.Context, session model.Session, req *ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, session model.Session, id uuid.UUID, req *ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, session model.Session, id uuid.UUID) error
	ListProducts(ctx context.Context, session model.Session) ([]model.Product, error)

	LinkSupplier(ctx context.Context, session model.Session, req *SupplierLinkInput) (*model.ProductSupplier, error)
	UnlinkSupplier(ctx context.Context, session model.Session, id uuid.UUID) error

	GetSetting(ctx context.Context, session model.Session, key string) (string, error)
	SetSetting(ctx context.Context, session model.Session, key, value string) (*model.Setting, error)
	ListSettings(ctx context.Context, session model.Session) ([]model.Setting, error)
}

type CategoryInput struct {
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_uuid,omitempty"`
}

type ProductInput struct {
	SKU          string          `json:"sku" validate:"required"`
	Barcode      string          `json:"barcode"`
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	CategoryID   *uuid.UUID      `json:"category_uuid,omitempty"`
	UnitID       *uuid.UUID      `json:"unit_uuid,omitempty"`
	SupplierID   *uuid.UUID      `json:"supplier_uuid,omitempty"`
	CostPrice    decimal.Decimal `json:"cost_price" validate:"gte=0"`
	SellingPrice decimal.Decimal `json:"selling_price" validate:"gte=0"`
	TaxRate      decimal.Decimal `json:"tax_rate" validate:"gte=0,lte=1"`
	ReorderLevel float64         `json:"reorder_level" validate:"gte=0"`
	Active       *bool           `json:"active,omitempty"`
}

type SupplierLinkInput struct {
	ProductID         uuid.UUID       `json:"product_uuid" validate:"uuid_required"`
	SupplierID        uuid.UUID       `json:"supplier_uuid" validate:"uuid_required"`
	SupplierCode      string          `json:"supplier_product_code"`
	LastPurchasePrice decimal.Decimal `json:"last_purchase_price" validate:"gte=0"`
}

type catalogService struct {
	store *repository.Store
	hub   Broadcaster
}

func NewCatalogService(store *repository.Store, hub Broadcaster) CatalogService {
	return &catalogService{store: store, hub: hub}
}

// --- categories ---

func (s *catalogService) CreateCategory(ctx context.Context, session model.Session, req *CategoryInput) (*model.Category, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	category := &model.Category{SyncModel: model.SyncModel{TenantID: tenant}}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := s.applyCategory(ctx, tx, tenant, category, req); err != nil {
			return err
		}
		_, err := tx.Categories.Insert(ctx, category)
		return err
	})
	if err != nil {
		return nil, err
	}
	notify(s.hub, "catalog_changed", map[string]interface{}{"kind": model.KindCategories, "uuid": category.UUID})
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, session model.Session, id uuid.UUID, req *CategoryInput) (*model.Category, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	var category *model.Category
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		category, err = findLive(ctx, tx.Categories, tenant, id, ErrCategoryNotFound)
		if err != nil {
			return err
		}
		if err := s.applyCategory(ctx, tx, tenant, category, req); err != nil {
			return err
		}
		return tx.Categories.Update(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	notify(s.hub, "catalog_changed", map[string]interface{}{"kind": model.KindCategories, "uuid": category.UUID})
	return category, nil
}

// applyCategory copies the input onto c after checking the parent: it must
// be a live category of the same tenant and must not have c as an ancestor.
func (s *catalogService) applyCategory(ctx context.Context, tx *repository.Store, tenant uuid.UUID, c *model.Category, req *CategoryInput) error {
	c.Name = strings.TrimSpace(req.Name)
	c.Description = req.Description
	c.ParentID, c.ParentUUID = nil, nil
	if req.ParentID == nil {
		return nil
	}

	parent, err := findLive(ctx, tx.Categories, tenant, *req.ParentID, ErrCategoryNotFound)
	if err != nil {
		return fmt.Errorf("parent: %w", err)
	}
	if c.ID != 0 {
		for node := parent; ; {
			if node.ID == c.ID {
				return ErrCategoryCycle
			}
			if node.ParentID == nil {
				break
			}
			next, err := tx.Categories.FindByID(ctx, tenant, *node.ParentID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					break
				}
				return err
			}
			node = next
		}
	}
	c.ParentID, c.ParentUUID = &parent.ID, &parent.UUID
	return nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, session model.Session, id uuid.UUID) error {
	tenant, err := session.TenantID()
	if err != nil {
		return err
	}
	return deleteLive(ctx, s.store.Categories, tenant, id, ErrCategoryNotFound)
}

func (s *catalogService) ListCategories(ctx context.Context, session model.Session) ([]model.Category, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	return s.store.Categories.QueryAll(ctx, tenant)
}

// --- units, suppliers, customers ---

func (s *catalogService) CreateUnit(ctx context.Context, session model.Session, req *model.Unit) (*model.Unit, error) {
	return createPlain(ctx, session, s.store.Units, req)
}

func (s *catalogService) UpdateUnit(ctx context.Context, session model.Session, id uuid.UUID, req *model.Unit) (*model.Unit, error) {
	return updatePlain(ctx, session, s.store.Units, id, req, ErrUnitNotFound, func(dst, src *model.Unit) {
		dst.Name = src.Name
		dst.Abbreviation = src.Abbreviation
	})
}

func (s *catalogService) DeleteUnit(ctx context.Context, session model.Session, id uuid.UUID) error {
	tenant, err := session.TenantID()
	if err != nil {
		return err
	}
	return deleteLive(ctx, s.store.Units, tenant, id, ErrUnitNotFound)
}

func (s *catalogService) ListUnits(ctx context.Context, session model.Session) ([]model.Unit, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	return s.store.Units.QueryAll(ctx, tenant)
}

func (s *catalogService) CreateSupplier(ctx context.Context, session model.Session, req *model.Supplier) (*model.Supplier, error) {
	return createPlain(ctx, session, s.store.Suppliers, req)
}

func (s *catalogService) UpdateSupplier(ctx context.Context, session model.Session, id uuid.UUID, req *model.Supplier) (*model.Supplier, error) {
	return updatePlain(ctx, session, s.store.Suppliers, id, req, ErrSupplierNotFound, func(dst, src *model.Supplier) {
		dst.Name = src.Name
		dst.ContactName = src.ContactName
		dst.Phone = src.Phone
		dst.Email = src.Email
		dst.Address = src.Address
		dst.TaxNumber = src.TaxNumber
	})
}

func (s *catalogService) DeleteSupplier(ctx context.Context, session model.Session, id uuid.UUID) error {
	tenant, err := session.TenantID()
	if err != nil {
		return err
	}
	return deleteLive(ctx, s.store.Suppliers, tenant, id, ErrSupplierNotFound)
}

func (s *catalogService) ListSuppliers(ctx context.Context, session model.Session) ([]model.Supplier, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	return s.store.Suppliers.QueryAll(ctx, tenant)
}

func (s *catalogService) CreateCustomer(ctx context.Context, session model.Session, req *model.Customer) (*model.Customer, error) {
	return createPlain(ctx, session, s.store.Customers, req)
}

func (s *catalogService) UpdateCustomer(ctx context.Context, session model.Session, id uuid.UUID, req *model.Customer) (*model.Customer, error) {
	return updatePlain(ctx, session, s.store.Customers, id, req, ErrCustomerNotFound, func(dst, src *model.Customer) {
		dst.Name = src.Name
		dst.Phone = src.Phone
		dst.Email = src.Email
		dst.Address = src.Address
	})
}

func (s *catalogService) DeleteCustomer(ctx context.Context, session model.Session, id uuid.UUID) error {
	tenant, err := session.TenantID()
	if err != nil {
		return err
	}
	return deleteLive(ctx, s.store.Customers, tenant, id, ErrCustomerNotFound)
}

func (s *catalogService) ListCustomers(ctx context.Context, session model.Session) ([]model.Customer, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	return s.store.Customers.QueryAll(ctx, tenant)
}

// --- products ---

func (s *catalogService) CreateProduct(ctx context.Context, session model.Session, req *ProductInput) (*model.Product, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	product := &model.Product{SyncModel: model.SyncModel{TenantID: tenant}, Active: true}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := s.applyProduct(ctx, tx, tenant, product, req); err != nil {
			return err
		}
		_, err := tx.Products.Insert(ctx, product)
		return err
	})
	if err != nil {
		return nil, err
	}
	notify(s.hub, "catalog_changed", map[string]interface{}{"kind": model.KindProducts, "uuid": product.UUID, "sku": product.SKU})
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, session model.Session, id uuid.UUID, req *ProductInput) (*model.Product, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	var product *model.Product
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		product, err = findLive(ctx, tx.Products, tenant, id, ErrProductNotFound)
		if err != nil {
			return err
		}
		if err := s.applyProduct(ctx, tx, tenant, product, req); err != nil {
			return err
		}
		return tx.Products.Update(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	notify(s.hub, "catalog_changed", map[string]interface{}{"kind": model.KindProducts, "uuid": product.UUID, "sku": product.SKU})
	return product, nil
}

// applyProduct enforces SKU uniqueness among the tenant's live products and
// resolves the optional references.
func (s *catalogService) applyProduct(ctx context.Context, tx *repository.Store, tenant uuid.UUID, p *model.Product, req *ProductInput) error {
	sku := strings.TrimSpace(req.SKU)
	clash, err := tx.Products.Where(ctx, tenant, "sku = ? AND id <> ?", sku, p.ID)
	if err != nil {
		return err
	}
	if len(clash) > 0 {
		return fmt.Errorf("%s: %w", sku, ErrSKUExists)
	}

	p.SKU = sku
	p.Barcode = req.Barcode
	p.Name = req.Name
	p.Description = req.Description
	p.CostPrice = req.CostPrice
	p.SellingPrice = req.SellingPrice
	p.TaxRate = req.TaxRate
	p.ReorderLevel = req.ReorderLevel
	if req.Active != nil {
		p.Active = *req.Active
	}

	p.CategoryID, p.CategoryUUID = nil, nil
	if req.CategoryID != nil {
		c, err := findLive(ctx, tx.Categories, tenant, *req.CategoryID, ErrCategoryNotFound)
		if err != nil {
			return err
		}
		p.CategoryID, p.CategoryUUID = &c.ID, &c.UUID
	}
	p.UnitID, p.UnitUUID = nil, nil
	if req.UnitID != nil {
		u, err := findLive(ctx, tx.Units, tenant, *req.UnitID, ErrUnitNotFound)
		if err != nil {
			return err
		}
		p.UnitID, p.UnitUUID = &u.ID, &u.UUID
	}
	p.SupplierID, p.SupplierUUID = nil, nil
	if req.SupplierID != nil {
		sup, err := findLive(ctx, tx.Suppliers, tenant, *req.SupplierID, ErrSupplierNotFound)
		if err != nil {
			return err
		}
		p.SupplierID, p.SupplierUUID = &sup.ID, &sup.UUID
	}
	return nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, session model.Session, id uuid.UUID) error {
	tenant, err := session.TenantID()
	if err != nil {
		return err
	}
	return deleteLive(ctx, s.store.Products, tenant, id, ErrProductNotFound)
}

func (s *catalogService) ListProducts(ctx context.Context, session model.Session) ([]model.Product, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	return s.store.Products.QueryAll(ctx, tenant)
}

// --- product suppliers ---

func (s *catalogService) LinkSupplier(ctx context.Context, session model.Session, req *SupplierLinkInput) (*model.ProductSupplier, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	var link *model.ProductSupplier
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		product, err := findLive(ctx, tx.Products, tenant, req.ProductID, ErrProductNotFound)
		if err != nil {
			return err
		}
		supplier, err := findLive(ctx, tx.Suppliers, tenant, req.SupplierID, ErrSupplierNotFound)
		if err != nil {
			return err
		}
		if _, err := tx.SupplierLink(ctx, tenant, product.ID, supplier.ID); err == nil {
			return ErrSupplierLinkExists
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		link = &model.ProductSupplier{
			SyncModel:         model.SyncModel{TenantID: tenant},
			ProductID:         product.ID,
			ProductUUID:       product.UUID,
			SupplierID:        supplier.ID,
			SupplierUUID:      supplier.UUID,
			SupplierCode:      strings.TrimSpace(req.SupplierCode),
			LastPurchasePrice: req.LastPurchasePrice,
		}
		_, err = tx.ProductSuppliers.Insert(ctx, link)
		return err
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *catalogService) UnlinkSupplier(ctx context.Context, session model.Session, id uuid.UUID) error {
	tenant, err := session.TenantID()
	if err != nil {
		return err
	}
	return deleteLive(ctx, s.store.ProductSuppliers, tenant, id, ErrSupplierLinkMissing)
}

// --- settings ---

func (s *catalogService) GetSetting(ctx context.Context, session model.Session, key string) (string, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return "", err
	}
	setting, err := s.store.SettingByKey(ctx, tenant, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", key, ErrSettingNotFound)
		}
		return "", err
	}
	return setting.Value, nil
}

// SetSetting updates the live setting stored under key, or creates it.
func (s *catalogService) SetSetting(ctx context.Context, session model.Session, key, value string) (*model.Setting, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, validator.Fail("Key", "required")
	}

	var setting *model.Setting
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		setting, err = tx.SettingByKey(ctx, tenant, key)
		switch {
		case err == nil:
			setting.Value = value
			return tx.Settings.Update(ctx, setting)
		case errors.Is(err, repository.ErrNotFound):
			setting = &model.Setting{SyncModel: model.SyncModel{TenantID: tenant}, Key: key, Value: value}
			_, err = tx.Settings.Insert(ctx, setting)
			return err
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func (s *catalogService) ListSettings(ctx context.Context, session model.Session) ([]model.Setting, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	return s.store.Settings.QueryAll(ctx, tenant)
}

// --- generic helpers for reference-free entities ---

func createPlain[T any, P repository.Entity[T]](ctx context.Context, session model.Session, repo *repository.SyncRepo[T, P], req P) (P, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	env := req.Envelope()
	*env = model.SyncModel{TenantID: tenant}
	if _, err := repo.Insert(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func updatePlain[T any, P repository.Entity[T]](ctx context.Context, session model.Session, repo *repository.SyncRepo[T, P], id uuid.UUID, req P, notFound error, apply func(dst, src P)) (P, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	existing, err := findLive(ctx, repo, tenant, id, notFound)
	if err != nil {
		return nil, err
	}
	apply(existing, req)
	if err := repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func deleteLive[T any, P repository.Entity[T]](ctx context.Context, repo *repository.SyncRepo[T, P], tenant, id uuid.UUID, notFound error) error {
	existing, err := findLive(ctx, repo, tenant, id, notFound)
	if err != nil {
		return err
	}
	return repo.SoftDelete(ctx, existing.Envelope().ID, tenant)
}
