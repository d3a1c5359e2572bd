package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product has no stock column: stock is always the sum of its ledger rows.
type Product struct {
	SyncModel
	SKU          string          `gorm:"type:varchar(50);index;not null" json:"sku" validate:"required"`
	Barcode      string          `gorm:"type:varchar(64);index" json:"barcode"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Description  string          `gorm:"type:text" json:"description"`
	CategoryID   *uint           `gorm:"index" json:"-"`
	CategoryUUID *uuid.UUID      `gorm:"type:varchar(36)" json:"category_uuid"`
	UnitID       *uint           `gorm:"index" json:"-"`
	UnitUUID     *uuid.UUID      `gorm:"type:varchar(36)" json:"unit_uuid"`
	SupplierID   *uint           `gorm:"index" json:"-"`
	SupplierUUID *uuid.UUID      `gorm:"type:varchar(36)" json:"supplier_uuid"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"cost_price" validate:"gte=0"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"selling_price" validate:"gte=0"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"tax_rate" validate:"gte=0"`
	ReorderLevel float64         `gorm:"not null;default:0" json:"reorder_level"`
	Active       bool            `gorm:"not null" json:"active"`
}

func (Product) TableName() string {
	return "products"
}

// ProductStock pairs a product with its derived stock level.
type ProductStock struct {
	Product
	Stock float64 `json:"stock"`
}

func (p ProductStock) LowStock() bool {
	return p.Stock <= p.ReorderLevel
}

// ProductSupplier carries the supplier-specific code of a product. The pair
// (product, supplier) is unique per tenant; the service layer enforces it.
type ProductSupplier struct {
	SyncModel
	ProductID         uint            `gorm:"index;not null" json:"-"`
	ProductUUID       uuid.UUID       `gorm:"type:varchar(36);not null" json:"product_uuid"`
	SupplierID        uint            `gorm:"index;not null" json:"-"`
	SupplierUUID      uuid.UUID       `gorm:"type:varchar(36);not null" json:"supplier_uuid"`
	SupplierCode      string          `gorm:"type:varchar(100)" json:"supplier_product_code"`
	LastPurchasePrice decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"last_purchase_price"`
}

func (ProductSupplier) TableName() string {
	return "product_suppliers"
}
