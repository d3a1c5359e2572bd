package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleType string

const (
	SaleTypeSale     SaleType = "sale"
	SaleTypePurchase SaleType = "purchase"
)

// Direction is the sign applied to line quantities when they hit the ledger.
func (t SaleType) Direction() float64 {
	if t == SaleTypePurchase {
		return 1
	}
	return -1
}

// LedgerReason is the reason code written on ledger rows produced by the type.
func (t SaleType) LedgerReason() string {
	if t == SaleTypePurchase {
		return ReasonPurchase
	}
	return ReasonSale
}

func (t SaleType) Valid() bool {
	return t == SaleTypeSale || t == SaleTypePurchase
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Sale is the physical header shared by sales and purchases. Sales reference
// a customer, purchases a supplier.
type Sale struct {
	SyncModel
	Type            SaleType        `gorm:"type:varchar(10);index;not null" json:"type"`
	ReferenceNo     string          `gorm:"type:varchar(50);index" json:"reference_no"`
	CustomerID      *uint           `gorm:"index" json:"-"`
	CustomerUUID    *uuid.UUID      `gorm:"type:varchar(36)" json:"customer_uuid"`
	SupplierID      *uint           `gorm:"index" json:"-"`
	SupplierUUID    *uuid.UUID      `gorm:"type:varchar(36)" json:"supplier_uuid"`
	UserID          *uint           `gorm:"index" json:"-"`
	UserUUID        *uuid.UUID      `gorm:"type:varchar(36)" json:"user_uuid"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"subtotal"`
	TaxTotal        decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"tax_total"`
	DiscountTotal   decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"discount_total"`
	Total           decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"total"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(10);not null" json:"payment_status"`
	Note            string          `gorm:"type:text" json:"note"`
	TransactionDate time.Time       `gorm:"index;not null" json:"transaction_date"`
}

func (Sale) TableName() string {
	return "sales"
}

// SaleItem is one line of a Sale. CostAtSale is a snapshot taken when the
// line is recorded and never follows later price changes.
type SaleItem struct {
	SyncModel
	SaleID       uint            `gorm:"index;not null" json:"-"`
	SaleUUID     uuid.UUID       `gorm:"type:varchar(36);not null" json:"sale_uuid"`
	ProductID    uint            `gorm:"index;not null" json:"-"`
	ProductUUID  uuid.UUID       `gorm:"type:varchar(36);not null" json:"product_uuid"`
	Quantity     float64         `gorm:"not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"unit_price"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"tax_rate"`
	Discount     decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"discount"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"line_total"`
	CostAtSale   decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"cost_at_sale"`
	SupplierCode string          `gorm:"type:varchar(100)" json:"supplier_product_code"`
}

func (SaleItem) TableName() string {
	return "sale_items"
}

// Payment is insert-only.
type Payment struct {
	SyncModel
	SaleID    uint            `gorm:"index;not null" json:"-"`
	SaleUUID  uuid.UUID       `gorm:"type:varchar(36);not null" json:"sale_uuid"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"amount"`
	Method    string          `gorm:"type:varchar(20);not null" json:"method"`
	Reference string          `gorm:"type:varchar(100)" json:"reference"`
	PaidAt    time.Time       `gorm:"not null" json:"paid_at"`
}

func (Payment) TableName() string {
	return "payments"
}
