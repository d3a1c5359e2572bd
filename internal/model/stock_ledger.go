package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReasonSale       = "sale"
	ReasonPurchase   = "purchase"
	ReasonAdjustment = "adjustment"
	ReasonReversal   = "reversal"
	ReasonOpening    = "opening"
	ReasonDamage     = "damage"
	ReasonReturn     = "return"
)

// StockLedger is append-only. Current stock of a product is the sum of
// QuantityDelta over its non-deleted rows.
type StockLedger struct {
	SyncModel
	ProductID      uint       `gorm:"index;not null" json:"-"`
	ProductUUID    uuid.UUID  `gorm:"type:varchar(36);not null" json:"product_uuid"`
	SaleItemID     *uint      `gorm:"index" json:"-"`
	SaleItemUUID   *uuid.UUID `gorm:"type:varchar(36)" json:"sale_item_uuid"`
	QuantityDelta  float64    `gorm:"not null" json:"quantity_delta"`
	Reason         string     `gorm:"type:varchar(30);not null" json:"reason"`
	Note           string     `gorm:"type:text" json:"note"`
	ReversalOfUUID *uuid.UUID `gorm:"type:varchar(36);index" json:"reversal_of_uuid"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}

func (StockLedger) TableName() string {
	return "stock_ledger"
}
