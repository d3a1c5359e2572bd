package model

import "github.com/google/uuid"

// Category forms a tree through ParentID/ParentUUID. The parent must exist in
// the same tenant.
type Category struct {
	SyncModel
	Name        string     `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Description string     `gorm:"type:text" json:"description"`
	ParentID    *uint      `gorm:"index" json:"-"`
	ParentUUID  *uuid.UUID `gorm:"type:varchar(36)" json:"parent_uuid"`
}

func (Category) TableName() string {
	return "categories"
}

type Unit struct {
	SyncModel
	Name         string `gorm:"type:varchar(100);not null" json:"name" validate:"required"`
	Abbreviation string `gorm:"type:varchar(20)" json:"abbreviation"`
}

func (Unit) TableName() string {
	return "units"
}

type Supplier struct {
	SyncModel
	Name        string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	ContactName string `gorm:"type:varchar(255)" json:"contact_name"`
	Phone       string `gorm:"type:varchar(50)" json:"phone"`
	Email       string `gorm:"type:varchar(255)" json:"email" validate:"omitempty,email"`
	Address     string `gorm:"type:text" json:"address"`
	TaxNumber   string `gorm:"type:varchar(50)" json:"tax_number"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

type Customer struct {
	SyncModel
	Name    string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Phone   string `gorm:"type:varchar(50)" json:"phone"`
	Email   string `gorm:"type:varchar(255)" json:"email" validate:"omitempty,email"`
	Address string `gorm:"type:text" json:"address"`
}

func (Customer) TableName() string {
	return "customers"
}

// Setting is a tenant-scoped key/value pair, unique on (tenant_id, key).
type Setting struct {
	SyncModel
	Key   string `gorm:"type:varchar(100);not null" json:"key" validate:"required"`
	Value string `gorm:"type:text" json:"value"`
}

func (Setting) TableName() string {
	return "settings"
}
