package model

import (
	"time"

	"github.com/google/uuid"
)

const TenantStatusActive = "ACTIVE"

// Tenant is the license/status root. It is fetched once at activation and is
// never pushed back.
type Tenant struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	UUID        uuid.UUID  `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	Name        string     `gorm:"type:varchar(255)" json:"name"`
	Status      string     `gorm:"type:varchar(20);not null" json:"status"`
	LicenseKey  string     `gorm:"type:varchar(255)" json:"license_key"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ActivatedAt *time.Time `json:"-"`
	UpdatedAt   time.Time  `json:"last_updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

func (t *Tenant) IsActive() bool {
	if t.Status != TenantStatusActive {
		return false
	}
	return t.ExpiresAt == nil || t.ExpiresAt.After(time.Now())
}
