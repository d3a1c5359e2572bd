package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncModel is the metadata envelope shared by every syncable entity.
// ID is the local row id and never leaves the installation; UUID is the only
// cross-installation identity.
type SyncModel struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	UUID          uuid.UUID `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	TenantID      uuid.UUID `gorm:"type:varchar(36);index;not null" json:"tenant_id"`
	LastUpdatedAt time.Time `gorm:"index;not null" json:"last_updated_at"`
	Synced        bool      `gorm:"index;not null;default:false" json:"-"`
	Deleted       bool      `gorm:"index;not null;default:false" json:"deleted"`
}

// Syncable is implemented by pointers to every entity embedding SyncModel.
type Syncable interface {
	Envelope() *SyncModel
}

func (m *SyncModel) Envelope() *SyncModel {
	return m
}

// Touch stamps a local mutation: the row must be pushed again.
func (m *SyncModel) Touch(now time.Time) {
	m.LastUpdatedAt = now.UTC()
	m.Synced = false
}

// BeforeCreate only assigns a uuid when none is set, so identities that
// arrive from the remote store survive a pull.
func (m *SyncModel) BeforeCreate(tx *gorm.DB) (err error) {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.LastUpdatedAt.IsZero() {
		m.LastUpdatedAt = time.Now().UTC()
	}
	return
}

// Now is the clock used for envelope timestamps.
func Now() time.Time {
	return time.Now().UTC()
}
