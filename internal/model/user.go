package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin   = "ADMIN"
	RoleCashier = "CASHIER"
)

// User belongs to a tenant; usernames are assumed globally unique so login can
// find the user before the tenant is known.
type User struct {
	SyncModel
	Username     string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"username" validate:"required"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"password_hash"`
	FullName     string     `gorm:"type:varchar(255)" json:"full_name"`
	Role         string     `gorm:"type:varchar(20);not null" json:"role"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse is used for API responses (without the password hash)
type UserResponse struct {
	UUID        uuid.UUID  `json:"uuid"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Synced      bool       `json:"synced"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		UUID:        u.UUID,
		TenantID:    u.TenantID,
		Username:    u.Username,
		FullName:    u.FullName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		Synced:      u.Synced,
	}
}
