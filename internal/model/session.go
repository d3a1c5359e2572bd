package model

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNoActiveTenant      = errors.New("no active tenant")
	ErrNoAuthenticatedUser = errors.New("no authenticated user")
	ErrTenantInactive      = errors.New("tenant is not active")
)

// Session is the explicit tenant+user context threaded through every service
// call.
type Session struct {
	Tenant *Tenant
	User   *User
}

func NewSession(tenant *Tenant, user *User) Session {
	return Session{Tenant: tenant, User: user}
}

// TenantID fails with ErrNoActiveTenant when the session is not bound to a
// tenant.
func (s Session) TenantID() (uuid.UUID, error) {
	if s.Tenant == nil || s.Tenant.UUID == uuid.Nil {
		return uuid.Nil, ErrNoActiveTenant
	}
	return s.Tenant.UUID, nil
}

// RequireUser checks both tenant and user, for operations that record who
// did them.
func (s Session) RequireUser() error {
	if _, err := s.TenantID(); err != nil {
		return err
	}
	if s.User == nil || s.User.ID == 0 {
		return ErrNoAuthenticatedUser
	}
	return nil
}
