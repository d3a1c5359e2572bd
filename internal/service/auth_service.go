package service

import (
	"context"
	"errors"
	"time"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/repository"
	"go-pos-sync/pkg/jwt"
	"go-pos-sync/pkg/validator"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrTenantNotActivated = errors.New("tenant is not activated on this installation")
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*model.Session, error)
	ChangePassword(ctx context.Context, session model.Session, oldPassword, newPassword string) error
	ResetPassword(ctx context.Context, username, newPassword string) error
}

type LoginResponse struct {
	Token  string             `json:"token"`
	User   model.UserResponse `json:"user"`
	Tenant *model.Tenant      `json:"tenant"`
}

type authService struct {
	store  *repository.Store
	hasher PasswordHasher
	signer *jwt.Signer
}

func NewAuthService(store *repository.Store, hasher PasswordHasher, signer *jwt.Signer) AuthService {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &authService{store: store, hasher: hasher, signer: signer}
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	// Usernames are global, the tenant comes from the user row.
	user, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	tenant, err := s.activeTenant(ctx, user)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, errors.New("failed to update session")
	}

	token, err := s.signer.GenerateToken(user.UUID, tenant.UUID, user.Username, user.Role)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &LoginResponse{
		Token:  token,
		User:   user.ToResponse(),
		Tenant: tenant,
	}, nil
}

// ValidateToken turns a bearer token back into a session, re-reading the
// user and tenant so deactivation takes effect immediately.
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*model.Session, error) {
	claims, err := s.signer.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users.FindByUUID(ctx, claims.TenantID, claims.UserID)
	if err != nil || user.Deleted {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	tenant, err := s.activeTenant(ctx, user)
	if err != nil {
		return nil, err
	}

	session := model.NewSession(tenant, user)
	return &session, nil
}

func (s *authService) ChangePassword(ctx context.Context, session model.Session, oldPassword, newPassword string) error {
	if err := session.RequireUser(); err != nil {
		return err
	}
	if len(newPassword) < 6 {
		return validator.Fail("Password", "min")
	}

	user, err := s.store.Users.FindByID(ctx, session.User.TenantID, session.User.ID)
	if err != nil {
		return ErrUserNotFound
	}
	if !s.hasher.Verify(user.PasswordHash, oldPassword) {
		return ErrWrongPassword
	}
	return s.setPassword(ctx, user, newPassword)
}

// ResetPassword is the maintenance path: no old password, no session.
func (s *authService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < 6 {
		return validator.Fail("Password", "min")
	}
	user, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.setPassword(ctx, user, newPassword)
}

func (s *authService) setPassword(ctx context.Context, user *model.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return errors.New("failed to hash new password")
	}
	user.PasswordHash = hash
	return s.store.Users.Update(ctx, user)
}

func (s *authService) activeTenant(ctx context.Context, user *model.User) (*model.Tenant, error) {
	tenant, err := s.store.Tenants.FindByUUID(ctx, user.TenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTenantNotActivated
		}
		return nil, err
	}
	if !tenant.IsActive() {
		return nil, model.ErrTenantInactive
	}
	return tenant, nil
}
