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
)

var (
	ErrUsernameExists   = errors.New("username already exists")
	ErrCannotDeleteSelf = errors.New("cannot delete the signed-in user")
)

type UserService interface {
	CreateUser(ctx context.Context, session model.Session, req *CreateUserRequest) (*model.User, error)
	UpdateUser(ctx context.Context, session model.Session, userID uuid.UUID, req *UpdateUserRequest) (*model.User, error)
	DeleteUser(ctx context.Context, session model.Session, userID uuid.UUID) error
	GetAllUsers(ctx context.Context, session model.Session) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, session model.Session, id uuid.UUID) (*model.UserResponse, error)
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=ADMIN CASHIER"`
}

type UpdateUserRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=100"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"`
	FullName string  `json:"full_name" validate:"required"`
	Role     string  `json:"role" validate:"required,oneof=ADMIN CASHIER"`
	IsActive *bool   `json:"is_active"`
}

type userService struct {
	store  *repository.Store
	hasher PasswordHasher
}

func NewUserService(store *repository.Store, hasher PasswordHasher) UserService {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &userService{store: store, hasher: hasher}
}

func (s *userService) CreateUser(ctx context.Context, session model.Session, req *CreateUserRequest) (*model.User, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	if err := s.usernameFree(ctx, username, 0); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}
	user := &model.User{
		SyncModel:    model.SyncModel{TenantID: tenant},
		Username:     username,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         req.Role,
		IsActive:     true,
	}
	if _, err := s.store.Users.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, session model.Session, userID uuid.UUID, req *UpdateUserRequest) (*model.User, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	user, err := findLive(ctx, s.store.Users, tenant, userID, ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(req.Username)
	if username != user.Username {
		if err := s.usernameFree(ctx, username, user.ID); err != nil {
			return nil, err
		}
	}

	user.Username = username
	user.FullName = req.FullName
	user.Role = req.Role
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, errors.New("failed to hash password")
		}
		user.PasswordHash = hash
	}

	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, session model.Session, userID uuid.UUID) error {
	tenant, err := session.TenantID()
	if err != nil {
		return err
	}
	if session.User != nil && session.User.UUID == userID {
		return ErrCannotDeleteSelf
	}
	return deleteLive(ctx, s.store.Users, tenant, userID, ErrUserNotFound)
}

func (s *userService) GetAllUsers(ctx context.Context, session model.Session) ([]model.UserResponse, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users.QueryAll(ctx, tenant)
	if err != nil {
		return nil, err
	}

	responses := make([]model.UserResponse, len(users))
	for i := range users {
		responses[i] = users[i].ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, session model.Session, id uuid.UUID) (*model.UserResponse, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	user, err := findLive(ctx, s.store.Users, tenant, id, ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	response := user.ToResponse()
	return &response, nil
}

// usernameFree checks the name across all tenants, tombstones included,
// since login resolves a username before any tenant is known.
func (s *userService) usernameFree(ctx context.Context, username string, self uint) error {
	var n int64
	err := s.store.DB().WithContext(ctx).Model(&model.User{}).
		Where("username = ? AND id <> ?", username, self).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%s: %w", username, ErrUsernameExists)
	}
	return nil
}
