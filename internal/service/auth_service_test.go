package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/syncengine"
	"go-pos-sync/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuth(f *fixture) AuthService {
	return NewAuthService(f.store, BcryptHasher{Cost: bcrypt.MinCost}, jwt.NewSigner("test-secret", time.Hour))
}

func TestAuth_LoginAndValidate(t *testing.T) {
	f := newFixture(t)
	auth := newAuth(f)

	resp, err := auth.Login(f.ctx, "cashier", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, f.tenant, resp.Tenant.UUID)
	assert.NotNil(t, resp.User.LastLoginAt)

	session, err := auth.ValidateToken(f.ctx, resp.Token)
	require.NoError(t, err)
	tenant, err := session.TenantID()
	require.NoError(t, err)
	assert.Equal(t, f.tenant, tenant)
	assert.Equal(t, f.session.User.ID, session.User.ID)

	_, err = auth.Login(f.ctx, "cashier", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(f.ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.ValidateToken(f.ctx, "garbage")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestAuth_InactiveUserAndTenant(t *testing.T) {
	f := newFixture(t)
	auth := newAuth(f)

	f.session.User.IsActive = false
	require.NoError(t, f.store.Users.Update(f.ctx, f.session.User))
	_, err := auth.Login(f.ctx, "cashier", "secret1")
	assert.ErrorIs(t, err, ErrUserInactive)

	f.session.User.IsActive = true
	require.NoError(t, f.store.Users.Update(f.ctx, f.session.User))
	suspended := *f.session.Tenant
	suspended.Status = "SUSPENDED"
	require.NoError(t, f.store.Tenants.Save(f.ctx, &suspended))
	_, err = auth.Login(f.ctx, "cashier", "secret1")
	assert.ErrorIs(t, err, model.ErrTenantInactive)
}

func TestAuth_ChangeAndResetPassword(t *testing.T) {
	f := newFixture(t)
	auth := newAuth(f)

	assert.ErrorIs(t, auth.ChangePassword(f.ctx, f.session, "wrong", "newpass1"), ErrWrongPassword)
	require.NoError(t, auth.ChangePassword(f.ctx, f.session, "secret1", "newpass1"))
	_, err := auth.Login(f.ctx, "cashier", "newpass1")
	require.NoError(t, err)

	require.NoError(t, auth.ResetPassword(f.ctx, "cashier", "reset123"))
	_, err = auth.Login(f.ctx, "cashier", "reset123")
	require.NoError(t, err)

	assert.ErrorIs(t, auth.ResetPassword(f.ctx, "ghost", "reset123"), ErrUserNotFound)
	assert.Error(t, auth.ResetPassword(f.ctx, "cashier", "123"))
}

func TestUser_CRUD(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.store, BcryptHasher{Cost: bcrypt.MinCost})

	u, err := users.CreateUser(f.ctx, f.session, &CreateUserRequest{Username: "boss", Password: "secret1", FullName: "Boss", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, u.IsActive)

	_, err = users.CreateUser(f.ctx, f.session, &CreateUserRequest{Username: "boss", Password: "secret1", FullName: "Dup", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, ErrUsernameExists)
	_, err = users.CreateUser(f.ctx, f.session, &CreateUserRequest{Username: "x1x", Password: "secret1", FullName: "Bad", Role: "ROOT"})
	assert.Error(t, err)

	off := false
	updated, err := users.UpdateUser(f.ctx, f.session, u.UUID, &UpdateUserRequest{Username: "boss", FullName: "The Boss", Role: model.RoleAdmin, IsActive: &off})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = users.UpdateUser(f.ctx, f.session, u.UUID, &UpdateUserRequest{Username: "cashier", FullName: "Clash", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, ErrUsernameExists)

	all, err := users.GetAllUsers(f.ctx, f.session)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, users.DeleteUser(f.ctx, f.session, f.session.User.UUID), ErrCannotDeleteSelf)
	require.NoError(t, users.DeleteUser(f.ctx, f.session, u.UUID))
	_, err = users.GetUserByID(f.ctx, f.session, u.UUID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

type fakeFetcher struct {
	tenant *model.Tenant
	err    error
}

func (f fakeFetcher) FetchTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	t := *f.tenant
	return &t, nil
}

type fakePuller struct {
	pulled []uuid.UUID
	err    error
}

func (p *fakePuller) Pull(ctx context.Context, tenant uuid.UUID) (*syncengine.Report, error) {
	p.pulled = append(p.pulled, tenant)
	return &syncengine.Report{Tenant: tenant, Direction: syncengine.DirectionPull}, p.err
}

type recordingHub struct {
	types []string
}

func (h *recordingHub) Publish(msgType string, payload interface{}) {
	h.types = append(h.types, msgType)
}

func TestActivation_Succeeds(t *testing.T) {
	f := newFixture(t)
	remote := &model.Tenant{UUID: uuid.New(), Name: "New shop", Status: model.TenantStatusActive}
	puller := &fakePuller{}
	hub := &recordingHub{}
	svc := NewActivationService(f.store, fakeFetcher{tenant: remote}, puller, hub)

	_, err := svc.Current(f.ctx)
	assert.ErrorIs(t, err, ErrNotActivated)

	res := <-svc.Activate(f.ctx, remote.UUID)
	require.NoError(t, res.Err)
	assert.Equal(t, []uuid.UUID{remote.UUID}, puller.pulled)
	require.NotNil(t, res.Tenant.ActivatedAt)
	assert.Equal(t, []string{"activation_succeeded"}, hub.types)

	current, err := svc.Current(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, remote.UUID, current.UUID)
}

func TestActivation_Failures(t *testing.T) {
	f := newFixture(t)

	inactive := &model.Tenant{UUID: uuid.New(), Status: "SUSPENDED"}
	puller := &fakePuller{}
	res := <-NewActivationService(f.store, fakeFetcher{tenant: inactive}, puller, nil).Activate(f.ctx, inactive.UUID)
	assert.ErrorIs(t, res.Err, model.ErrTenantInactive)
	assert.Empty(t, puller.pulled)

	boom := errors.New("network down")
	res = <-NewActivationService(f.store, fakeFetcher{err: boom}, puller, nil).Activate(f.ctx, uuid.New())
	assert.ErrorIs(t, res.Err, boom)

	active := &model.Tenant{UUID: uuid.New(), Status: model.TenantStatusActive}
	failing := &fakePuller{err: errors.New("fetch products")}
	svc := NewActivationService(f.store, fakeFetcher{tenant: active}, failing, nil)
	res = <-svc.Activate(f.ctx, active.UUID)
	require.Error(t, res.Err)
	saved, err := f.store.Tenants.FindByUUID(f.ctx, active.UUID)
	require.NoError(t, err)
	assert.Nil(t, saved.ActivatedAt)

	_, err = svc.Current(f.ctx)
	assert.ErrorIs(t, err, ErrNotActivated)
}

func TestDashboard_Stats(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "SKU-1", 10)
	f.adjust(t, p, 1)

	stats, err := NewDashboardService(f.store).GetDashboardStats(f.ctx, f.session)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalProducts)
	assert.EqualValues(t, 1, stats.LowStockCount)

	movement, err := NewDashboardService(f.store).GetStockMovement(f.ctx, f.session, 7)
	require.NoError(t, err)
	require.NotEmpty(t, movement)
	assert.Equal(t, 1.0, movement[len(movement)-1].Inbound)
}
