package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/repository"
	"go-pos-sync/internal/syncengine"

	"github.com/google/uuid"
)

var ErrNotActivated = errors.New("no tenant has been activated on this installation")

// TenantFetcher reads tenant records from the remote store.
type TenantFetcher interface {
	FetchTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
}

// Puller runs the initial download for a tenant.
type Puller interface {
	Pull(ctx context.Context, tenant uuid.UUID) (*syncengine.Report, error)
}

// ActivationResult is delivered once per Activate call.
type ActivationResult struct {
	Tenant *model.Tenant
	Report *syncengine.Report
	Err    error
}

type ActivationService interface {
	// Activate binds the installation to a tenant. All network I/O happens on
	// a background goroutine; the result arrives on the returned channel,
	// which is closed afterwards.
	Activate(ctx context.Context, tenantID uuid.UUID) <-chan ActivationResult
	Current(ctx context.Context) (*model.Tenant, error)
}

type activationService struct {
	store   *repository.Store
	fetcher TenantFetcher
	puller  Puller
	hub     Broadcaster
	log     *slog.Logger
}

func NewActivationService(store *repository.Store, fetcher TenantFetcher, puller Puller, hub Broadcaster) ActivationService {
	return &activationService{
		store:   store,
		fetcher: fetcher,
		puller:  puller,
		hub:     hub,
		log:     slog.Default().With("component", "activation"),
	}
}

func (s *activationService) Activate(ctx context.Context, tenantID uuid.UUID) <-chan ActivationResult {
	out := make(chan ActivationResult, 1)
	go func() {
		defer close(out)
		res := s.activate(ctx, tenantID)
		if res.Err != nil {
			s.log.Error("activation failed", "tenant", tenantID, "error", res.Err)
			notify(s.hub, "activation_failed", map[string]interface{}{"tenant": tenantID, "error": res.Err.Error()})
		} else {
			s.log.Info("tenant activated", "tenant", tenantID, "upserted", res.Report.Upserted(), "skipped", res.Report.Skipped())
			notify(s.hub, "activation_succeeded", map[string]interface{}{"tenant": tenantID, "name": res.Tenant.Name})
		}
		out <- res
	}()
	return out
}

func (s *activationService) activate(ctx context.Context, tenantID uuid.UUID) ActivationResult {
	if tenantID == uuid.Nil {
		return ActivationResult{Err: model.ErrNoActiveTenant}
	}

	tenant, err := s.fetcher.FetchTenant(ctx, tenantID)
	if err != nil {
		return ActivationResult{Err: fmt.Errorf("fetch tenant: %w", err)}
	}
	if !tenant.IsActive() {
		return ActivationResult{Tenant: tenant, Err: fmt.Errorf("%s (%s): %w", tenantID, tenant.Status, model.ErrTenantInactive)}
	}
	if err := s.store.Tenants.Save(ctx, tenant); err != nil {
		return ActivationResult{Tenant: tenant, Err: err}
	}

	report, err := s.puller.Pull(ctx, tenantID)
	if err != nil {
		return ActivationResult{Tenant: tenant, Report: report, Err: fmt.Errorf("initial pull: %w", err)}
	}
	if err := s.store.Tenants.MarkActivated(ctx, tenantID); err != nil {
		return ActivationResult{Tenant: tenant, Report: report, Err: err}
	}

	saved, err := s.store.Tenants.FindByUUID(ctx, tenantID)
	if err != nil {
		return ActivationResult{Tenant: tenant, Report: report, Err: err}
	}
	return ActivationResult{Tenant: saved, Report: report}
}

func (s *activationService) Current(ctx context.Context) (*model.Tenant, error) {
	tenant, err := s.store.Tenants.Current(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotActivated
		}
		return nil, err
	}
	return tenant, nil
}
