package service

import (
	"context"
	"time"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/repository"
)

type DashboardService interface {
	GetStockMovement(ctx context.Context, session model.Session, days int) ([]repository.StockMovementData, error)
	GetDashboardStats(ctx context.Context, session model.Session) (*repository.DashboardStats, error)
}

type dashboardService struct {
	store *repository.Store
}

func NewDashboardService(store *repository.Store) DashboardService {
	return &dashboardService{store: store}
}

func (s *dashboardService) GetStockMovement(ctx context.Context, session model.Session, days int) ([]repository.StockMovementData, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}
	endDate := model.Now()
	startDate := endDate.AddDate(0, 0, -days).Truncate(24 * time.Hour)

	return s.store.StockMovement(ctx, tenant, startDate, endDate)
}

func (s *dashboardService) GetDashboardStats(ctx context.Context, session model.Session) (*repository.DashboardStats, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	return s.store.DashboardStats(ctx, tenant)
}
