package repository

import (
	"context"
	"fmt"
	"time"

	"go-pos-sync/internal/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// StockMovementData is one day of ledger activity, for charts.
type StockMovementData struct {
	Date     string  `json:"date"`
	Inbound  float64 `json:"inbound"`
	Outbound float64 `json:"outbound"`
}

// DashboardStats is the overview shown on the dashboard.
type DashboardStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
	UnsyncedRows   int64           `json:"unsynced_rows"`
}

type productTotal struct {
	ProductID uint
	Total     float64
}

// StockOf sums the live ledger rows of one product. There is no stored stock
// column to drift from this value.
func (s *Store) StockOf(ctx context.Context, tenant uuid.UUID, productID uint) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Model(&model.StockLedger{}).
		Select("COALESCE(SUM(quantity_delta), 0)").
		Where("tenant_id = ? AND product_id = ? AND deleted = ?", tenant, productID, false).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("stock of product %d: %w", productID, err)
	}
	return total, nil
}

// StockLevels returns every live product of the tenant with its current stock.
func (s *Store) StockLevels(ctx context.Context, tenant uuid.UUID) ([]model.ProductStock, error) {
	products, err := s.Products.QueryAll(ctx, tenant)
	if err != nil {
		return nil, err
	}

	var totals []productTotal
	err = s.db.WithContext(ctx).Model(&model.StockLedger{}).
		Select("product_id, COALESCE(SUM(quantity_delta), 0) AS total").
		Where("tenant_id = ? AND deleted = ?", tenant, false).
		Group("product_id").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("stock levels: %w", err)
	}
	byProduct := lo.SliceToMap(totals, func(t productTotal) (uint, float64) {
		return t.ProductID, t.Total
	})

	return lo.Map(products, func(p model.Product, _ int) model.ProductStock {
		return model.ProductStock{Product: p, Stock: byProduct[p.ID]}
	}), nil
}

// StockMovement aggregates ledger deltas per day between start and end.
func (s *Store) StockMovement(ctx context.Context, tenant uuid.UUID, start, end time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	rows, err := s.db.WithContext(ctx).Model(&model.StockLedger{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN quantity_delta > 0 THEN quantity_delta ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN quantity_delta < 0 THEN -quantity_delta ELSE 0 END), 0) as outbound
		`).
		Where("tenant_id = ? AND deleted = ?", tenant, false).
		Where("created_at BETWEEN ? AND ?", start.UTC(), end.UTC()).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("stock movement: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}

// DashboardStats derives the overview from stock levels: low stock means at
// or below the reorder level, valuation is stock times cost price.
func (s *Store) DashboardStats(ctx context.Context, tenant uuid.UUID) (*DashboardStats, error) {
	levels, err := s.StockLevels(ctx, tenant)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalProducts: int64(len(levels)),
		LowStockCount: int64(lo.CountBy(levels, func(p model.ProductStock) bool { return p.LowStock() })),
		TotalValuation: lo.Reduce(levels, func(acc decimal.Decimal, p model.ProductStock, _ int) decimal.Decimal {
			return acc.Add(p.CostPrice.Mul(decimal.NewFromFloat(p.Stock)))
		}, decimal.Zero),
	}

	unsynced, err := s.UnsyncedCounts(ctx, tenant)
	if err != nil {
		return nil, err
	}
	stats.UnsyncedRows = lo.Sum(lo.Values(unsynced))
	return stats, nil
}

// UnsyncedCounts reports pending rows per entity kind.
func (s *Store) UnsyncedCounts(ctx context.Context, tenant uuid.UUID) (map[model.EntityKind]int64, error) {
	counters := []interface {
		Kind() model.EntityKind
		Count(context.Context, uuid.UUID, bool) (int64, error)
	}{
		s.Users, s.Categories, s.Units, s.Suppliers, s.Customers, s.Settings,
		s.Products, s.ProductSuppliers, s.Sales, s.SaleItems, s.Payments, s.Ledger,
	}
	out := make(map[model.EntityKind]int64, len(counters))
	for _, c := range counters {
		n, err := c.Count(ctx, tenant, true)
		if err != nil {
			return nil, err
		}
		out[c.Kind()] = n
	}
	return out, nil
}
