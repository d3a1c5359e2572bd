package repository

import (
	"context"

	"go-pos-sync/internal/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

func (s *Store) ItemsOfSale(ctx context.Context, tenant uuid.UUID, saleID uint) ([]model.SaleItem, error) {
	return s.SaleItems.Where(ctx, tenant, "sale_id = ?", saleID)
}

func (s *Store) PaymentsOfSale(ctx context.Context, tenant uuid.UUID, saleID uint) ([]model.Payment, error) {
	return s.Payments.Where(ctx, tenant, "sale_id = ?", saleID)
}

// PaidTotal sums the live payments recorded against a sale.
func (s *Store) PaidTotal(ctx context.Context, tenant uuid.UUID, saleID uint) (decimal.Decimal, error) {
	payments, err := s.PaymentsOfSale(ctx, tenant, saleID)
	if err != nil {
		return decimal.Zero, err
	}
	return lo.Reduce(payments, func(acc decimal.Decimal, p model.Payment, _ int) decimal.Decimal {
		return acc.Add(p.Amount)
	}, decimal.Zero), nil
}

// LedgerOfItems returns the live ledger rows produced by the given sale items.
func (s *Store) LedgerOfItems(ctx context.Context, tenant uuid.UUID, itemIDs []uint) ([]model.StockLedger, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	return s.Ledger.Where(ctx, tenant, "sale_item_id IN ?", itemIDs)
}
