package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/repository"
	"go-pos-sync/pkg/validator"

	"github.com/google/uuid"
)

var (
	ErrLedgerEntryNotFound   = errors.New("ledger entry not found")
	ErrAlreadyReversed       = errors.New("ledger entry is already reversed")
	ErrCannotReverseReversal = errors.New("a reversal cannot be reversed")
	ErrLinkedToTransaction   = errors.New("ledger entry belongs to a transaction; cancel the transaction instead")
)

type InventoryService interface {
	Stock(ctx context.Context, session model.Session, productID uuid.UUID) (float64, error)
	StockLevels(ctx context.Context, session model.Session) ([]model.ProductStock, error)
	History(ctx context.Context, session model.Session, productID uuid.UUID) ([]model.StockLedger, error)
	AdjustStock(ctx context.Context, session model.Session, req *AdjustmentInput) (*model.StockLedger, error)
	ReverseAdjustment(ctx context.Context, session model.Session, entryID uuid.UUID, note string) (*model.StockLedger, error)
}

// AdjustmentInput is a manual stock correction. Delta is signed.
type AdjustmentInput struct {
	ProductID uuid.UUID `json:"product_uuid" validate:"uuid_required"`
	Delta     float64   `json:"quantity_delta" validate:"required"`
	Reason    string    `json:"reason" validate:"required,oneof=adjustment opening damage return"`
	Note      string    `json:"note"`
}

type inventoryService struct {
	store *repository.Store
	hub   Broadcaster
	log   *slog.Logger
}

func NewInventoryService(store *repository.Store, hub Broadcaster) InventoryService {
	return &inventoryService{
		store: store,
		hub:   hub,
		log:   slog.Default().With("component", "inventory"),
	}
}

// Stock is always derived from the ledger.
func (s *inventoryService) Stock(ctx context.Context, session model.Session, productID uuid.UUID) (float64, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return 0, err
	}
	product, err := findLive(ctx, s.store.Products, tenant, productID, ErrProductNotFound)
	if err != nil {
		return 0, err
	}
	return s.store.StockOf(ctx, tenant, product.ID)
}

func (s *inventoryService) StockLevels(ctx context.Context, session model.Session) ([]model.ProductStock, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	return s.store.StockLevels(ctx, tenant)
}

func (s *inventoryService) History(ctx context.Context, session model.Session, productID uuid.UUID) ([]model.StockLedger, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	product, err := findLive(ctx, s.store.Products, tenant, productID, ErrProductNotFound)
	if err != nil {
		return nil, err
	}
	return s.store.Ledger.Where(ctx, tenant, "product_id = ?", product.ID)
}

func (s *inventoryService) AdjustStock(ctx context.Context, session model.Session, req *AdjustmentInput) (*model.StockLedger, error) {
	if err := session.RequireUser(); err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	tenant, _ := session.TenantID()

	var entry *model.StockLedger
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		product, err := findLive(ctx, tx.Products, tenant, req.ProductID, ErrProductNotFound)
		if err != nil {
			return err
		}
		entry = &model.StockLedger{
			SyncModel:     model.SyncModel{TenantID: tenant},
			ProductID:     product.ID,
			ProductUUID:   product.UUID,
			QuantityDelta: req.Delta,
			Reason:        req.Reason,
			Note:          req.Note,
		}
		_, err = tx.Ledger.Insert(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stock adjusted", "tenant", tenant, "product", req.ProductID, "delta", req.Delta, "reason", req.Reason)
	notify(s.hub, "stock_adjusted", entry)
	return entry, nil
}

// ReverseAdjustment appends the negated delta of an earlier entry. The
// original row is never touched.
func (s *inventoryService) ReverseAdjustment(ctx context.Context, session model.Session, entryID uuid.UUID, note string) (*model.StockLedger, error) {
	if err := session.RequireUser(); err != nil {
		return nil, err
	}
	tenant, _ := session.TenantID()

	var reversal *model.StockLedger
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		original, err := findLive(ctx, tx.Ledger, tenant, entryID, ErrLedgerEntryNotFound)
		if err != nil {
			return err
		}
		if original.Reason == model.ReasonReversal || original.ReversalOfUUID != nil {
			return ErrCannotReverseReversal
		}
		// A pulled row may carry the sale item uuid before its local id resolves.
		if original.SaleItemID != nil || original.SaleItemUUID != nil ||
			original.Reason == model.ReasonSale || original.Reason == model.ReasonPurchase {
			return ErrLinkedToTransaction
		}
		existing, err := tx.Ledger.Where(ctx, tenant, "reversal_of_uuid = ?", original.UUID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%s: %w", entryID, ErrAlreadyReversed)
		}

		reversal = &model.StockLedger{
			SyncModel:      model.SyncModel{TenantID: tenant},
			ProductID:      original.ProductID,
			ProductUUID:    original.ProductUUID,
			QuantityDelta:  -original.QuantityDelta,
			Reason:         model.ReasonReversal,
			Note:           note,
			ReversalOfUUID: &original.UUID,
		}
		_, err = tx.Ledger.Insert(ctx, reversal)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stock adjustment reversed", "tenant", tenant, "entry", entryID)
	notify(s.hub, "stock_adjusted", reversal)
	return reversal, nil
}
