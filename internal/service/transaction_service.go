package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/repository"
	"go-pos-sync/pkg/validator"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var (
	ErrAlreadyCancelled = errors.New("transaction is already cancelled")
	ErrProductInactive  = errors.New("product is inactive")
)

// paymentEpsilon absorbs rounding when comparing paid amounts with totals.
var paymentEpsilon = decimal.RequireFromString("0.001")

type TransactionService interface {
	RecordSale(ctx context.Context, session model.Session, req *SaleInput) (*SaleDetail, error)
	RecordPurchase(ctx context.Context, session model.Session, req *PurchaseInput) (*SaleDetail, error)
	ApplyPayment(ctx context.Context, session model.Session, saleID uuid.UUID, req *PaymentInput) (*SaleDetail, error)
	CancelTransaction(ctx context.Context, session model.Session, saleID uuid.UUID) error
	GetSale(ctx context.Context, session model.Session, saleID uuid.UUID) (*SaleDetail, error)
	ListSales(ctx context.Context, session model.Session, saleType model.SaleType) ([]model.Sale, error)
	CheckAvailability(ctx context.Context, session model.Session, lines []SaleLine) ([]Shortage, error)
}

// SaleLine is one line of a sale. UnitPrice defaults to the product's
// selling price.
type SaleLine struct {
	ProductID uuid.UUID        `json:"product_uuid" validate:"uuid_required"`
	Quantity  float64          `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Discount  decimal.Decimal  `json:"discount" validate:"gte=0"`
}

// SaleInput is the selling variant of a transaction: optional customer,
// selling prices, stock leaves.
type SaleInput struct {
	CustomerID      *uuid.UUID `json:"customer_uuid,omitempty"`
	ReferenceNo     string     `json:"reference_no"`
	Note            string     `json:"note"`
	TransactionDate *time.Time `json:"transaction_date,omitempty"`
	Items           []SaleLine `json:"items" validate:"required,min=1,dive"`
}

// PurchaseLine carries the price paid to the supplier.
type PurchaseLine struct {
	ProductID uuid.UUID       `json:"product_uuid" validate:"uuid_required"`
	Quantity  float64         `json:"quantity" validate:"gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost" validate:"gte=0"`
	Discount  decimal.Decimal `json:"discount" validate:"gte=0"`
}

// PurchaseInput is the buying variant: mandatory supplier, purchase prices,
// stock enters.
type PurchaseInput struct {
	SupplierID      uuid.UUID      `json:"supplier_uuid" validate:"uuid_required"`
	ReferenceNo     string         `json:"reference_no"`
	Note            string         `json:"note"`
	TransactionDate *time.Time     `json:"transaction_date,omitempty"`
	Items           []PurchaseLine `json:"items" validate:"required,min=1,dive"`
}

type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Method    string          `json:"method" validate:"required,oneof=cash card transfer voucher other"`
	Reference string          `json:"reference"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
}

// SaleDetail is a header with its lines, payments and amount paid.
type SaleDetail struct {
	Sale     model.Sale          `json:"sale"`
	Items    []model.SaleItem    `json:"items"`
	Ledger   []model.StockLedger `json:"ledger,omitempty"`
	Payments []model.Payment     `json:"payments"`
	Paid     decimal.Decimal     `json:"paid"`
}

// Shortage is an advisory warning: the line asks for more than is in stock.
type Shortage struct {
	ProductID uuid.UUID `json:"product_uuid"`
	SKU       string    `json:"sku"`
	Requested float64   `json:"requested"`
	Available float64   `json:"available"`
}

// PaymentStatusFor derives the status of a header from the sum of its
// payments.
func PaymentStatusFor(paid, total decimal.Decimal) model.PaymentStatus {
	if !paid.IsPositive() {
		return model.PaymentPending
	}
	if paid.GreaterThanOrEqual(total.Sub(paymentEpsilon)) {
		return model.PaymentPaid
	}
	return model.PaymentPartial
}

type transactionService struct {
	store *repository.Store
	hub   Broadcaster
	log   *slog.Logger
}

func NewTransactionService(store *repository.Store, hub Broadcaster) TransactionService {
	return &transactionService{
		store: store,
		hub:   hub,
		log:   slog.Default().With("component", "transactions"),
	}
}

// lineDraft is a priced line before it is written.
type lineDraft struct {
	product      *model.Product
	quantity     float64
	unitPrice    decimal.Decimal
	discount     decimal.Decimal
	cost         decimal.Decimal
	supplierCode string
}

func (l lineDraft) gross() decimal.Decimal {
	return l.unitPrice.Mul(decimal.NewFromFloat(l.quantity))
}

func (l lineDraft) tax() decimal.Decimal {
	return l.gross().Sub(l.discount).Mul(l.product.TaxRate)
}

func (l lineDraft) total() decimal.Decimal {
	return l.gross().Sub(l.discount).Add(l.tax()).Round(4)
}

func (s *transactionService) RecordSale(ctx context.Context, session model.Session, req *SaleInput) (*SaleDetail, error) {
	if err := session.RequireUser(); err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	tenant, _ := session.TenantID()

	var detail *SaleDetail
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		header := &model.Sale{
			SyncModel:   model.SyncModel{TenantID: tenant},
			Type:        model.SaleTypeSale,
			ReferenceNo: req.ReferenceNo,
			Note:        req.Note,
		}
		if req.CustomerID != nil {
			customer, err := findLive(ctx, tx.Customers, tenant, *req.CustomerID, ErrCustomerNotFound)
			if err != nil {
				return err
			}
			header.CustomerID, header.CustomerUUID = &customer.ID, &customer.UUID
		}

		drafts := make([]lineDraft, 0, len(req.Items))
		for _, line := range req.Items {
			product, err := s.sellableProduct(ctx, tx, tenant, line.ProductID)
			if err != nil {
				return err
			}
			price := product.SellingPrice
			if line.UnitPrice != nil {
				price = *line.UnitPrice
			}
			drafts = append(drafts, lineDraft{
				product:   product,
				quantity:  line.Quantity,
				unitPrice: price,
				discount:  line.Discount,
				cost:      product.CostPrice,
			})
		}

		var err error
		detail, err = s.record(ctx, tx, session, header, req.TransactionDate, drafts)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sale recorded", "tenant", tenant, "sale", detail.Sale.UUID, "total", detail.Sale.Total, "lines", len(detail.Items))
	notify(s.hub, "sale_recorded", detail.Sale)
	return detail, nil
}

func (s *transactionService) RecordPurchase(ctx context.Context, session model.Session, req *PurchaseInput) (*SaleDetail, error) {
	if err := session.RequireUser(); err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	tenant, _ := session.TenantID()

	var detail *SaleDetail
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		supplier, err := findLive(ctx, tx.Suppliers, tenant, req.SupplierID, ErrSupplierNotFound)
		if err != nil {
			return err
		}
		header := &model.Sale{
			SyncModel:    model.SyncModel{TenantID: tenant},
			Type:         model.SaleTypePurchase,
			ReferenceNo:  req.ReferenceNo,
			Note:         req.Note,
			SupplierID:   &supplier.ID,
			SupplierUUID: &supplier.UUID,
		}

		drafts := make([]lineDraft, 0, len(req.Items))
		for _, line := range req.Items {
			product, err := findLive(ctx, tx.Products, tenant, line.ProductID, ErrProductNotFound)
			if err != nil {
				return err
			}
			draft := lineDraft{
				product:   product,
				quantity:  line.Quantity,
				unitPrice: line.UnitCost,
				discount:  line.Discount,
				cost:      line.UnitCost,
			}

			link, err := tx.SupplierLink(ctx, tenant, product.ID, supplier.ID)
			switch {
			case err == nil:
				draft.supplierCode = link.SupplierCode
				link.LastPurchasePrice = line.UnitCost
				if err := tx.ProductSuppliers.Update(ctx, link); err != nil {
					return err
				}
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}
			drafts = append(drafts, draft)
		}

		detail, err = s.record(ctx, tx, session, header, req.TransactionDate, drafts)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("purchase recorded", "tenant", tenant, "purchase", detail.Sale.UUID, "total", detail.Sale.Total, "lines", len(detail.Items))
	notify(s.hub, "purchase_recorded", detail.Sale)
	return detail, nil
}

// record writes the header, then every line followed by its ledger row. It
// must run inside tx; any error rolls the whole transaction back.
func (s *transactionService) record(ctx context.Context, tx *repository.Store, session model.Session, header *model.Sale, date *time.Time, drafts []lineDraft) (*SaleDetail, error) {
	tenant := header.TenantID
	header.UserID, header.UserUUID = userRef(session)
	header.PaymentStatus = model.PaymentPending
	header.TransactionDate = model.Now()
	if date != nil {
		header.TransactionDate = date.UTC()
	}
	header.Subtotal = lo.Reduce(drafts, func(acc decimal.Decimal, d lineDraft, _ int) decimal.Decimal { return acc.Add(d.gross()) }, decimal.Zero).Round(4)
	header.DiscountTotal = lo.Reduce(drafts, func(acc decimal.Decimal, d lineDraft, _ int) decimal.Decimal { return acc.Add(d.discount) }, decimal.Zero).Round(4)
	header.TaxTotal = lo.Reduce(drafts, func(acc decimal.Decimal, d lineDraft, _ int) decimal.Decimal { return acc.Add(d.tax()) }, decimal.Zero).Round(4)
	header.Total = header.Subtotal.Sub(header.DiscountTotal).Add(header.TaxTotal)

	if _, err := tx.Sales.Insert(ctx, header); err != nil {
		return nil, err
	}

	detail := &SaleDetail{Sale: *header, Paid: decimal.Zero}
	direction := header.Type.Direction()
	for _, d := range drafts {
		item := &model.SaleItem{
			SyncModel:    model.SyncModel{TenantID: tenant},
			SaleID:       header.ID,
			SaleUUID:     header.UUID,
			ProductID:    d.product.ID,
			ProductUUID:  d.product.UUID,
			Quantity:     d.quantity,
			UnitPrice:    d.unitPrice,
			TaxRate:      d.product.TaxRate,
			Discount:     d.discount,
			LineTotal:    d.total(),
			CostAtSale:   d.cost,
			SupplierCode: d.supplierCode,
		}
		if _, err := tx.SaleItems.Insert(ctx, item); err != nil {
			return nil, err
		}

		entry := &model.StockLedger{
			SyncModel:     model.SyncModel{TenantID: tenant},
			ProductID:     d.product.ID,
			ProductUUID:   d.product.UUID,
			SaleItemID:    &item.ID,
			SaleItemUUID:  &item.UUID,
			QuantityDelta: direction * d.quantity,
			Reason:        header.Type.LedgerReason(),
		}
		if _, err := tx.Ledger.Insert(ctx, entry); err != nil {
			return nil, err
		}
		detail.Items = append(detail.Items, *item)
		detail.Ledger = append(detail.Ledger, *entry)
	}
	return detail, nil
}

func (s *transactionService) sellableProduct(ctx context.Context, tx *repository.Store, tenant, id uuid.UUID) (*model.Product, error) {
	product, err := findLive(ctx, tx.Products, tenant, id, ErrProductNotFound)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, fmt.Errorf("%s: %w", product.SKU, ErrProductInactive)
	}
	return product, nil
}

// ApplyPayment records a payment and recomputes the header's payment status
// in the same transaction.
func (s *transactionService) ApplyPayment(ctx context.Context, session model.Session, saleID uuid.UUID, req *PaymentInput) (*SaleDetail, error) {
	if err := session.RequireUser(); err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	tenant, _ := session.TenantID()

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		sale, err := findLive(ctx, tx.Sales, tenant, saleID, ErrSaleNotFound)
		if err != nil {
			return err
		}

		payment := &model.Payment{
			SyncModel: model.SyncModel{TenantID: tenant},
			SaleID:    sale.ID,
			SaleUUID:  sale.UUID,
			Amount:    req.Amount,
			Method:    req.Method,
			Reference: req.Reference,
			PaidAt:    model.Now(),
		}
		if req.PaidAt != nil {
			payment.PaidAt = req.PaidAt.UTC()
		}
		if _, err := tx.Payments.Insert(ctx, payment); err != nil {
			return err
		}

		paid, err := tx.PaidTotal(ctx, tenant, sale.ID)
		if err != nil {
			return err
		}
		if status := PaymentStatusFor(paid, sale.Total); status != sale.PaymentStatus {
			sale.PaymentStatus = status
			return tx.Sales.Update(ctx, sale)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.GetSale(ctx, session, saleID)
	if err != nil {
		return nil, err
	}
	notify(s.hub, "payment_applied", detail.Sale)
	return detail, nil
}

// CancelTransaction tombstones the header, its lines and the ledger rows of
// those lines, which puts the stock back. Payments are left as they are.
func (s *transactionService) CancelTransaction(ctx context.Context, session model.Session, saleID uuid.UUID) error {
	if err := session.RequireUser(); err != nil {
		return err
	}
	tenant, _ := session.TenantID()

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		sale, err := tx.Sales.FindByUUID(ctx, tenant, saleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", saleID, ErrSaleNotFound)
			}
			return err
		}
		if sale.Deleted {
			return ErrAlreadyCancelled
		}

		items, err := tx.ItemsOfSale(ctx, tenant, sale.ID)
		if err != nil {
			return err
		}
		itemIDs := lo.Map(items, func(i model.SaleItem, _ int) uint { return i.ID })
		if len(itemIDs) > 0 {
			if _, err := tx.Ledger.SoftDeleteWhere(ctx, tenant, "sale_item_id IN ?", itemIDs); err != nil {
				return err
			}
		}
		if _, err := tx.SaleItems.SoftDeleteWhere(ctx, tenant, "sale_id = ?", sale.ID); err != nil {
			return err
		}
		return tx.Sales.SoftDelete(ctx, sale.ID, tenant)
	})
	if err != nil {
		return err
	}

	s.log.Info("transaction cancelled", "tenant", tenant, "sale", saleID)
	notify(s.hub, "transaction_cancelled", map[string]interface{}{"uuid": saleID})
	return nil
}

func (s *transactionService) GetSale(ctx context.Context, session model.Session, saleID uuid.UUID) (*SaleDetail, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	sale, err := s.store.Sales.FindByUUID(ctx, tenant, saleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", saleID, ErrSaleNotFound)
		}
		return nil, err
	}

	items, err := s.store.ItemsOfSale(ctx, tenant, sale.ID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.store.LedgerOfItems(ctx, tenant, lo.Map(items, func(i model.SaleItem, _ int) uint { return i.ID }))
	if err != nil {
		return nil, err
	}
	payments, err := s.store.PaymentsOfSale(ctx, tenant, sale.ID)
	if err != nil {
		return nil, err
	}
	return &SaleDetail{
		Sale:     *sale,
		Items:    items,
		Ledger:   ledger,
		Payments: payments,
		Paid: lo.Reduce(payments, func(acc decimal.Decimal, p model.Payment, _ int) decimal.Decimal {
			return acc.Add(p.Amount)
		}, decimal.Zero),
	}, nil
}

// ListSales returns live headers, newest first. An empty type lists both
// variants.
func (s *transactionService) ListSales(ctx context.Context, session model.Session, saleType model.SaleType) ([]model.Sale, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	var sales []model.Sale
	if saleType == "" {
		sales, err = s.store.Sales.QueryAll(ctx, tenant)
	} else {
		sales, err = s.store.Sales.Where(ctx, tenant, "type = ?", saleType)
	}
	if err != nil {
		return nil, err
	}
	return lo.Reverse(sales), nil
}

// CheckAvailability is advisory only: RecordSale never refuses a sale for
// lack of stock, and stock may go negative.
func (s *transactionService) CheckAvailability(ctx context.Context, session model.Session, lines []SaleLine) ([]Shortage, error) {
	tenant, err := session.TenantID()
	if err != nil {
		return nil, err
	}
	requested := make(map[uuid.UUID]float64)
	for _, line := range lines {
		requested[line.ProductID] += line.Quantity
	}

	var shortages []Shortage
	for _, id := range lo.Uniq(lo.Map(lines, func(l SaleLine, _ int) uuid.UUID { return l.ProductID })) {
		product, err := findLive(ctx, s.store.Products, tenant, id, ErrProductNotFound)
		if err != nil {
			return nil, err
		}
		stock, err := s.store.StockOf(ctx, tenant, product.ID)
		if err != nil {
			return nil, err
		}
		if stock < requested[id] {
			shortages = append(shortages, Shortage{ProductID: id, SKU: product.SKU, Requested: requested[id], Available: stock})
		}
	}
	return shortages, nil
}
