package repository

import (
	"context"
	"fmt"
	"strings"

	"go-pos-sync/internal/model"

	"github.com/google/uuid"
)

// Ref describes one foreign reference of T: the uuid carried on the wire and
// the local id it binds to.
type Ref[T any] struct {
	Name     string
	Parent   model.EntityKind
	Required bool
	UUID     func(*T) *uuid.UUID
	Bind     func(*T, *uint)
}

// Descriptor is the per-entity metadata used when remote rows are written
// locally.
type Descriptor[T any] struct {
	Kind     model.EntityKind
	Refs     []Ref[T]
	Sanitize func(*T)
}

// Prepare sanitizes rec and resolves its references against the local
// database. A required reference whose parent is unknown fails with
// ErrMissingReference. An optional one is left unbound with its uuid kept,
// so a later pull can still link it.
func (d Descriptor[T]) Prepare(ctx context.Context, store *Store, tenant uuid.UUID, rec *T) error {
	if d.Sanitize != nil {
		d.Sanitize(rec)
	}
	for _, ref := range d.Refs {
		u := ref.UUID(rec)
		if u == nil || *u == uuid.Nil {
			if ref.Required {
				return fmt.Errorf("%s.%s: %w", d.Kind, ref.Name, ErrMissingReference)
			}
			ref.Bind(rec, nil)
			continue
		}
		id, ok, err := store.LookupID(ctx, ref.Parent, tenant, *u)
		if err != nil {
			return err
		}
		if !ok {
			if ref.Required {
				return fmt.Errorf("%s.%s %s: %w", d.Kind, ref.Name, *u, ErrMissingReference)
			}
			ref.Bind(rec, nil)
			continue
		}
		ref.Bind(rec, &id)
	}
	return nil
}

func optional[T any](name string, parent model.EntityKind, get func(*T) **uuid.UUID, set func(*T) **uint) Ref[T] {
	return Ref[T]{
		Name:   name,
		Parent: parent,
		UUID:   func(r *T) *uuid.UUID { return *get(r) },
		Bind:   func(r *T, id *uint) { *set(r) = id },
	}
}

func required[T any](name string, parent model.EntityKind, get func(*T) *uuid.UUID, set func(*T) *uint) Ref[T] {
	return Ref[T]{
		Name:     name,
		Parent:   parent,
		Required: true,
		UUID:     get,
		Bind: func(r *T, id *uint) {
			if id != nil {
				*set(r) = *id
			} else {
				*set(r) = 0
			}
		},
	}
}

var UserDescriptor = Descriptor[model.User]{
	Kind: model.KindUsers,
	Sanitize: func(u *model.User) {
		u.Username = strings.TrimSpace(u.Username)
		if u.Role == "" {
			u.Role = model.RoleCashier
		}
	},
}

var CategoryDescriptor = Descriptor[model.Category]{
	Kind: model.KindCategories,
	Refs: []Ref[model.Category]{
		optional("parent", model.KindCategories,
			func(c *model.Category) **uuid.UUID { return &c.ParentUUID },
			func(c *model.Category) **uint { return &c.ParentID }),
	},
	Sanitize: func(c *model.Category) {
		if c.ParentUUID != nil && *c.ParentUUID == c.UUID {
			c.ParentUUID = nil
		}
	},
}

var UnitDescriptor = Descriptor[model.Unit]{Kind: model.KindUnits}

var SupplierDescriptor = Descriptor[model.Supplier]{Kind: model.KindSuppliers}

var CustomerDescriptor = Descriptor[model.Customer]{Kind: model.KindCustomers}

var SettingDescriptor = Descriptor[model.Setting]{
	Kind: model.KindSettings,
	Sanitize: func(s *model.Setting) {
		s.Key = strings.TrimSpace(s.Key)
	},
}

var ProductDescriptor = Descriptor[model.Product]{
	Kind: model.KindProducts,
	Refs: []Ref[model.Product]{
		optional("category", model.KindCategories,
			func(p *model.Product) **uuid.UUID { return &p.CategoryUUID },
			func(p *model.Product) **uint { return &p.CategoryID }),
		optional("unit", model.KindUnits,
			func(p *model.Product) **uuid.UUID { return &p.UnitUUID },
			func(p *model.Product) **uint { return &p.UnitID }),
		optional("supplier", model.KindSuppliers,
			func(p *model.Product) **uuid.UUID { return &p.SupplierUUID },
			func(p *model.Product) **uint { return &p.SupplierID }),
	},
	Sanitize: func(p *model.Product) {
		p.SKU = strings.TrimSpace(p.SKU)
	},
}

var ProductSupplierDescriptor = Descriptor[model.ProductSupplier]{
	Kind: model.KindProductSuppliers,
	Refs: []Ref[model.ProductSupplier]{
		required("product", model.KindProducts,
			func(ps *model.ProductSupplier) *uuid.UUID { return &ps.ProductUUID },
			func(ps *model.ProductSupplier) *uint { return &ps.ProductID }),
		required("supplier", model.KindSuppliers,
			func(ps *model.ProductSupplier) *uuid.UUID { return &ps.SupplierUUID },
			func(ps *model.ProductSupplier) *uint { return &ps.SupplierID }),
	},
}

var SaleDescriptor = Descriptor[model.Sale]{
	Kind: model.KindSales,
	Refs: []Ref[model.Sale]{
		optional("customer", model.KindCustomers,
			func(s *model.Sale) **uuid.UUID { return &s.CustomerUUID },
			func(s *model.Sale) **uint { return &s.CustomerID }),
		optional("supplier", model.KindSuppliers,
			func(s *model.Sale) **uuid.UUID { return &s.SupplierUUID },
			func(s *model.Sale) **uint { return &s.SupplierID }),
		optional("user", model.KindUsers,
			func(s *model.Sale) **uuid.UUID { return &s.UserUUID },
			func(s *model.Sale) **uint { return &s.UserID }),
	},
	Sanitize: func(s *model.Sale) {
		if !s.Type.Valid() {
			s.Type = model.SaleTypeSale
		}
		if s.PaymentStatus == "" {
			s.PaymentStatus = model.PaymentPending
		}
		if s.TransactionDate.IsZero() {
			s.TransactionDate = s.LastUpdatedAt
		}
		if s.TransactionDate.IsZero() {
			s.TransactionDate = model.Now()
		}
	},
}

var SaleItemDescriptor = Descriptor[model.SaleItem]{
	Kind: model.KindSaleItems,
	Refs: []Ref[model.SaleItem]{
		required("sale", model.KindSales,
			func(i *model.SaleItem) *uuid.UUID { return &i.SaleUUID },
			func(i *model.SaleItem) *uint { return &i.SaleID }),
		required("product", model.KindProducts,
			func(i *model.SaleItem) *uuid.UUID { return &i.ProductUUID },
			func(i *model.SaleItem) *uint { return &i.ProductID }),
	},
}

var PaymentDescriptor = Descriptor[model.Payment]{
	Kind: model.KindPayments,
	Refs: []Ref[model.Payment]{
		required("sale", model.KindSales,
			func(p *model.Payment) *uuid.UUID { return &p.SaleUUID },
			func(p *model.Payment) *uint { return &p.SaleID }),
	},
	Sanitize: func(p *model.Payment) {
		if p.Method == "" {
			p.Method = "cash"
		}
		if p.PaidAt.IsZero() {
			p.PaidAt = p.LastUpdatedAt
		}
	},
}

var LedgerDescriptor = Descriptor[model.StockLedger]{
	Kind: model.KindStockLedger,
	Refs: []Ref[model.StockLedger]{
		required("product", model.KindProducts,
			func(l *model.StockLedger) *uuid.UUID { return &l.ProductUUID },
			func(l *model.StockLedger) *uint { return &l.ProductID }),
		optional("sale_item", model.KindSaleItems,
			func(l *model.StockLedger) **uuid.UUID { return &l.SaleItemUUID },
			func(l *model.StockLedger) **uint { return &l.SaleItemID }),
	},
	Sanitize: func(l *model.StockLedger) {
		if l.Reason == "" {
			l.Reason = model.ReasonAdjustment
		}
	},
}
