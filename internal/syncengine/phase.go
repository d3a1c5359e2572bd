package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/repository"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// phase moves one entity kind in either direction.
type phase interface {
	Kind() model.EntityKind
	Pull(ctx context.Context, tx *repository.Store, tenant uuid.UUID, rows []json.RawMessage, rep *EntityReport) error
	Push(ctx context.Context, store *repository.Store, remote Remote, tenant uuid.UUID, rep *EntityReport) error
}

type entityPhase[T any, P repository.Entity[T]] struct {
	desc  repository.Descriptor[T]
	repo  func(*repository.Store) *repository.SyncRepo[T, P]
	after func(ctx context.Context, tx *repository.Store, tenant uuid.UUID) error
	log   *slog.Logger
}

func (p *entityPhase[T, P]) Kind() model.EntityKind {
	return p.desc.Kind
}

// Pull materializes the fetched rows. Records of another tenant, records that
// cannot be decoded and records with an unresolvable mandatory reference are
// skipped and logged; any other error fails the phase.
func (p *entityPhase[T, P]) Pull(ctx context.Context, tx *repository.Store, tenant uuid.UUID, rows []json.RawMessage, rep *EntityReport) error {
	repo := p.repo(tx)
	for _, raw := range rows {
		rep.Fetched++
		id := gjson.GetBytes(raw, "uuid").String()

		if owner := gjson.GetBytes(raw, "tenant_id").String(); !strings.EqualFold(owner, tenant.String()) {
			rep.Skipped++
			p.log.Warn("skipping record of another tenant", "kind", p.desc.Kind, "uuid", id, "tenant_id", owner)
			continue
		}

		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			rep.Skipped++
			p.log.Warn("skipping undecodable record", "kind", p.desc.Kind, "uuid", id, "error", err)
			continue
		}
		env := P(&rec).Envelope()
		env.ID = 0
		if env.UUID == uuid.Nil {
			rep.Skipped++
			p.log.Warn("skipping record without uuid", "kind", p.desc.Kind)
			continue
		}

		if err := p.desc.Prepare(ctx, tx, tenant, &rec); err != nil {
			if errors.Is(err, repository.ErrMissingReference) {
				rep.Skipped++
				p.log.Warn("skipping record with missing reference", "kind", p.desc.Kind, "uuid", id, "error", err)
				continue
			}
			return err
		}

		if _, err := repo.UpsertRemote(ctx, &rec); err != nil {
			if errors.Is(err, repository.ErrTenantMismatch) {
				rep.Skipped++
				p.log.Warn("skipping record owned by another tenant locally", "kind", p.desc.Kind, "uuid", id)
				continue
			}
			if errors.Is(err, repository.ErrConflict) {
				rep.Skipped++
				p.log.Warn("skipping record that collides with a local unique key", "kind", p.desc.Kind, "uuid", id, "error", err)
				continue
			}
			return err
		}
		rep.Upserted++
	}

	if p.after != nil {
		return p.after(ctx, tx, tenant)
	}
	return nil
}

// Push posts every unsynced row, tombstones included. A failed post leaves
// the row unsynced and moves on to the next one.
func (p *entityPhase[T, P]) Push(ctx context.Context, store *repository.Store, remote Remote, tenant uuid.UUID, rep *EntityReport) error {
	repo := p.repo(store)
	rows, err := repo.QueryUnsynced(ctx, tenant)
	if err != nil {
		return err
	}

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := P(&rows[i])
		env := rec.Envelope()
		rep.Fetched++

		payload, err := json.Marshal(rec)
		if err != nil {
			rep.Failed++
			p.log.Error("failed to encode record", "kind", p.desc.Kind, "uuid", env.UUID, "error", err)
			continue
		}
		if err := remote.Upsert(ctx, string(p.desc.Kind), payload); err != nil {
			rep.Failed++
			p.log.Warn("failed to push record", "kind", p.desc.Kind, "uuid", env.UUID, "error", err)
			continue
		}

		marked, err := repo.MarkSynced(ctx, env.ID, tenant, env.LastUpdatedAt)
		if err != nil {
			rep.Failed++
			p.log.Error("failed to mark record synced", "kind", p.desc.Kind, "uuid", env.UUID, "error", err)
			continue
		}
		if !marked {
			rep.Stale++
			p.log.Debug("record changed while pushing, keeping it unsynced", "kind", p.desc.Kind, "uuid", env.UUID)
			continue
		}
		rep.Pushed++
	}
	return nil
}

func newPhase[T any, P repository.Entity[T]](desc repository.Descriptor[T], repo func(*repository.Store) *repository.SyncRepo[T, P], log *slog.Logger) *entityPhase[T, P] {
	return &entityPhase[T, P]{desc: desc, repo: repo, log: log}
}

// buildPhases wires one phase per entity kind.
func buildPhases(log *slog.Logger) map[model.EntityKind]phase {
	categories := newPhase(repository.CategoryDescriptor, func(s *repository.Store) *repository.SyncRepo[model.Category, *model.Category] { return s.Categories }, log)
	categories.after = func(ctx context.Context, tx *repository.Store, tenant uuid.UUID) error {
		n, err := tx.RelinkCategoryParents(ctx, tenant)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Debug("relinked category parents", "count", n)
		}
		return nil
	}

	list := []phase{
		newPhase(repository.UserDescriptor, func(s *repository.Store) *repository.SyncRepo[model.User, *model.User] { return s.Users }, log),
		categories,
		newPhase(repository.UnitDescriptor, func(s *repository.Store) *repository.SyncRepo[model.Unit, *model.Unit] { return s.Units }, log),
		newPhase(repository.SupplierDescriptor, func(s *repository.Store) *repository.SyncRepo[model.Supplier, *model.Supplier] { return s.Suppliers }, log),
		newPhase(repository.CustomerDescriptor, func(s *repository.Store) *repository.SyncRepo[model.Customer, *model.Customer] { return s.Customers }, log),
		newPhase(repository.SettingDescriptor, func(s *repository.Store) *repository.SyncRepo[model.Setting, *model.Setting] { return s.Settings }, log),
		newPhase(repository.ProductDescriptor, func(s *repository.Store) *repository.SyncRepo[model.Product, *model.Product] { return s.Products }, log),
		newPhase(repository.ProductSupplierDescriptor, func(s *repository.Store) *repository.SyncRepo[model.ProductSupplier, *model.ProductSupplier] {
			return s.ProductSuppliers
		}, log),
		newPhase(repository.SaleDescriptor, func(s *repository.Store) *repository.SyncRepo[model.Sale, *model.Sale] { return s.Sales }, log),
		newPhase(repository.SaleItemDescriptor, func(s *repository.Store) *repository.SyncRepo[model.SaleItem, *model.SaleItem] { return s.SaleItems }, log),
		newPhase(repository.PaymentDescriptor, func(s *repository.Store) *repository.SyncRepo[model.Payment, *model.Payment] { return s.Payments }, log),
		newPhase(repository.LedgerDescriptor, func(s *repository.Store) *repository.SyncRepo[model.StockLedger, *model.StockLedger] { return s.Ledger }, log),
	}

	phases := make(map[model.EntityKind]phase, len(list))
	for _, p := range list {
		phases[p.Kind()] = p
	}
	return phases
}

func unknownKind(kind model.EntityKind) error {
	return fmt.Errorf("unknown entity kind %q", kind)
}
