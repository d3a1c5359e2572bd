package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-sync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrMissingReference = errors.New("missing mandatory reference")
	ErrTenantMismatch   = errors.New("record belongs to another tenant")
	// ErrConflict is a remote row that collides with a local unique key held
	// by a different uuid, e.g. a second setting with the same key.
	ErrConflict = errors.New("record collides with a unique key")
)

// Entity is satisfied by *T for every model embedding model.SyncModel.
type Entity[T any] interface {
	*T
	model.Syncable
}

// SyncRepo is the generic local repository of one syncable entity type. Every
// query is scoped by tenant; every local mutation stamps last_updated_at and
// clears synced.
type SyncRepo[T any, P Entity[T]] struct {
	db   *gorm.DB
	kind model.EntityKind
}

func NewSyncRepo[T any, P Entity[T]](db *gorm.DB, kind model.EntityKind) *SyncRepo[T, P] {
	return &SyncRepo[T, P]{db: db, kind: kind}
}

func (r *SyncRepo[T, P]) Kind() model.EntityKind {
	return r.kind
}

func (r *SyncRepo[T, P]) scoped(ctx context.Context, tenant uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(P(new(T))).Where("tenant_id = ?", tenant)
}

// Insert creates rec and returns its local id.
func (r *SyncRepo[T, P]) Insert(ctx context.Context, rec P) (uint, error) {
	env := rec.Envelope()
	if env.TenantID == uuid.Nil {
		return 0, model.ErrNoActiveTenant
	}
	env.ID = 0
	env.Touch(model.Now())
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return 0, fmt.Errorf("insert %s: %w", r.kind, err)
	}
	return env.ID, nil
}

// Update overwrites every column of an existing row of the same tenant.
func (r *SyncRepo[T, P]) Update(ctx context.Context, rec P) error {
	env := rec.Envelope()
	if env.ID == 0 {
		return fmt.Errorf("update %s: %w", r.kind, ErrNotFound)
	}
	env.Touch(model.Now())
	res := r.db.WithContext(ctx).Model(rec).Where("tenant_id = ?", env.TenantID).Select("*").Updates(rec)
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", r.kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %s %d: %w", r.kind, env.ID, ErrNotFound)
	}
	return nil
}

// SoftDelete marks a row as a tombstone. Rows are never removed, so the
// deletion reaches the remote store on the next push.
func (r *SyncRepo[T, P]) SoftDelete(ctx context.Context, id uint, tenant uuid.UUID) error {
	n, err := r.SoftDeleteWhere(ctx, tenant, "id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete %s %d: %w", r.kind, id, ErrNotFound)
	}
	return nil
}

// SoftDeleteWhere tombstones every live row of the tenant matching query.
func (r *SyncRepo[T, P]) SoftDeleteWhere(ctx context.Context, tenant uuid.UUID, query string, args ...interface{}) (int64, error) {
	res := r.scoped(ctx, tenant).
		Where("deleted = ?", false).
		Where(query, args...).
		Updates(map[string]interface{}{
			"deleted":         true,
			"synced":          false,
			"last_updated_at": model.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("delete %s: %w", r.kind, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *SyncRepo[T, P]) FindByID(ctx context.Context, tenant uuid.UUID, id uint) (P, error) {
	var rec T
	if err := r.scoped(ctx, tenant).First(&rec, id).Error; err != nil {
		return nil, r.notFound(err)
	}
	return &rec, nil
}

func (r *SyncRepo[T, P]) FindByUUID(ctx context.Context, tenant uuid.UUID, id uuid.UUID) (P, error) {
	var rec T
	if err := r.scoped(ctx, tenant).Where("uuid = ?", id).First(&rec).Error; err != nil {
		return nil, r.notFound(err)
	}
	return &rec, nil
}

// QueryAll returns the live (non-deleted) rows of the tenant.
func (r *SyncRepo[T, P]) QueryAll(ctx context.Context, tenant uuid.UUID) ([]T, error) {
	return r.Where(ctx, tenant, "1 = 1")
}

// Where returns the live rows of the tenant matching query.
func (r *SyncRepo[T, P]) Where(ctx context.Context, tenant uuid.UUID, query string, args ...interface{}) ([]T, error) {
	var rows []T
	err := r.scoped(ctx, tenant).
		Where("deleted = ?", false).
		Where(query, args...).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.kind, err)
	}
	return rows, nil
}

// QueryUnsynced returns new, updated and tombstoned rows not yet pushed.
func (r *SyncRepo[T, P]) QueryUnsynced(ctx context.Context, tenant uuid.UUID) ([]T, error) {
	var rows []T
	err := r.scoped(ctx, tenant).Where("synced = ?", false).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query unsynced %s: %w", r.kind, err)
	}
	return rows, nil
}

// MarkSynced flags a pushed row. The flag is only set if the row has not been
// touched since seenAt; a row mutated while it was being posted stays
// unsynced and goes out again next cycle.
func (r *SyncRepo[T, P]) MarkSynced(ctx context.Context, id uint, tenant uuid.UUID, seenAt time.Time) (bool, error) {
	res := r.scoped(ctx, tenant).
		Where("id = ? AND last_updated_at <= ?", id, seenAt.UTC()).
		UpdateColumn("synced", true)
	if res.Error != nil {
		return false, fmt.Errorf("mark synced %s %d: %w", r.kind, id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpsertRemote writes a remote-origin row by uuid: an existing local row is
// overwritten field by field, otherwise the row is inserted. Either way the
// row ends up synced.
func (r *SyncRepo[T, P]) UpsertRemote(ctx context.Context, rec P) (created bool, err error) {
	env := rec.Envelope()
	if env.UUID == uuid.Nil {
		return false, fmt.Errorf("upsert %s: %w: uuid", r.kind, ErrMissingReference)
	}
	env.Synced = true
	if env.LastUpdatedAt.IsZero() {
		env.LastUpdatedAt = model.Now()
	}
	env.LastUpdatedAt = env.LastUpdatedAt.UTC()

	var existing T
	err = r.db.WithContext(ctx).Model(P(new(T))).
		Select("id", "tenant_id").
		Where("uuid = ?", env.UUID).
		Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		env.ID = 0
		if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
			return false, fmt.Errorf("upsert %s %s: %w", r.kind, env.UUID, conflict(err))
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("upsert %s %s: %w", r.kind, env.UUID, err)
	}

	current := P(&existing).Envelope()
	if current.TenantID != env.TenantID {
		return false, fmt.Errorf("upsert %s %s: %w", r.kind, env.UUID, ErrTenantMismatch)
	}
	env.ID = current.ID
	if err := r.db.WithContext(ctx).Model(rec).Select("*").Updates(rec).Error; err != nil {
		return false, fmt.Errorf("upsert %s %s: %w", r.kind, env.UUID, conflict(err))
	}
	return false, nil
}

// conflict maps a unique violation, translated by the driver, to ErrConflict.
func conflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

// Count returns the number of live rows, or of unsynced rows (tombstones
// included) when unsynced is set.
func (r *SyncRepo[T, P]) Count(ctx context.Context, tenant uuid.UUID, unsynced bool) (int64, error) {
	var n int64
	q := r.scoped(ctx, tenant)
	if unsynced {
		q = q.Where("synced = ?", false)
	} else {
		q = q.Where("deleted = ?", false)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", r.kind, err)
	}
	return n, nil
}

func (r *SyncRepo[T, P]) notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", r.kind, ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", r.kind, err)
}
