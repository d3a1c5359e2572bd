// Package remoteapi is a reference implementation of the shared remote store:
// a collection API over gorm where every record is kept as a JSON document
// keyed by (collection, uuid).
package remoteapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go-pos-sync/internal/model"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidCollection = errors.New("invalid collection name")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrTenantConflict    = errors.New("record uuid belongs to another tenant")
)

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// Record is one stored document.
type Record struct {
	ID         uint           `gorm:"primaryKey"`
	Collection string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_records_collection_uuid,priority:1;index:idx_records_collection_tenant,priority:1"`
	UUID       string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_records_collection_uuid,priority:2"`
	TenantID   string         `gorm:"type:varchar(36);index:idx_records_collection_tenant,priority:2"`
	Payload    datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Record) TableName() string {
	return "remote_records"
}

// Filter narrows a query; empty fields match everything.
type Filter struct {
	TenantID string
	UUID     string
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Record{})
}

// Find returns the payloads of collection matching f, oldest first.
func (s *Store) Find(ctx context.Context, collection string, f Filter) ([]json.RawMessage, error) {
	if !collectionName.MatchString(collection) {
		return nil, ErrInvalidCollection
	}
	q := s.db.WithContext(ctx).Model(&Record{}).Where("collection = ?", collection)
	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	if f.UUID != "" {
		q = q.Where("uuid = ?", f.UUID)
	}

	var records []Record
	if err := q.Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	out := make([]json.RawMessage, len(records))
	for i, r := range records {
		out[i] = json.RawMessage(r.Payload)
	}
	return out, nil
}

// Upsert stores body, a JSON object or an array of objects, merging on uuid.
// It returns the number of records written.
func (s *Store) Upsert(ctx context.Context, collection string, body []byte) (int, error) {
	if !collectionName.MatchString(collection) {
		return 0, ErrInvalidCollection
	}
	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("%w: body is not JSON", ErrInvalidRecord)
	}

	var docs []gjson.Result
	parsed := gjson.ParseBytes(body)
	switch {
	case parsed.IsArray():
		docs = parsed.Array()
	case parsed.IsObject():
		docs = []gjson.Result{parsed}
	default:
		return 0, fmt.Errorf("%w: expected an object or an array", ErrInvalidRecord)
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := toRecord(collection, doc)
		if err != nil {
			return 0, err
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range records {
			if err := guardTenant(tx, &records[i]); err != nil {
				return err
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "collection"}, {Name: "uuid"}},
				DoUpdates: clause.AssignmentColumns([]string{"tenant_id", "payload", "updated_at"}),
			}).Create(&records[i]).Error
			if err != nil {
				return fmt.Errorf("upsert %s %s: %w", collection, records[i].UUID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// SeedTenant stores tenant in the tenants collection, replacing any earlier
// version of it.
func (s *Store) SeedTenant(ctx context.Context, tenant *model.Tenant) error {
	if tenant.UUID == uuid.Nil {
		return fmt.Errorf("%w: tenant uuid is empty", ErrInvalidRecord)
	}
	if tenant.UpdatedAt.IsZero() {
		tenant.UpdatedAt = model.Now()
	}
	body, err := json.Marshal(tenant)
	if err != nil {
		return err
	}
	_, err = s.Upsert(ctx, model.CollectionTenants, body)
	return err
}

func toRecord(collection string, doc gjson.Result) (Record, error) {
	if !doc.IsObject() {
		return Record{}, fmt.Errorf("%w: array element is not an object", ErrInvalidRecord)
	}
	id, err := uuid.Parse(doc.Get("uuid").String())
	if err != nil {
		return Record{}, fmt.Errorf("%w: missing or malformed uuid", ErrInvalidRecord)
	}
	// Tenants are their own scope.
	tenant := doc.Get("tenant_id").String()
	if tenant == "" && collection == "tenants" {
		tenant = id.String()
	}
	return Record{
		Collection: collection,
		UUID:       id.String(),
		TenantID:   tenant,
		Payload:    datatypes.JSON(doc.Raw),
	}, nil
}

func guardTenant(tx *gorm.DB, rec *Record) error {
	var existing Record
	err := tx.Select("tenant_id").
		Where("collection = ? AND uuid = ?", rec.Collection, rec.UUID).
		Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	case existing.TenantID != rec.TenantID:
		return fmt.Errorf("%s %s: %w", rec.Collection, rec.UUID, ErrTenantConflict)
	}
	return nil
}
