package database

import (
	"fmt"
	"time"

	"go-pos-sync/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LocalOptions tunes OpenLocal.
type LocalOptions struct {
	Debug  bool
	Silent bool // no gorm logging at all, for tests
}

// OpenLocal opens (or creates) the single-file embedded store of one
// installation and migrates it. Foreign keys are off: referential integrity
// is the write path's job, and pull materializes rows before every reference
// can be resolved.
func OpenLocal(path string, opts LocalOptions) (*gorm.DB, error) {
	var gormLogger logger.Interface
	if opts.Silent {
		gormLogger = logger.Default.LogMode(logger.Silent)
	} else {
		gormLogger = NewLogger(opts.Debug)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger,
		// Timestamps are stored as text; UTC keeps them comparable.
		NowFunc: func() time.Time { return time.Now().UTC() },
		// Unique violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite only supports one writer at a time; one connection also keeps
	// the pragmas below in effect.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = OFF",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if err := MigrateLocal(db); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// MigrateLocal creates or updates every local table. It is idempotent.
func MigrateLocal(db *gorm.DB) error {
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	// Live settings are unique per tenant, not globally.
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_settings_tenant_key ON settings(tenant_id, key) WHERE deleted = 0").Error; err != nil {
		return fmt.Errorf("create settings index: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
