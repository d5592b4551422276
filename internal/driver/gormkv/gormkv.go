// Package gormkv is a storage driver on top of any gorm-managed database.
//
// It is meant for applications that already own a *gorm.DB and want the
// remembered state to live next to their other tables.
package gormkv

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry maps to the remember_entries table. Revision counts writes per key.
type Entry struct {
	Key      string `gorm:"primaryKey"`
	Value    []byte `gorm:"not null"`
	Revision int64  `gorm:"not null;default:1"`
}

// TableName pins the table name regardless of naming strategy.
func (Entry) TableName() string {
	return "remember_entries"
}

// Driver reads and writes Entry rows.
type Driver struct {
	db *gorm.DB
}

// New wraps db and migrates the entries table.
func New(db *gorm.DB) (*Driver, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate entries table: %w", err)
	}
	return &Driver{db: db}, nil
}

// OpenSQLite opens a SQLite database through gorm with query logging off.
func OpenSQLite(dsn string) (*Driver, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	return New(db)
}

// DB exposes the underlying handle.
func (d *Driver) DB() *gorm.DB {
	return d.db
}

// GetItem returns the value stored under key. ok is false when absent.
func (d *Driver) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	var entry Entry
	// Find instead of First: a missing key is normal and First would log it.
	result := d.db.WithContext(ctx).Where("key = ?", key).Limit(1).Find(&entry)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	if entry.Value == nil {
		entry.Value = []byte{}
	}
	return entry.Value, true, nil
}

// SetItem upserts value under key and bumps its revision.
func (d *Driver) SetItem(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	entry := Entry{Key: key, Value: value, Revision: 1}
	result := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":    value,
			"revision": gorm.Expr("revision + 1"),
		}),
	}).Create(&entry)
	if result.Error != nil {
		return fmt.Errorf("failed to write key %s: %w", key, result.Error)
	}
	return nil
}

// Keys returns every stored key, sorted.
func (d *Driver) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := d.db.WithContext(ctx).Model(&Entry{}).Order("key").Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// Entries returns every row whose key starts with prefix, ordered by key.
// Returns an empty slice (not nil) when nothing matches.
func (d *Driver) Entries(ctx context.Context, prefix string) ([]Entry, error) {
	entries := []Entry{}
	err := d.db.WithContext(ctx).
		Where("substr(key, 1, length(?)) = ?", prefix, prefix).
		Order("key").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// Close releases the underlying connection pool.
func (d *Driver) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
