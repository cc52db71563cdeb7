package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// record is the row shape shared by the SQL backends
type record struct {
	Key       string    `gorm:"column:record_key;primaryKey"`
	Value     []byte    `gorm:"column:record_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (record) TableName() string {
	return "kv_records"
}

// GormStore persists records through GORM. The SQLite dialect gives a
// single-file local store.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a SQLite database at path. ":memory:" is allowed.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	return db, nil
}

// NewGormStore migrates the kv_records table and returns the store
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_records: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var rec record
	err := s.db.WithContext(ctx).Where("record_key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("gorm get "+key, err)
	}
	return rec.Value, true, nil
}

func (s *GormStore) Apply(ctx context.Context, ops ...Op) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if op.Delete {
				if err := tx.Where("record_key = ?", op.Key).Delete(&record{}).Error; err != nil {
					return err
				}
				continue
			}
			rec := record{Key: op.Key, Value: op.Value, UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "record_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"record_value", "updated_at"}),
			}).Create(&rec).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return wrap("gorm apply", err)
}
