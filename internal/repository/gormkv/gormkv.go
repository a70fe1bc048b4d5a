// Package gormkv implements repository.BlobStore on a MySQL table through gorm.
package gormkv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/repository"
)

// Blob is the gorm model of the blobs table.
type Blob struct {
	Key       string `gorm:"column:blob_key;primaryKey;size:191"`
	Value     []byte `gorm:"type:longblob;not null"`
	Ver       int64  `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Blob) TableName() string { return "blobs" }

// Store keeps blobs in a relational table.
type Store struct{ db *gorm.DB }

var _ repository.BlobStore = (*Store)(nil)

// Open connects to MySQL and migrates the blobs table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the blobs table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Blob{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Get loads the row for key.
func (s *Store) Get(ctx context.Context, key string) (repository.Blob, error) {
	var row Blob
	err := s.db.WithContext(ctx).First(&row, "blob_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.Blob{}, errs.ErrNotFound
	}
	if err != nil {
		return repository.Blob{}, err
	}
	return repository.Blob{Value: row.Value, Ver: row.Ver}, nil
}

// Put creates (baseVer=0) or updates the row guarded by ver.
func (s *Store) Put(ctx context.Context, key string, value []byte, baseVer int64) (int64, error) {
	db := s.db.WithContext(ctx)
	if baseVer == 0 {
		err := db.Create(&Blob{Key: key, Value: value, Ver: 1}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, errs.ErrVersionConflict
		}
		if err != nil {
			return 0, err
		}
		return 1, nil
	}

	newVer := baseVer + 1
	res := db.Model(&Blob{}).
		Where("blob_key = ? AND ver = ?", key, baseVer).
		Updates(map[string]any{"value": value, "ver": newVer, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, errs.ErrVersionConflict
	}
	return newVer, nil
}

// Delete removes the row for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("blob_key = ?", key).Delete(&Blob{}).Error
}

// Close closes the underlying sql.DB.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
