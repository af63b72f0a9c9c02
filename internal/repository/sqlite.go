package repository

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Blob is the gorm model behind SQLiteKV.
type Blob struct {
	Key       string `gorm:"primaryKey;type:varchar(191)"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName keeps the table name aligned with the Postgres backend.
func (Blob) TableName() string { return "kv_blobs" }

// SQLiteKV stores blobs through gorm, normally in a local SQLite file.
type SQLiteKV struct {
	db *gorm.DB
}

// NewSQLiteKV constructs a SQLiteKV and migrates its table.
func NewSQLiteKV(db *gorm.DB) (*SQLiteKV, error) {
	if err := db.AutoMigrate(&Blob{}); err != nil {
		return nil, pkgerrors.Wrap(err, "migrate kv_blobs")
	}
	return &SQLiteKV{db: db}, nil
}

func (r *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	var blob Blob
	err := r.db.WithContext(ctx).First(&blob, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, pkgerrors.Wrapf(err, "get blob %q", key)
	}
	return blob.Value, nil
}

func (r *SQLiteKV) Put(ctx context.Context, key string, value []byte) error {
	blob := Blob{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob).Error
	if err != nil {
		return pkgerrors.Wrapf(err, "put blob %q", key)
	}
	return nil
}
