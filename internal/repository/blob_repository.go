package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskflow/internal/model"
)

// Store keys.
const (
	KeyTasks       = "taskflow_tasks"
	KeyTemplates   = "recurringTemplates"
	KeySubscribers = "subscribers"
)

// BlobRepository is a keyed JSON document store. Updates of the same process
// are serialised so a read-modify-write never interleaves with another.
type BlobRepository struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewBlobRepository(db *gorm.DB) *BlobRepository {
	return &BlobRepository{db: db}
}

// Load returns the stored document, or found=false when the key was never saved.
func (r *BlobRepository) Load(ctx context.Context, key string) ([]byte, bool, error) {
	return load(r.db.WithContext(ctx), key)
}

// Save replaces the document stored under key.
func (r *BlobRepository) Save(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return save(r.db.WithContext(ctx), key, value)
}

// Update loads the document, passes it to fn and stores the result in one
// transaction. A nil slice is passed when the key does not exist yet.
func (r *BlobRepository) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, _, err := load(tx, key)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		return save(tx, key, next)
	})
}

func load(db *gorm.DB, key string) ([]byte, bool, error) {
	var blob model.Blob
	err := db.Where(&model.Blob{Key: key}).First(&blob).Error
	switch {
	case err == nil:
		return blob.Value, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
}

func save(db *gorm.DB, key string, value []byte) error {
	blob := model.Blob{Key: key, Value: value}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&blob).Error; err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
