package model

import "time"

// Blob is one keyed JSON document in the store.
type Blob struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}
