package repository

import (
	"context"
	"encoding/json"
	"fmt"
)

func loadList[T any](ctx context.Context, blobs *BlobRepository, key string) ([]T, error) {
	data, found, err := blobs.Load(ctx, key)
	if err != nil || !found {
		return nil, err
	}
	return decodeList[T](key, data)
}

func updateList[T any](ctx context.Context, blobs *BlobRepository, key string, fn func([]T) ([]T, error)) error {
	return blobs.Update(ctx, key, func(current []byte) ([]byte, error) {
		items, err := decodeList[T](key, current)
		if err != nil {
			return nil, err
		}
		items, err = fn(items)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		data, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		return data, nil
	})
}

func decodeList[T any](key string, data []byte) ([]T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return items, nil
}
