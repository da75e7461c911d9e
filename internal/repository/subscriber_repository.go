package repository

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/model"
)

// SubscriberRepository keeps the chats that receive reminders and reports.
type SubscriberRepository struct {
	blobs *BlobRepository
}

func NewSubscriberRepository(blobs *BlobRepository) *SubscriberRepository {
	return &SubscriberRepository{blobs: blobs}
}

// UpsertFromTelegram finds or creates a subscriber for the chat and refreshes its profile info.
func (r *SubscriberRepository) UpsertFromTelegram(ctx context.Context, chatID int64, firstName, username string) (*model.Subscriber, error) {
	var result model.Subscriber
	err := updateList(ctx, r.blobs, KeySubscribers, func(current []model.Subscriber) ([]model.Subscriber, error) {
		for i := range current {
			if current[i].ChatID == chatID {
				current[i].FirstName = firstName
				current[i].Username = username
				result = current[i]
				return current, nil
			}
		}
		result = model.Subscriber{
			ChatID:    chatID,
			FirstName: firstName,
			Username:  username,
			CreatedAt: time.Now(),
		}
		return append(current, result), nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert subscriber: %w", err)
	}
	return &result, nil
}

func (r *SubscriberRepository) ListAll(ctx context.Context) ([]model.Subscriber, error) {
	subscribers, err := loadList[model.Subscriber](ctx, r.blobs, KeySubscribers)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return subscribers, nil
}
