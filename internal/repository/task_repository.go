package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

// TaskRepository handles the task list document.
type TaskRepository struct {
	blobs *BlobRepository
}

func NewTaskRepository(blobs *BlobRepository) *TaskRepository {
	return &TaskRepository{blobs: blobs}
}

func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	tasks, err := loadList[model.Task](ctx, r.blobs, KeyTasks)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	tasks, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i], nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", id, gorm.ErrRecordNotFound)
}

// Append adds tasks whose ids are not stored yet and returns how many were written.
func (r *TaskRepository) Append(ctx context.Context, tasks ...model.Task) (int, error) {
	added := 0
	err := r.Mutate(ctx, func(current []model.Task) ([]model.Task, error) {
		known := make(map[string]bool, len(current))
		for _, t := range current {
			known[t.ID] = true
		}
		for _, t := range tasks {
			if known[t.ID] {
				continue
			}
			known[t.ID] = true
			current = append(current, t)
			added++
		}
		return current, nil
	})
	if err != nil {
		return 0, fmt.Errorf("append tasks: %w", err)
	}
	return added, nil
}

// Update applies fn to the stored task with the given id.
func (r *TaskRepository) Update(ctx context.Context, id string, fn func(*model.Task) error) (*model.Task, error) {
	var updated model.Task
	err := r.Mutate(ctx, func(current []model.Task) ([]model.Task, error) {
		for i := range current {
			if current[i].ID != id {
				continue
			}
			if err := fn(&current[i]); err != nil {
				return nil, err
			}
			updated = current[i]
			return current, nil
		}
		return nil, fmt.Errorf("task %s: %w", id, gorm.ErrRecordNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	removed, err := r.deleteWhere(ctx, func(t model.Task) bool { return t.ID == id })
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("task %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteByTemplate removes every instance materialized from the template.
func (r *TaskRepository) DeleteByTemplate(ctx context.Context, templateID string) (int, error) {
	removed, err := r.deleteWhere(ctx, func(t model.Task) bool {
		return t.RecurringTemplateID == templateID || t.RecurrenceTemplateID == templateID
	})
	if err != nil {
		return 0, fmt.Errorf("delete template instances: %w", err)
	}
	return removed, nil
}

// Mutate runs fn over the full task list inside one store transaction.
func (r *TaskRepository) Mutate(ctx context.Context, fn func([]model.Task) ([]model.Task, error)) error {
	return updateList(ctx, r.blobs, KeyTasks, fn)
}

func (r *TaskRepository) deleteWhere(ctx context.Context, match func(model.Task) bool) (int, error) {
	removed := 0
	err := r.Mutate(ctx, func(current []model.Task) ([]model.Task, error) {
		kept := current[:0]
		for _, t := range current {
			if match(t) {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		return kept, nil
	})
	return removed, err
}
