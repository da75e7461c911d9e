package repository

import (
	"context"
	"fmt"

	"taskflow/internal/model"
)

// MigrateLegacy moves recurrences embedded in task records into the template
// document. Templates are written before the task list is rewritten, so an
// interrupted run leaves the data readable and is repeated on the next start.
func MigrateLegacy(ctx context.Context, tasks *TaskRepository, templates *TemplateRepository) (int, error) {
	current, err := tasks.List(ctx)
	if err != nil {
		return 0, err
	}
	if !needsMigration(current) {
		return 0, nil
	}

	_, legacy := model.MigrateLegacy(current)
	if _, err := templates.Merge(ctx, legacy); err != nil {
		return 0, err
	}

	err = tasks.Mutate(ctx, func(stored []model.Task) ([]model.Task, error) {
		kept, _ := model.MigrateLegacy(stored)
		return kept, nil
	})
	if err != nil {
		return 0, fmt.Errorf("rewrite legacy tasks: %w", err)
	}
	return len(legacy), nil
}

func needsMigration(tasks []model.Task) bool {
	for _, t := range tasks {
		if len(t.Recurrence) > 0 || t.RecurrenceTemplateID != "" || t.TemplateStatus != "" {
			return true
		}
	}
	return false
}
