package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/recurrence"
	"taskflow/internal/repository"
)

// RecurrenceService writes materialized template instances back to the task store.
type RecurrenceService struct {
	taskRepo     *repository.TaskRepository
	templateRepo *repository.TemplateRepository
	materializer *recurrence.Materializer
}

func NewRecurrenceService(taskRepo *repository.TaskRepository, templateRepo *repository.TemplateRepository, opts recurrence.Options) *RecurrenceService {
	return &RecurrenceService{
		taskRepo:     taskRepo,
		templateRepo: templateRepo,
		materializer: recurrence.NewMaterializer(opts),
	}
}

// Materialize creates the instances missing for every active template and
// returns how many were added. Templates are read while the task list is held,
// so a template removed before the batch commits contributes nothing.
func (s *RecurrenceService) Materialize(ctx context.Context, now time.Time) (int, error) {
	var (
		templates []model.RecurringTemplate
		result    recurrence.Result
	)
	err := s.taskRepo.Mutate(ctx, func(tasks []model.Task) ([]model.Task, error) {
		var err error
		if templates, err = s.templateRepo.List(ctx); err != nil {
			return nil, err
		}
		result = s.materializer.Run(templates, tasks, now)
		return append(tasks, result.Tasks...), nil
	})
	if err != nil {
		return 0, fmt.Errorf("materialize templates: %w", err)
	}

	for _, w := range result.Warnings {
		log.Printf("[warn] %s", w)
	}
	if len(result.Tasks) > 0 {
		log.Printf("[info] materialized %d task instance(s) from %d template(s)", len(result.Tasks), len(templates))
	}
	return len(result.Tasks), nil
}
