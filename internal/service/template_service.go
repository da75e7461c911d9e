package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// TemplateInput represents data required to create or replace a recurring template.
type TemplateInput struct {
	Subject  string
	Details  string
	Assignee string
	Labels   []string
	URL      string
	Schedule model.Schedule
	Status   model.TemplateStatus
}

// TemplateService manages recurring templates and keeps their instances in step.
type TemplateService struct {
	templateRepo *repository.TemplateRepository
	taskRepo     *repository.TaskRepository
	recurrence   *RecurrenceService
}

func NewTemplateService(templateRepo *repository.TemplateRepository, taskRepo *repository.TaskRepository, recurrence *RecurrenceService) *TemplateService {
	return &TemplateService{templateRepo: templateRepo, taskRepo: taskRepo, recurrence: recurrence}
}

func (s *TemplateService) Create(ctx context.Context, input TemplateInput, now time.Time) (*model.RecurringTemplate, error) {
	template := model.RecurringTemplate{
		ID:        uuid.NewString(),
		CreatedAt: model.Timestamp(now),
	}
	if err := applyTemplateInput(&template, input, now); err != nil {
		return nil, err
	}

	if err := s.templateRepo.Create(ctx, template); err != nil {
		return nil, err
	}
	s.materialize(ctx, now)
	return &template, nil
}

// Update replaces the editable fields of a template. Existing instances keep
// the values they were created with.
func (s *TemplateService) Update(ctx context.Context, id string, input TemplateInput, now time.Time) (*model.RecurringTemplate, error) {
	template, err := s.templateRepo.Update(ctx, id, func(t *model.RecurringTemplate) error {
		if t.IsDeleted {
			return fmt.Errorf("template %s: %w", id, ErrTemplateNotFound)
		}
		return applyTemplateInput(t, input, now)
	})
	if err != nil {
		return nil, notFound(err, ErrTemplateNotFound, id)
	}
	s.materialize(ctx, now)
	return template, nil
}

// Toggle flips a template between active and inactive.
func (s *TemplateService) Toggle(ctx context.Context, id string, now time.Time) (*model.RecurringTemplate, error) {
	template, err := s.templateRepo.Update(ctx, id, func(t *model.RecurringTemplate) error {
		if t.IsDeleted {
			return fmt.Errorf("template %s: %w", id, ErrTemplateNotFound)
		}
		if t.IsActive() {
			t.Status = model.TemplateInactive
		} else {
			t.Status = model.TemplateActive
		}
		t.UpdatedAt = model.Timestamp(now)
		return nil
	})
	if err != nil {
		return nil, notFound(err, ErrTemplateNotFound, id)
	}
	if template.IsActive() {
		s.materialize(ctx, now)
	}
	return template, nil
}

// Delete soft-deletes an active template and keeps its instances. An inactive
// template is purged together with every task that references it. purged
// reports which of the two happened. Deleting an already deleted template
// returns ErrTemplateNotFound.
func (s *TemplateService) Delete(ctx context.Context, id string, now time.Time) (purged bool, removed int, err error) {
	_, purged, err = s.templateRepo.Retire(ctx, id, func(t *model.RecurringTemplate) (bool, error) {
		if t.IsDeleted {
			return false, fmt.Errorf("template %s: %w", id, ErrTemplateNotFound)
		}
		if t.Status == model.TemplateActive {
			t.IsDeleted = true
			t.UpdatedAt = model.Timestamp(now)
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return false, 0, notFound(err, ErrTemplateNotFound, id)
	}
	if !purged {
		log.Printf("[info] template %s marked deleted", id)
		return false, 0, nil
	}

	// The template record is gone, so no materialization can add instances
	// for it after this sweep.
	removed, err = s.taskRepo.DeleteByTemplate(ctx, id)
	if err != nil {
		return true, 0, err
	}
	log.Printf("[info] template %s purged with %d task(s)", id, removed)
	return true, removed, nil
}

func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*model.RecurringTemplate, error) {
	template, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTemplateNotFound, id)
	}
	return template, nil
}

// List returns templates that are not deleted, optionally narrowed to one status.
func (s *TemplateService) List(ctx context.Context, status model.TemplateStatus) ([]model.RecurringTemplate, error) {
	templates, err := s.templateRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.RecurringTemplate
	for _, t := range templates {
		if t.IsDeleted {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Active returns the templates that currently generate instances.
func (s *TemplateService) Active(ctx context.Context) ([]model.RecurringTemplate, error) {
	return s.List(ctx, model.TemplateActive)
}

func (s *TemplateService) materialize(ctx context.Context, now time.Time) {
	if s.recurrence == nil {
		return
	}
	if _, err := s.recurrence.Materialize(ctx, now); err != nil {
		log.Printf("[warn] materialize after template change: %v", err)
	}
}

func applyTemplateInput(t *model.RecurringTemplate, input TemplateInput, now time.Time) error {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return fmt.Errorf("subject is required")
	}
	if input.Schedule == nil {
		return fmt.Errorf("schedule is required: %w", model.ErrInvalidSchedule)
	}
	if err := input.Schedule.Validate(); err != nil {
		return err
	}

	status := input.Status
	switch status {
	case "":
		status = model.TemplateActive
	case model.TemplateActive, model.TemplateInactive:
	default:
		return fmt.Errorf("unknown template status %q", status)
	}

	assignee := strings.TrimSpace(input.Assignee)
	if assignee == "" {
		assignee = DefaultAssignee
	}

	t.Subject = subject
	t.Details = strings.TrimSpace(input.Details)
	t.Assignee = assignee
	t.Labels = cleanLabels(input.Labels)
	t.URL = strings.TrimSpace(input.URL)
	t.Schedule = input.Schedule
	t.Status = status
	t.UpdatedAt = model.Timestamp(now)
	return nil
}
