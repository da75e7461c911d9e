package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

// TemplateRepository handles the recurring template document.
type TemplateRepository struct {
	blobs *BlobRepository
}

func NewTemplateRepository(blobs *BlobRepository) *TemplateRepository {
	return &TemplateRepository{blobs: blobs}
}

func (r *TemplateRepository) List(ctx context.Context) ([]model.RecurringTemplate, error) {
	templates, err := loadList[model.RecurringTemplate](ctx, r.blobs, KeyTemplates)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*model.RecurringTemplate, error) {
	templates, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range templates {
		if templates[i].ID == id {
			return &templates[i], nil
		}
	}
	return nil, fmt.Errorf("template %s: %w", id, gorm.ErrRecordNotFound)
}

func (r *TemplateRepository) Create(ctx context.Context, template model.RecurringTemplate) error {
	err := updateList(ctx, r.blobs, KeyTemplates, func(current []model.RecurringTemplate) ([]model.RecurringTemplate, error) {
		for _, t := range current {
			if t.ID == template.ID {
				return nil, fmt.Errorf("template %s already exists", template.ID)
			}
		}
		return append(current, template), nil
	})
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// Update applies fn to the stored template with the given id.
func (r *TemplateRepository) Update(ctx context.Context, id string, fn func(*model.RecurringTemplate) error) (*model.RecurringTemplate, error) {
	var updated model.RecurringTemplate
	err := updateList(ctx, r.blobs, KeyTemplates, func(current []model.RecurringTemplate) ([]model.RecurringTemplate, error) {
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
		return nil, fmt.Errorf("template %s: %w", id, gorm.ErrRecordNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Retire applies fn to the stored template and removes the record when fn
// reports drop. The decision and the write happen in one update.
func (r *TemplateRepository) Retire(ctx context.Context, id string, fn func(*model.RecurringTemplate) (bool, error)) (*model.RecurringTemplate, bool, error) {
	var (
		retired model.RecurringTemplate
		dropped bool
	)
	err := updateList(ctx, r.blobs, KeyTemplates, func(current []model.RecurringTemplate) ([]model.RecurringTemplate, error) {
		for i := range current {
			if current[i].ID != id {
				continue
			}
			drop, err := fn(&current[i])
			if err != nil {
				return nil, err
			}
			retired, dropped = current[i], drop
			if drop {
				return append(current[:i], current[i+1:]...), nil
			}
			return current, nil
		}
		return nil, fmt.Errorf("template %s: %w", id, gorm.ErrRecordNotFound)
	})
	if err != nil {
		return nil, false, err
	}
	return &retired, dropped, nil
}

// Delete removes the template record itself.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	removed := false
	err := updateList(ctx, r.blobs, KeyTemplates, func(current []model.RecurringTemplate) ([]model.RecurringTemplate, error) {
		kept := current[:0]
		for _, t := range current {
			if t.ID == id {
				removed = true
				continue
			}
			kept = append(kept, t)
		}
		return kept, nil
	})
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if !removed {
		return fmt.Errorf("template %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// Merge adds templates whose ids are not stored yet.
func (r *TemplateRepository) Merge(ctx context.Context, templates []model.RecurringTemplate) (int, error) {
	added := 0
	err := updateList(ctx, r.blobs, KeyTemplates, func(current []model.RecurringTemplate) ([]model.RecurringTemplate, error) {
		known := make(map[string]bool, len(current))
		for _, t := range current {
			known[t.ID] = true
		}
		for _, t := range templates {
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
		return 0, fmt.Errorf("merge templates: %w", err)
	}
	return added, nil
}
