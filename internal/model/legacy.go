package model

import "log"

// MigrateLegacy folds tasks that embed their own recurrence into standalone templates.
// The embedded task keeps its id as the template id, so instances linked through
// recurrenceTemplateId are re-pointed at recurringTemplateId without renaming.
func MigrateLegacy(tasks []Task) ([]Task, []RecurringTemplate) {
	var templates []RecurringTemplate
	kept := make([]Task, 0, len(tasks))

	for _, task := range tasks {
		if len(task.Recurrence) > 0 && string(task.Recurrence) != "null" {
			schedule, err := UnmarshalSchedule(task.Recurrence)
			if err != nil {
				log.Printf("[warn] legacy recurrence on task %s dropped: %v", task.ID, err)
				kept = append(kept, clearLegacy(task))
				continue
			}
			status := task.TemplateStatus
			if status == "" {
				status = TemplateActive
			}
			templates = append(templates, RecurringTemplate{
				ID:        task.ID,
				Subject:   task.Subject,
				Details:   task.Details,
				Assignee:  task.Assignee,
				Labels:    task.Labels,
				URL:       task.URL,
				Schedule:  schedule,
				Status:    status,
				CreatedAt: task.CreatedAt,
				UpdatedAt: task.UpdatedAt,
			})
			continue
		}

		kept = append(kept, clearLegacy(task))
	}

	return kept, templates
}

func clearLegacy(task Task) Task {
	if task.RecurringTemplateID == "" && task.RecurrenceTemplateID != "" {
		task.RecurringTemplateID = task.RecurrenceTemplateID
	}
	task.RecurrenceTemplateID = ""
	task.TemplateStatus = ""
	task.Recurrence = nil
	return task
}
