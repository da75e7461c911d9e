package recurrence

import (
	"fmt"
	"time"

	"taskflow/internal/model"
)

// Options bounds a materialization pass.
type Options struct {
	// LookaheadDays is the inclusive window past today in which instances are created.
	LookaheadDays int
	// MaxPerRun caps new instances per template in one pass.
	MaxPerRun int
	// RunawayLimit skips templates that already have more instances than this.
	RunawayLimit int
}

// DefaultOptions returns the production limits.
func DefaultOptions() Options {
	return Options{
		LookaheadDays: 5,
		MaxPerRun:     3,
		RunawayLimit:  50,
	}
}

// Warning describes a template skipped by the runaway guard.
type Warning struct {
	TemplateID string
	Subject    string
	Instances  int
}

func (w Warning) String() string {
	return fmt.Sprintf("template %q (%s) has too many instances (%d), skipped", w.Subject, w.TemplateID, w.Instances)
}

// Result is the output of one materialization pass. Tasks are new instances only.
type Result struct {
	Tasks    []model.Task
	Warnings []Warning
}

// Materializer derives task instances from active templates.
type Materializer struct {
	opts Options
}

func NewMaterializer(opts Options) *Materializer {
	defaults := DefaultOptions()
	if opts.LookaheadDays < 0 {
		opts.LookaheadDays = defaults.LookaheadDays
	}
	if opts.MaxPerRun <= 0 {
		opts.MaxPerRun = defaults.MaxPerRun
	}
	if opts.RunawayLimit <= 0 {
		opts.RunawayLimit = defaults.RunawayLimit
	}
	return &Materializer{opts: opts}
}

// Run computes the instances missing for every active template. It never
// mutates its inputs and creates at most one instance per (template, due date),
// so running it again over the merged task list yields nothing new.
func (m *Materializer) Run(templates []model.RecurringTemplate, tasks []model.Task, now time.Time) Result {
	var result Result
	today := model.StartOfDay(now)
	windowEnd := today.AddDate(0, 0, m.opts.LookaheadDays)
	stamp := model.Timestamp(now)

	instances := instancesByTemplate(tasks)

	for _, template := range templates {
		if !template.IsActive() || template.Schedule == nil {
			continue
		}

		existing := instances[template.ID]
		if len(existing) > m.opts.RunawayLimit {
			result.Warnings = append(result.Warnings, Warning{
				TemplateID: template.ID,
				Subject:    template.Subject,
				Instances:  len(existing),
			})
			continue
		}

		seen := make(map[string]bool, len(existing))
		baseline := today
		for _, task := range existing {
			seen[task.DueDate] = true
			due, err := task.Due(today.Location())
			if err != nil {
				continue
			}
			if due.After(baseline) {
				baseline = due
			}
		}

		current, ok := NextDue(template.Schedule, baseline, today)
		generated := 0
		for ok && !current.After(windowEnd) && generated < m.opts.MaxPerRun {
			key := model.FormatDate(current)
			if !seen[key] {
				result.Tasks = append(result.Tasks, newInstance(template, key, stamp))
				seen[key] = true
				generated++
			}

			next, found := NextDue(template.Schedule, current, today)
			if !found || !next.After(current) {
				break
			}
			current = next
		}
	}

	return result
}

// InstanceID is the deterministic id of the instance a template produces for a due date.
func InstanceID(templateID, dueDate string) string {
	return fmt.Sprintf("%s-recur-%s", templateID, dueDate)
}

func newInstance(template model.RecurringTemplate, dueDate, stamp string) model.Task {
	return model.Task{
		ID:                  InstanceID(template.ID, dueDate),
		Subject:             template.Subject,
		Details:             template.Details,
		Assignee:            template.Assignee,
		DueDate:             dueDate,
		Status:              model.StatusAssigned,
		Labels:              append([]string(nil), template.Labels...),
		IsFullDay:           true,
		URL:                 template.URL,
		RecurringTemplateID: template.ID,
		CreatedAt:           stamp,
		UpdatedAt:           stamp,
	}
}

func instancesByTemplate(tasks []model.Task) map[string][]model.Task {
	out := make(map[string][]model.Task)
	for _, task := range tasks {
		ref := task.RecurringTemplateID
		if ref == "" {
			ref = task.RecurrenceTemplateID
		}
		if ref == "" {
			continue
		}
		out[ref] = append(out[ref], task)
	}
	return out
}

// NextDue is NextOccurrence with the February policy applied: any February
// date past the 28th is moved to the 28th, leap years included, and monthly or
// yearly entries that do not exist in February still fire on February 28.
func NextDue(schedule model.Schedule, after, today time.Time) (time.Time, bool) {
	after = model.StartOfDay(after)
	limit := model.StartOfDay(today).AddDate(SafetyBoundYears, 0, 0)

	var best time.Time
	found := false

	from := after
	for i := 0; i < 2; i++ {
		raw, ok := NextOccurrence(schedule, from, today)
		if !ok {
			break
		}
		if clamped := clampFebruary(raw); clamped.After(after) {
			best, found = clamped, true
			break
		}
		from = raw
	}

	for _, f := range februaryFallbacks(schedule, after) {
		if !f.After(after) || f.After(limit) {
			continue
		}
		if !found || f.Before(best) {
			best, found = f, true
		}
	}

	return best, found
}

func clampFebruary(d time.Time) time.Time {
	if d.Month() == time.February && d.Day() > 28 {
		return time.Date(d.Year(), time.February, 28, 0, 0, 0, 0, d.Location())
	}
	return d
}

func februaryFallbacks(schedule model.Schedule, after time.Time) []time.Time {
	loc := after.Location()
	var out []time.Time

	switch s := schedule.(type) {
	case model.Monthly:
		if !hasDayAbove(s.MonthDays, 28, 30) {
			return nil
		}
		year, month, _ := after.Date()
		for offset := 0; offset < 2; offset++ {
			first := time.Date(year, month+time.Month(offset), 1, 0, 0, 0, 0, loc)
			if first.Month() == time.February {
				out = append(out, time.Date(first.Year(), time.February, 28, 0, 0, 0, 0, loc))
			}
		}
	case model.Yearly:
		for _, date := range s.YearDates {
			if date.CalendarMonth() != time.February || date.Day <= 28 || date.Day > 31 {
				continue
			}
			f := time.Date(after.Year(), time.February, 28, 0, 0, 0, 0, loc)
			if !f.After(after) {
				f = time.Date(after.Year()+1, time.February, 28, 0, 0, 0, 0, loc)
			}
			out = append(out, f)
		}
	}

	return out
}

func hasDayAbove(days []int, floor, ceiling int) bool {
	for _, d := range days {
		if d > floor && d <= ceiling {
			return true
		}
	}
	return false
}
