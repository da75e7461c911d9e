package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/voice"
)

const (
	DefaultAssignee = "Self"
	DefaultLabel    = "General"
)

// DateFilter narrows task listings by due date.
type DateFilter string

const (
	FilterAll        DateFilter = "all"
	FilterToday      DateFilter = "today"
	FilterTomorrow   DateFilter = "tomorrow"
	FilterNext5Days  DateFilter = "next5days"
	FilterNext30Days DateFilter = "next30days"
)

// ParseDateFilter accepts the filter names used by the bot and the CLI.
func ParseDateFilter(raw string) (DateFilter, error) {
	switch f := DateFilter(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterToday, FilterTomorrow, FilterNext5Days, FilterNext30Days:
		return f, nil
	default:
		return "", fmt.Errorf("unknown date filter %q", raw)
	}
}

// TaskInput represents data required to create a task.
type TaskInput struct {
	Subject      string
	Details      string
	Assignee     string
	DueDate      string
	DueTime      string
	ReminderTime string
	IsFullDay    bool
	Labels       []string
	URL          string
}

// ListOptions selects tasks for a listing. An empty Status means every open task.
type ListOptions struct {
	Date   DateFilter
	Status model.TaskStatus
	Search string
}

// AssigneeCount is the number of overdue tasks held by one assignee.
type AssigneeCount struct {
	Assignee string
	Count    int
}

// Dashboard summarises open tasks.
type Dashboard struct {
	Pending    int
	Today      int
	Next5Days  int
	Next30Days int
	Overdue    []AssigneeCount
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
}

func NewTaskService(taskRepo *repository.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo}
}

// CreateFromTranscript parses a spoken or typed command and stores the resulting task.
func (s *TaskService) CreateFromTranscript(ctx context.Context, transcript string, now time.Time) (*model.Task, error) {
	return s.CreateFromFields(ctx, transcript, voice.Parse(transcript, now), now)
}

// CreateFromFields stores a task built from parser output. Missing fields fall
// back to the transcript as subject, the default assignee and today's date.
func (s *TaskService) CreateFromFields(ctx context.Context, transcript string, fields voice.Fields, now time.Time) (*model.Task, error) {
	subject := fields.Subject
	if subject == "" {
		subject = strings.TrimSpace(transcript)
	}
	return s.CreateTask(ctx, TaskInput{
		Subject:      subject,
		Assignee:     fields.Assignee,
		DueDate:      fields.DueDate,
		DueTime:      fields.DueTime,
		ReminderTime: fields.ReminderTime,
		IsFullDay:    fields.IsFullDay,
	}, now)
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput, now time.Time) (*model.Task, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	task := model.Task{
		ID:           uuid.NewString(),
		Subject:      subject,
		Details:      strings.TrimSpace(input.Details),
		Assignee:     strings.TrimSpace(input.Assignee),
		DueDate:      input.DueDate,
		DueTime:      input.DueTime,
		ReminderTime: input.ReminderTime,
		Status:       model.StatusAssigned,
		Labels:       cleanLabels(input.Labels),
		IsFullDay:    input.IsFullDay,
		URL:          strings.TrimSpace(input.URL),
		CreatedAt:    model.Timestamp(now),
	}
	task.UpdatedAt = task.CreatedAt

	if task.Assignee == "" {
		task.Assignee = DefaultAssignee
	}
	if task.DueDate == "" {
		task.DueDate = model.FormatDate(now)
	}
	if _, err := model.ParseDate(task.DueDate, now.Location()); err != nil {
		return nil, err
	}
	if task.IsFullDay {
		task.DueTime = ""
	}
	for _, clock := range []string{task.DueTime, task.ReminderTime} {
		if clock == "" {
			continue
		}
		if _, err := time.Parse(model.TimeLayout, clock); err != nil {
			return nil, fmt.Errorf("invalid time %q, expected HH:MM", clock)
		}
	}
	if task.ReminderTime == "" {
		switch {
		case task.IsFullDay:
			task.ReminderTime = voice.FullDayReminder
		case task.DueTime != "":
			task.ReminderTime, _ = voice.ReminderBefore(task.DueTime, 10*time.Minute)
		}
	}

	if _, err := s.taskRepo.Append(ctx, task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound, id)
	}
	return task, nil
}

// Advance moves a task one step along assigned, in-progress, closed.
func (s *TaskService) Advance(ctx context.Context, id string, now time.Time) (*model.Task, error) {
	task, err := s.taskRepo.Update(ctx, id, func(task *model.Task) error {
		task.Status = task.Status.Next()
		task.UpdatedAt = model.Timestamp(now)
		return nil
	})
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound, id)
	}
	return task, nil
}

// DeleteTask removes a task completely.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return notFound(err, ErrTaskNotFound, id)
	}
	return nil
}

// List returns tasks matching opts ordered by due date and time.
func (s *TaskService) List(ctx context.Context, opts ListOptions, now time.Time) ([]model.Task, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	today := model.StartOfDay(now)
	query := strings.ToLower(strings.TrimSpace(opts.Search))

	var out []model.Task
	for _, task := range tasks {
		if opts.Status == "" {
			if task.Status == model.StatusClosed {
				continue
			}
		} else if task.Status != opts.Status {
			continue
		}
		if query != "" && !matchesSearch(task, query) {
			continue
		}
		if opts.Status != model.StatusClosed && !inDateFilter(task, opts.Date, today) {
			continue
		}
		out = append(out, task)
	}

	sortByDue(out)
	return out, nil
}

// Dashboard counts open tasks by due window and overdue tasks by assignee.
func (s *TaskService) Dashboard(ctx context.Context, now time.Time) (Dashboard, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	today := model.StartOfDay(now)
	var d Dashboard
	overdue := make(map[string]int)

	for _, task := range tasks {
		if task.Status == model.StatusClosed {
			continue
		}
		d.Pending++
		if inDateFilter(task, FilterToday, today) {
			d.Today++
		}
		if inDateFilter(task, FilterNext5Days, today) {
			d.Next5Days++
		}
		if inDateFilter(task, FilterNext30Days, today) {
			d.Next30Days++
		}
		if isOverdue(task, today) {
			assignee := task.Assignee
			if assignee == "" {
				assignee = "Unassigned"
			}
			overdue[assignee]++
		}
	}

	for assignee, count := range overdue {
		d.Overdue = append(d.Overdue, AssigneeCount{Assignee: assignee, Count: count})
	}
	sort.Slice(d.Overdue, func(i, j int) bool {
		if d.Overdue[i].Count != d.Overdue[j].Count {
			return d.Overdue[i].Count > d.Overdue[j].Count
		}
		return d.Overdue[i].Assignee < d.Overdue[j].Assignee
	})
	return d, nil
}

func inDateFilter(task model.Task, filter DateFilter, today time.Time) bool {
	if filter == "" || filter == FilterAll {
		return true
	}
	due, err := task.Due(today.Location())
	if err != nil {
		return false
	}
	switch filter {
	case FilterToday:
		return due.Equal(today)
	case FilterTomorrow:
		return due.Equal(today.AddDate(0, 0, 1))
	case FilterNext5Days:
		return !due.Before(today) && !due.After(today.AddDate(0, 0, 4))
	case FilterNext30Days:
		return !due.Before(today) && !due.After(today.AddDate(0, 0, 29))
	}
	return false
}

func isOverdue(task model.Task, today time.Time) bool {
	if task.Status == model.StatusClosed {
		return false
	}
	due, err := task.Due(today.Location())
	return err == nil && due.Before(today)
}

func matchesSearch(task model.Task, query string) bool {
	if strings.Contains(strings.ToLower(task.Subject), query) ||
		strings.Contains(strings.ToLower(task.Assignee), query) ||
		strings.Contains(strings.ToLower(task.Details), query) {
		return true
	}
	for _, label := range task.Labels {
		if strings.Contains(strings.ToLower(label), query) {
			return true
		}
	}
	return false
}

func sortByDue(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].DueDate != tasks[j].DueDate {
			return tasks[i].DueDate < tasks[j].DueDate
		}
		return tasks[i].DueTime < tasks[j].DueTime
	})
}

func cleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	if len(out) == 0 {
		out = append(out, DefaultLabel)
	}
	return out
}
