package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/recurrence"
	"taskflow/internal/repository"
)

// ReminderService finds tasks whose reminder is due and builds the periodic report.
type ReminderService struct {
	taskRepo     *repository.TaskRepository
	templateRepo *repository.TemplateRepository

	mu        sync.Mutex
	lastCheck time.Time
	lookback  time.Duration
	snoozed   map[string]time.Time
}

// NewReminderService creates the service. lookback bounds how far back the
// first check after startup looks for missed reminders.
func NewReminderService(taskRepo *repository.TaskRepository, templateRepo *repository.TemplateRepository, lookback time.Duration) *ReminderService {
	return &ReminderService{
		taskRepo:     taskRepo,
		templateRepo: templateRepo,
		lookback:     lookback,
		snoozed:      make(map[string]time.Time),
	}
}

// DueReminders returns open tasks whose reminder moment falls in
// (previous check, now]. Each reminder is returned once.
func (s *ReminderService) DueReminders(ctx context.Context, now time.Time) ([]model.Task, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	since := s.lastCheck
	if since.IsZero() {
		since = now.Add(-s.lookback)
	}
	if !now.After(since) {
		return nil, nil
	}

	var due []model.Task
	for _, task := range tasks {
		if task.Status == model.StatusClosed {
			delete(s.snoozed, task.ID)
			continue
		}

		if until, ok := s.snoozed[task.ID]; ok {
			if until.After(since) && !until.After(now) {
				due = append(due, task)
				delete(s.snoozed, task.ID)
			}
			continue
		}

		at, ok := task.ReminderAt(now.Location())
		if ok && at.After(since) && !at.After(now) {
			due = append(due, task)
		}
	}

	s.lastCheck = now
	sortByDue(due)
	return due, nil
}

// Snooze postpones the reminder of a task by the given number of minutes.
func (s *ReminderService) Snooze(ctx context.Context, taskID string, minutes int, now time.Time) (time.Time, error) {
	if minutes <= 0 {
		return time.Time{}, fmt.Errorf("snooze minutes must be positive")
	}
	if _, err := s.taskRepo.FindByID(ctx, taskID); err != nil {
		return time.Time{}, notFound(err, ErrTaskNotFound, taskID)
	}

	until := now.Add(time.Duration(minutes) * time.Minute)
	s.mu.Lock()
	s.snoozed[taskID] = until
	s.mu.Unlock()
	return until, nil
}

// DailyReport renders overdue, today's and upcoming open tasks plus the next
// occurrence of every active template as Telegram HTML.
func (s *ReminderService) DailyReport(ctx context.Context, now time.Time) (string, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return "", err
	}
	templates, err := s.templateRepo.List(ctx)
	if err != nil {
		return "", err
	}

	today := model.StartOfDay(now)
	var overdue, dueToday, upcoming []model.Task
	for _, task := range tasks {
		if task.Status == model.StatusClosed {
			continue
		}
		switch {
		case isOverdue(task, today):
			overdue = append(overdue, task)
		case inDateFilter(task, FilterToday, today):
			dueToday = append(dueToday, task)
		case inDateFilter(task, FilterNext5Days, today):
			upcoming = append(upcoming, task)
		}
	}
	sortByDue(overdue)
	sortByDue(dueToday)
	sortByDue(upcoming)

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", today.Format("Mon, 02 Jan 2006")))

	writeSection(&builder, "⚠️ <b>Overdue</b>", "no overdue tasks", overdue, today)
	writeSection(&builder, "🔥 <b>Today</b>", "nothing due today", dueToday, today)
	writeSection(&builder, "⏳ <b>Next days</b>", "nothing scheduled", upcoming, today)

	builder.WriteString("\n♻️ <b>Recurring</b>\n")
	lines := recurringLines(templates, today)
	if len(lines) == 0 {
		builder.WriteString("— no active templates\n")
	}
	for _, line := range lines {
		builder.WriteString(line)
	}

	return strings.TrimSpace(builder.String()), nil
}

func writeSection(builder *strings.Builder, title, empty string, tasks []model.Task, today time.Time) {
	builder.WriteString("\n" + title + "\n")
	if len(tasks) == 0 {
		builder.WriteString("— " + empty + "\n")
		return
	}
	for _, task := range tasks {
		builder.WriteString(FormatTask(task, today))
	}
}

// FormatTask renders one task line for Telegram HTML messages.
func FormatTask(task model.Task, today time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case isOverdue(task, today):
		icon = "⚠️"
	case task.Status == model.StatusInProgress:
		icon = "🔵"
	case task.Status == model.StatusClosed:
		icon = "✅"
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(task.Subject)))
	if task.Assignee != "" && task.Assignee != DefaultAssignee {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(task.Assignee)))
	}

	when := task.DueDate
	if task.DueTime != "" {
		when += " " + task.DueTime
	}
	sb.WriteString(fmt.Sprintf("\n   ⏰ %s", when))
	if isOverdue(task, today) {
		sb.WriteString(" · <b>overdue</b>")
	}
	if len(task.Labels) > 0 {
		sb.WriteString(fmt.Sprintf("\n   🏷 %s", html.EscapeString(strings.Join(task.Labels, ", "))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func recurringLines(templates []model.RecurringTemplate, today time.Time) []string {
	type entry struct {
		next time.Time
		line string
	}
	var entries []entry
	for _, t := range templates {
		if !t.IsActive() || t.Schedule == nil {
			continue
		}
		next, ok := recurrence.NextDue(t.Schedule, today.AddDate(0, 0, -1), today)
		if !ok {
			continue
		}
		entries = append(entries, entry{
			next: next,
			line: fmt.Sprintf("♻️ %s\n   📆 next: %s\n", html.EscapeString(t.Subject), model.FormatDate(next)),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].next.Before(entries[j].next) })

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.line)
	}
	return lines
}
