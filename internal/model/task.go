package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04"
	TimestampLayout = time.RFC3339
)

// TaskStatus is the progress state of a task.
type TaskStatus string

const (
	StatusAssigned   TaskStatus = "assigned"
	StatusInProgress TaskStatus = "in-progress"
	StatusClosed     TaskStatus = "closed"
)

// Next returns the status a task moves to when the user acts on it.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case StatusAssigned:
		return StatusInProgress
	default:
		return StatusClosed
	}
}

// Task represents a single item in the tracker, either standalone or materialized from a template.
type Task struct {
	ID                  string     `json:"id"`
	Subject             string     `json:"subject"`
	Details             string     `json:"details,omitempty"`
	Assignee            string     `json:"assignee"`
	DueDate             string     `json:"dueDate"`
	DueTime             string     `json:"dueTime,omitempty"`
	ReminderTime        string     `json:"reminderTime,omitempty"`
	Status              TaskStatus `json:"status"`
	Labels              []string   `json:"labels"`
	IsFullDay           bool       `json:"isFullDay"`
	URL                 string     `json:"url,omitempty"`
	RecurringTemplateID string     `json:"recurringTemplateId,omitempty"`
	CreatedAt           string     `json:"createdAt,omitempty"`
	UpdatedAt           string     `json:"updatedAt,omitempty"`

	// Legacy fields: older records embedded the recurrence on the task itself.
	// MigrateLegacy folds them into RecurringTemplate records.
	Recurrence           json.RawMessage `json:"recurrence,omitempty"`
	TemplateStatus       TemplateStatus  `json:"templateStatus,omitempty"`
	RecurrenceTemplateID string          `json:"recurrenceTemplateId,omitempty"`
}

// Due parses the task due date in loc.
func (t Task) Due(loc *time.Location) (time.Time, error) {
	return ParseDate(t.DueDate, loc)
}

// ReminderAt returns the wall-clock moment the reminder fires.
func (t Task) ReminderAt(loc *time.Location) (time.Time, bool) {
	if t.ReminderTime == "" || t.DueDate == "" {
		return time.Time{}, false
	}
	at, err := time.ParseInLocation(DateLayout+" "+TimeLayout, t.DueDate+" "+t.ReminderTime, loc)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

// ParseDate parses a YYYY-MM-DD date as local midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return d, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Timestamp renders a created/updated stamp.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
