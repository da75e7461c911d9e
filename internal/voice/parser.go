package voice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"taskflow/internal/model"
)

// DefaultDueTime is used when a due date was recognised but no time was spoken.
const DefaultDueTime = "10:00"

// FullDayReminder is the reminder time for full-day tasks.
const FullDayReminder = "10:00"

const reminderLead = 10 * time.Minute

// Fields is the partial task extracted from a transcript. Empty strings mean
// the corresponding phrase was not found.
type Fields struct {
	Subject      string `json:"subject,omitempty"`
	Assignee     string `json:"assignee,omitempty"`
	DueDate      string `json:"dueDate,omitempty"`
	DueTime      string `json:"dueTime,omitempty"`
	ReminderTime string `json:"reminderTime,omitempty"`
	IsFullDay    bool   `json:"isFullDay"`
}

const monthNames = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	assigneeRe      = regexp.MustCompile(`assign(?:\s+this)?\s+task\s+to\s+(.*?)(?:\.|$|\s+(?:due|and|at)\b)`)
	relMinutesRe    = regexp.MustCompile(`\bin\s+(?:next\s+)?(\d+)\s+minutes?\b`)
	relHoursRe      = regexp.MustCompile(`\bin\s+(?:next\s+)?(\d+)\s+hours?\b`)
	relDaysRe       = regexp.MustCompile(`\bin\s+(?:next\s+)?(\d+)\s+days?\b`)
	onDateRe        = regexp.MustCompile(`\bon\s+(` + monthNames + `)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	timePhraseRe    = regexp.MustCompile(`(?:\bdue\s+time(?:\s+(?:will\s+be|is))?|\bat)\s+(.*?)(?:\.|$|\s+(?:and|assign)\b)`)
	timeTokenRe     = regexp.MustCompile(`(\d{1,2})(?:[:.]?(\d{2}))?\s*(am|pm)?`)
	subjectRe       = regexp.MustCompile(`(?:create a task as|task as|subject is|call it|task is|remind me to)\s+(.*?)(?:\.|$|\s+(?:due|and|assign|at|tomorrow|today|in|on)\b)`)
	nestedSubjectRe = regexp.MustCompile(`(?:create a task as|task as|subject is|call it|task is)\s+(.*)`)
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// Parse extracts task fields from a transcript. Rules run in a fixed order:
// assignee, full-day flag, due date (with time for minute/hour offsets), due
// time, subject and finally the reminder. now supplies "today" and the base
// for relative offsets.
func Parse(transcript string, now time.Time) Fields {
	text := strings.ToLower(strings.TrimSpace(transcript))
	var f Fields

	if m := assigneeRe.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			f.Assignee = cases.Title(language.Und).String(name)
		}
	}

	if strings.Contains(text, "full day task") {
		f.IsFullDay = true
	}

	parseDue(text, now, &f)

	if f.DueTime == "" && !f.IsFullDay {
		if m := timePhraseRe.FindStringSubmatch(text); m != nil {
			f.DueTime, _ = ParseClock(strings.TrimSpace(m[1]))
		}
		if f.DueTime == "" && f.DueDate != "" {
			f.DueTime = DefaultDueTime
		}
	}

	if m := subjectRe.FindStringSubmatch(text); m != nil {
		subject := strings.TrimSpace(m[1])
		if nested := nestedSubjectRe.FindStringSubmatch(subject); nested != nil {
			subject = strings.TrimSpace(nested[1])
		}
		f.Subject = capitalizeFirst(subject)
	}

	switch {
	case f.IsFullDay:
		f.ReminderTime = FullDayReminder
	case f.DueTime != "":
		if reminder, err := ReminderBefore(f.DueTime, reminderLead); err == nil {
			f.ReminderTime = reminder
		}
	}

	return f
}

func parseDue(text string, now time.Time, f *Fields) {
	if n, ok := matchCount(relMinutesRe, text); ok {
		due := now.Add(time.Duration(n) * time.Minute)
		f.DueDate, f.DueTime = model.FormatDate(due), due.Format(model.TimeLayout)
		return
	}
	if n, ok := matchCount(relHoursRe, text); ok {
		due := now.Add(time.Duration(n) * time.Hour)
		f.DueDate, f.DueTime = model.FormatDate(due), due.Format(model.TimeLayout)
		return
	}

	today := model.StartOfDay(now)
	switch {
	case strings.Contains(text, "tomorrow"):
		f.DueDate = model.FormatDate(today.AddDate(0, 0, 1))
		return
	case strings.Contains(text, "today"):
		f.DueDate = model.FormatDate(today)
		return
	}

	if n, ok := matchCount(relDaysRe, text); ok {
		f.DueDate = model.FormatDate(today.AddDate(0, 0, n))
		return
	}

	if m := onDateRe.FindStringSubmatch(text); m != nil {
		month := months[m[1]]
		d, err := strconv.Atoi(m[2])
		if err != nil {
			return
		}
		due := time.Date(today.Year(), month, d, 0, 0, 0, 0, today.Location())
		if due.Day() != d {
			return
		}
		if due.Before(today) {
			due = time.Date(today.Year()+1, month, d, 0, 0, 0, 0, today.Location())
		}
		f.DueDate = model.FormatDate(due)
	}
}

func matchCount(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseClock reads "H", "H:MM" or "H.MM" with an optional am/pm suffix
// and returns 24-hour HH:MM.
func ParseClock(raw string) (string, error) {
	m := timeTokenRe.FindStringSubmatch(strings.ToLower(raw))
	if m == nil {
		return "", fmt.Errorf("no time in %q", raw)
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return "", fmt.Errorf("parse hours %q: %w", m[1], err)
	}
	minutes := 0
	if m[2] != "" {
		if minutes, err = strconv.Atoi(m[2]); err != nil {
			return "", fmt.Errorf("parse minutes %q: %w", m[2], err)
		}
	}
	switch m[3] {
	case "pm":
		if hours < 12 {
			hours += 12
		}
	case "am":
		if hours == 12 {
			hours = 0
		}
	}
	if hours > 23 || minutes > 59 {
		return "", fmt.Errorf("time %q out of range", raw)
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes), nil
}

// ReminderBefore subtracts lead from an HH:MM clock time, wrapping past midnight.
func ReminderBefore(clock string, lead time.Duration) (string, error) {
	t, err := time.Parse(model.TimeLayout, clock)
	if err != nil {
		return "", fmt.Errorf("parse time %q: %w", clock, err)
	}
	return t.Add(-lead).Format(model.TimeLayout), nil
}

func capitalizeFirst(value string) string {
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
