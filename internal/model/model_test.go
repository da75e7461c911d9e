package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestScheduleWireFormat(t *testing.T) {
	tests := []struct {
		schedule Schedule
		want     string
	}{
		{Weekly{WeekDays: []int{1, 3}}, `{"type":"weekly","weekDays":[1,3]}`},
		{Monthly{MonthDays: []int{30}}, `{"type":"monthly","monthDays":[30]}`},
		{Yearly{YearDates: []YearDate{{Month: 0, Day: 1}}}, `{"type":"yearly","yearDates":[{"month":0,"day":1}]}`},
		{nil, `null`},
	}
	for _, tt := range tests {
		data, err := MarshalSchedule(tt.schedule)
		if err != nil {
			t.Fatalf("MarshalSchedule(%#v): %v", tt.schedule, err)
		}
		if string(data) != tt.want {
			t.Fatalf("MarshalSchedule(%#v) = %s, want %s", tt.schedule, data, tt.want)
		}
		back, err := UnmarshalSchedule(data)
		if err != nil {
			t.Fatalf("UnmarshalSchedule(%s): %v", data, err)
		}
		if !reflect.DeepEqual(back, tt.schedule) {
			t.Fatalf("UnmarshalSchedule(%s) = %#v", data, back)
		}
	}

	if _, err := UnmarshalSchedule([]byte(`{"type":"daily"}`)); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("unknown type err = %v", err)
	}
}

func TestYearDateCalendarMonth(t *testing.T) {
	if got := (YearDate{Month: 0, Day: 1}).CalendarMonth(); got != time.January {
		t.Fatalf("month 0 = %s", got)
	}
	if got := (YearDate{Month: 11, Day: 25}).CalendarMonth(); got != time.December {
		t.Fatalf("month 11 = %s", got)
	}
}

func TestTemplateJSONKeepsUnknownScheduleListable(t *testing.T) {
	data := `[
		{"id":"a","subject":"Ok","assignee":"Self","labels":["General"],"status":"active","schedule":{"type":"weekly","weekDays":[2]}},
		{"id":"b","subject":"Broken","assignee":"Self","labels":[],"status":"active","schedule":{"type":"hourly"}}
	]`
	var templates []RecurringTemplate
	if err := json.Unmarshal([]byte(data), &templates); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(templates))
	}
	if _, ok := templates[0].Schedule.(Weekly); !ok {
		t.Fatalf("schedule not decoded: %#v", templates[0].Schedule)
	}
	if templates[1].Schedule != nil || templates[1].Subject != "Broken" {
		t.Fatalf("broken schedule should decode to nil: %+v", templates[1])
	}

	out, err := json.Marshal(templates[0])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), `"schedule":{"type":"weekly","weekDays":[2]}`) {
		t.Fatalf("schedule missing from %s", out)
	}
	if strings.Contains(string(out), "isDeleted") {
		t.Fatalf("isDeleted should be omitted when false: %s", out)
	}
}

func TestTaskStatusNext(t *testing.T) {
	if StatusAssigned.Next() != StatusInProgress || StatusInProgress.Next() != StatusClosed || StatusClosed.Next() != StatusClosed {
		t.Fatal("unexpected status progression")
	}
}

func TestTaskReminderAt(t *testing.T) {
	task := Task{DueDate: "2026-10-19", ReminderTime: "13:50"}
	at, ok := task.ReminderAt(time.UTC)
	if !ok || !at.Equal(time.Date(2026, time.October, 19, 13, 50, 0, 0, time.UTC)) {
		t.Fatalf("ReminderAt = %s ok=%v", at, ok)
	}
	if _, ok := (Task{DueDate: "2026-10-19"}).ReminderAt(time.UTC); ok {
		t.Fatal("task without reminder time reported one")
	}
	if _, ok := (Task{DueDate: "soon", ReminderTime: "10:00"}).ReminderAt(time.UTC); ok {
		t.Fatal("malformed date accepted")
	}
}

func TestMigrateLegacy(t *testing.T) {
	tasks := []Task{
		{ID: "carrier", Subject: "Stand-up", Labels: []string{"Work"}, Recurrence: json.RawMessage(`{"type":"weekly","weekDays":[1]}`)},
		{ID: "paused", Subject: "Paused", Recurrence: json.RawMessage(`{"type":"monthly","monthDays":[5]}`), TemplateStatus: TemplateInactive},
		{ID: "broken", Subject: "Broken", Recurrence: json.RawMessage(`{"type":"hourly"}`)},
		{ID: "carrier-recur-2026-10-19", RecurrenceTemplateID: "carrier"},
		{ID: "plain", Recurrence: json.RawMessage(`null`)},
	}

	kept, templates := MigrateLegacy(tasks)

	if len(templates) != 2 || templates[0].ID != "carrier" || templates[1].ID != "paused" {
		t.Fatalf("unexpected templates %+v", templates)
	}
	if templates[0].Status != TemplateActive || templates[1].Status != TemplateInactive {
		t.Fatalf("statuses = %q/%q", templates[0].Status, templates[1].Status)
	}
	if len(kept) != 3 || kept[0].ID != "broken" || kept[1].ID != "carrier-recur-2026-10-19" || kept[2].ID != "plain" {
		t.Fatalf("unexpected kept tasks %+v", kept)
	}
	if kept[0].Recurrence != nil {
		t.Fatalf("undecodable recurrence should be cleared, task kept: %+v", kept[0])
	}
	if kept[1].RecurringTemplateID != "carrier" || kept[1].RecurrenceTemplateID != "" {
		t.Fatalf("back-reference not moved: %+v", kept[1])
	}
	if kept[2].Recurrence != nil {
		t.Fatalf("null recurrence not cleared: %+v", kept[2])
	}
}
