package recurrence

import (
	"fmt"
	"testing"
	"time"

	"taskflow/internal/model"
)

func template(id string, schedule model.Schedule) model.RecurringTemplate {
	return model.RecurringTemplate{
		ID:       id,
		Subject:  "Water plants",
		Details:  "balcony first",
		Assignee: "Self",
		Labels:   []string{"Home"},
		URL:      "https://example.com/plants",
		Schedule: schedule,
		Status:   model.TemplateActive,
	}
}

func instance(templateID, due string) model.Task {
	return model.Task{
		ID:                  InstanceID(templateID, due),
		DueDate:             due,
		Status:              model.StatusAssigned,
		RecurringTemplateID: templateID,
	}
}

func dueDates(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.DueDate)
	}
	return out
}

func assertDueDates(t *testing.T, tasks []model.Task, want ...string) {
	t.Helper()
	got := dueDates(tasks)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("due dates = %v, want %v", got, want)
	}
}

func TestMaterializeCopiesTemplateFields(t *testing.T) {
	m := NewMaterializer(DefaultOptions())
	now := testToday.Add(9 * time.Hour)
	tpl := template("tpl-1", model.Weekly{WeekDays: []int{1}})

	res := m.Run([]model.RecurringTemplate{tpl}, nil, now)
	if len(res.Tasks) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(res.Tasks))
	}
	got := res.Tasks[0]
	if got.ID != "tpl-1-recur-2026-10-19" {
		t.Fatalf("unexpected id %q", got.ID)
	}
	if got.Subject != tpl.Subject || got.Details != tpl.Details || got.Assignee != tpl.Assignee || got.URL != tpl.URL {
		t.Fatalf("template fields not copied: %+v", got)
	}
	if got.Status != model.StatusAssigned {
		t.Fatalf("status = %q, want assigned", got.Status)
	}
	if got.RecurringTemplateID != tpl.ID {
		t.Fatalf("back-reference = %q", got.RecurringTemplateID)
	}
	if got.Recurrence != nil || got.TemplateStatus != "" {
		t.Fatalf("schedule or template status leaked into instance: %+v", got)
	}
	if got.CreatedAt != model.Timestamp(now) || got.UpdatedAt != got.CreatedAt {
		t.Fatalf("timestamps = %q/%q", got.CreatedAt, got.UpdatedAt)
	}

	got.Labels[0] = "changed"
	if tpl.Labels[0] != "Home" {
		t.Fatal("instance labels share backing array with template")
	}
}

func TestMaterializeLookaheadBoundary(t *testing.T) {
	m := NewMaterializer(DefaultOptions())

	// Friday 2026-10-23 is today+5, Saturday 2026-10-24 is today+6.
	res := m.Run([]model.RecurringTemplate{template("fri", model.Weekly{WeekDays: []int{5}})}, nil, testToday)
	assertDueDates(t, res.Tasks, "2026-10-23")

	res = m.Run([]model.RecurringTemplate{template("sat", model.Weekly{WeekDays: []int{6}})}, nil, testToday)
	assertDueDates(t, res.Tasks)
}

func TestMaterializeCapsPerRun(t *testing.T) {
	m := NewMaterializer(DefaultOptions())
	daily := template("daily", model.Weekly{WeekDays: []int{0, 1, 2, 3, 4, 5, 6}})

	res := m.Run([]model.RecurringTemplate{daily}, nil, testToday)
	assertDueDates(t, res.Tasks, "2026-10-19", "2026-10-20", "2026-10-21")
}

func TestMaterializeIsIdempotent(t *testing.T) {
	m := NewMaterializer(DefaultOptions())
	templates := []model.RecurringTemplate{
		template("mon-wed", model.Weekly{WeekDays: []int{1, 3}}),
		template("monthly", model.Monthly{MonthDays: []int{20, 22}}),
	}

	first := m.Run(templates, nil, testToday)
	assertDueDates(t, first.Tasks, "2026-10-19", "2026-10-21", "2026-10-20", "2026-10-22")

	second := m.Run(templates, first.Tasks, testToday)
	if len(second.Tasks) != 0 {
		t.Fatalf("second run produced %v", dueDates(second.Tasks))
	}
}

func TestMaterializeConvergesWithoutDuplicates(t *testing.T) {
	m := NewMaterializer(DefaultOptions())
	daily := []model.RecurringTemplate{template("daily", model.Weekly{WeekDays: []int{0, 1, 2, 3, 4, 5, 6}})}

	var tasks []model.Task
	for i := 0; i < 5; i++ {
		tasks = append(tasks, m.Run(daily, tasks, testToday).Tasks...)
	}

	assertDueDates(t, tasks, "2026-10-19", "2026-10-20", "2026-10-21", "2026-10-22", "2026-10-23")
	if res := m.Run(daily, tasks, testToday); len(res.Tasks) != 0 {
		t.Fatalf("window already full, got %v", dueDates(res.Tasks))
	}
}

func TestMaterializeStartsAfterLatestInstance(t *testing.T) {
	m := NewMaterializer(DefaultOptions())
	tpl := template("mwf", model.Weekly{WeekDays: []int{1, 3, 5}})

	existing := []model.Task{instance("mwf", "2026-10-21")}
	res := m.Run([]model.RecurringTemplate{tpl}, existing, testToday)
	assertDueDates(t, res.Tasks, "2026-10-23")
}

func TestMaterializeIgnoresPastInstancesForBaseline(t *testing.T) {
	m := NewMaterializer(DefaultOptions())
	tpl := template("mwf", model.Weekly{WeekDays: []int{1, 3, 5}})

	existing := []model.Task{instance("mwf", "2026-10-02"), instance("other", "2026-10-30")}
	res := m.Run([]model.RecurringTemplate{tpl}, existing, testToday)
	assertDueDates(t, res.Tasks, "2026-10-19", "2026-10-21", "2026-10-23")
}

func TestMaterializeRunawayGuard(t *testing.T) {
	m := NewMaterializer(DefaultOptions())
	tpl := template("busy", model.Weekly{WeekDays: []int{1}})

	var existing []model.Task
	for i := 0; i < 51; i++ {
		existing = append(existing, instance("busy", day(2025, time.January, 1).AddDate(0, 0, i*7).Format(model.DateLayout)))
	}

	res := m.Run([]model.RecurringTemplate{tpl}, existing, testToday)
	if len(res.Tasks) != 0 {
		t.Fatalf("expected no instances, got %v", dueDates(res.Tasks))
	}
	if len(res.Warnings) != 1 || res.Warnings[0].TemplateID != "busy" || res.Warnings[0].Instances != 51 {
		t.Fatalf("unexpected warnings %+v", res.Warnings)
	}

	res = m.Run([]model.RecurringTemplate{tpl}, existing[:50], testToday)
	if len(res.Tasks) != 1 || len(res.Warnings) != 0 {
		t.Fatalf("50 instances should still materialize: tasks=%v warnings=%+v", dueDates(res.Tasks), res.Warnings)
	}
}

func TestMaterializeSkipsInactiveDeletedAndMalformed(t *testing.T) {
	m := NewMaterializer(DefaultOptions())

	inactive := template("inactive", model.Weekly{WeekDays: []int{1}})
	inactive.Status = model.TemplateInactive
	deleted := template("deleted", model.Weekly{WeekDays: []int{1}})
	deleted.IsDeleted = true
	empty := template("empty", model.Monthly{})
	missing := template("missing", nil)

	res := m.Run([]model.RecurringTemplate{inactive, deleted, empty, missing}, nil, testToday)
	if len(res.Tasks) != 0 || len(res.Warnings) != 0 {
		t.Fatalf("expected silent no-op, got tasks=%v warnings=%+v", dueDates(res.Tasks), res.Warnings)
	}
}

func TestMaterializeNoTemplates(t *testing.T) {
	res := NewMaterializer(DefaultOptions()).Run(nil, []model.Task{instance("x", "2026-10-19")}, testToday)
	if len(res.Tasks) != 0 || len(res.Warnings) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestMaterializeLegacyBackReference(t *testing.T) {
	m := NewMaterializer(DefaultOptions())
	tpl := template("legacy", model.Weekly{WeekDays: []int{1}})
	existing := []model.Task{{ID: "old", DueDate: "2026-10-19", RecurrenceTemplateID: "legacy"}}

	res := m.Run([]model.RecurringTemplate{tpl}, existing, testToday)
	if len(res.Tasks) != 0 {
		t.Fatalf("legacy-linked instance should count as existing, got %v", dueDates(res.Tasks))
	}
}

// February days past the 28th are clamped at materialization time, including
// leap years. This is a deliberate simplification rather than a leap-year-aware
// calendar: the occurrence calculator itself rejects February 30 outright.
func TestMaterializeClampsFebruary(t *testing.T) {
	m := NewMaterializer(DefaultOptions())

	today := day(2027, time.February, 25)
	if got, _ := NextOccurrence(model.Monthly{MonthDays: []int{30}}, today, today); !got.Equal(day(2027, time.March, 30)) {
		t.Fatalf("calculator should skip February, got %s", got.Format(model.DateLayout))
	}

	res := m.Run([]model.RecurringTemplate{template("m30", model.Monthly{MonthDays: []int{30}})}, nil, today)
	assertDueDates(t, res.Tasks, "2027-02-28")

	res = m.Run([]model.RecurringTemplate{template("y30", model.Yearly{YearDates: []model.YearDate{{Month: 1, Day: 30}}})}, nil, today)
	assertDueDates(t, res.Tasks, "2027-02-28")

	leapToday := day(2028, time.February, 26)
	res = m.Run([]model.RecurringTemplate{template("m29", model.Monthly{MonthDays: []int{29}})}, nil, leapToday)
	assertDueDates(t, res.Tasks, "2028-02-28")

	res = m.Run([]model.RecurringTemplate{template("m2930", model.Monthly{MonthDays: []int{29, 30, 1}})}, nil, leapToday)
	assertDueDates(t, res.Tasks, "2028-02-28", "2028-03-01")
}

func TestNextDueAfterClampedDateMovesOn(t *testing.T) {
	today := day(2028, time.February, 26)
	got, ok := NextDue(model.Monthly{MonthDays: []int{29}}, day(2028, time.February, 28), today)
	if !ok || !got.Equal(day(2028, time.March, 29)) {
		t.Fatalf("got %s ok=%v, want 2028-03-29", got.Format(model.DateLayout), ok)
	}
}
