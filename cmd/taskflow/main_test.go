package main

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

// 2026-10-18 is a Sunday.
var testNow = time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)

func runCommand(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TASKFLOW_CONFIG", "")
	t.Setenv("DATABASE_URL", "")

	cmd := newRootCommandAt(func() time.Time { return testNow })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db", dbPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	out, err := runCommand(t, dbPath, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "taskflow.db")
}

func TestParseCommandPrintsFields(t *testing.T) {
	out := mustRun(t, tempDB(t), "parse", "remind", "me", "to", "call", "John", "tomorrow", "at", "2pm")
	for _, want := range []string{"Call john", "2026-10-19", "14:00", "13:50"} {
		if !strings.Contains(out, want) {
			t.Fatalf("parse output missing %q:\n%s", want, out)
		}
	}
}

func TestAddAndListTasks(t *testing.T) {
	db := tempDB(t)

	out := mustRun(t, db, "add", "remind me to pay rent today")
	if !strings.Contains(out, "Pay rent") || !strings.Contains(out, "2026-10-18 10:00") {
		t.Fatalf("unexpected add output: %s", out)
	}
	mustRun(t, db, "add", "task as renew passport on dec 1 at 12pm")

	out = mustRun(t, db, "tasks", "list", "--filter", "today")
	if !strings.Contains(out, "Pay rent") || strings.Contains(out, "Renew passport") {
		t.Fatalf("today filter output:\n%s", out)
	}

	out = mustRun(t, db, "tasks", "list", "--search", "passport")
	if !strings.Contains(out, "Renew passport") || strings.Contains(out, "Pay rent") {
		t.Fatalf("search output:\n%s", out)
	}

	out = mustRun(t, db, "tasks", "dashboard")
	if !strings.Contains(out, "Pending") || !strings.Contains(out, "No overdue tasks.") {
		t.Fatalf("dashboard output:\n%s", out)
	}
}

var createdIDRe = regexp.MustCompile(`Created (?:task|template) (\S+):`)

func createdID(t *testing.T, out string) string {
	t.Helper()
	m := createdIDRe.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no id in output: %s", out)
	}
	return m[1]
}

func TestAdvanceAndDeleteTask(t *testing.T) {
	db := tempDB(t)
	id := createdID(t, mustRun(t, db, "add", "task as stretch today"))

	if out := mustRun(t, db, "tasks", "advance", id); !strings.Contains(out, "in-progress") {
		t.Fatalf("first advance: %s", out)
	}
	if out := mustRun(t, db, "tasks", "advance", id); !strings.Contains(out, "closed") {
		t.Fatalf("second advance: %s", out)
	}
	if out := mustRun(t, db, "tasks", "list"); !strings.Contains(out, "No tasks found.") {
		t.Fatalf("closed task still listed:\n%s", out)
	}
	if out := mustRun(t, db, "tasks", "list", "--status", "closed"); !strings.Contains(out, "Stretch") {
		t.Fatalf("closed listing:\n%s", out)
	}

	mustRun(t, db, "tasks", "delete", id)
	if _, err := runCommand(t, db, "tasks", "delete", id); err == nil {
		t.Fatal("expected error deleting a missing task")
	}
}

func TestTemplateLifecycle(t *testing.T) {
	db := tempDB(t)

	out := mustRun(t, db, "templates", "add", "--subject", "Water plants", "--weekly", "mon,wed", "--labels", "Home")
	id := createdID(t, out)
	if !strings.Contains(out, "weekly on Mon, Wed") {
		t.Fatalf("unexpected add output: %s", out)
	}

	out = mustRun(t, db, "tasks", "list")
	for _, want := range []string{id + "-recur-2026-10-19", id + "-recur-2026-10-21"} {
		if !strings.Contains(out, want) {
			t.Fatalf("instance %s not materialized:\n%s", want, out)
		}
	}

	if out := mustRun(t, db, "materialize"); !strings.Contains(out, "Materialized 0 new task(s)") {
		t.Fatalf("second materialize: %s", out)
	}

	if out := mustRun(t, db, "templates", "toggle", id); !strings.Contains(out, "inactive") {
		t.Fatalf("toggle output: %s", out)
	}
	if out := mustRun(t, db, "templates", "list", "--status", "active"); !strings.Contains(out, "No recurring templates.") {
		t.Fatalf("paused template listed as active:\n%s", out)
	}

	out = mustRun(t, db, "templates", "delete", id)
	if !strings.Contains(out, "and 2 task(s)") {
		t.Fatalf("purge output: %s", out)
	}
	if out := mustRun(t, db, "tasks", "list"); !strings.Contains(out, "No tasks found.") {
		t.Fatalf("instances survived purge:\n%s", out)
	}
}

func TestTemplateEdit(t *testing.T) {
	db := tempDB(t)
	id := createdID(t, mustRun(t, db, "templates", "add", "--subject", "Gym", "--weekly", "mon", "--assignee", "Ann"))

	out := mustRun(t, db, "templates", "edit", id, "--subject", "Swimming", "--weekly", "wed")
	if !strings.Contains(out, "Updated template "+id+": Swimming, weekly on Wed") {
		t.Fatalf("unexpected edit output: %s", out)
	}

	out = mustRun(t, db, "tasks", "list", "--search", "ann")
	if !strings.Contains(out, id+"-recur-2026-10-19") || !strings.Contains(out, id+"-recur-2026-10-21") {
		t.Fatalf("assignee not kept or instance missing:\n%s", out)
	}
	if !strings.Contains(out, "Gym") || !strings.Contains(out, "Swimming") {
		t.Fatalf("expected the old instance to keep its subject:\n%s", out)
	}

	mustRun(t, db, "templates", "delete", id)
	if _, err := runCommand(t, db, "templates", "edit", id, "--subject", "Again"); err == nil {
		t.Fatal("expected error editing a deleted template")
	}
}

func TestTemplateAddValidation(t *testing.T) {
	db := tempDB(t)

	if _, err := runCommand(t, db, "templates", "add", "--subject", "x"); err == nil {
		t.Fatal("expected error without a schedule flag")
	}
	if _, err := runCommand(t, db, "templates", "add", "--subject", "x", "--weekly", "mon", "--monthly", "1"); err == nil {
		t.Fatal("expected error for two schedule flags")
	}
	if _, err := runCommand(t, db, "templates", "add", "--subject", "x", "--monthly", "31"); err == nil {
		t.Fatal("expected error for day 31")
	}
	if _, err := runCommand(t, db, "tasks", "list", "--status", "done"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
