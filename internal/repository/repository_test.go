package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

func newTestBlobs(t *testing.T) *BlobRepository {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "taskflow.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewBlobRepository(db)
}

func TestBlobLoadMissingKey(t *testing.T) {
	blobs := newTestBlobs(t)
	data, found, err := blobs.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found || data != nil {
		t.Fatalf("expected missing key, got found=%v data=%q", found, data)
	}
}

func TestBlobSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	blobs := newTestBlobs(t)

	if err := blobs.Save(ctx, "k", []byte(`[1]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := blobs.Save(ctx, "k", []byte(`[2]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, found, err := blobs.Load(ctx, "k")
	if err != nil || !found {
		t.Fatalf("Load: found=%v err=%v", found, err)
	}
	if string(data) != `[2]` {
		t.Fatalf("data = %s", data)
	}
}

func TestBlobUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	blobs := newTestBlobs(t)
	if err := blobs.Save(ctx, "k", []byte(`"before"`)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	boom := errors.New("boom")
	err := blobs.Update(ctx, "k", func([]byte) ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Update err = %v, want boom", err)
	}
	data, _, _ := blobs.Load(ctx, "k")
	if string(data) != `"before"` {
		t.Fatalf("data changed to %s", data)
	}
}

func TestTaskRepositoryAppendSkipsExistingIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestBlobs(t))

	tasks, err := repo.List(ctx)
	if err != nil || len(tasks) != 0 {
		t.Fatalf("empty store: tasks=%v err=%v", tasks, err)
	}

	n, err := repo.Append(ctx, model.Task{ID: "a", Subject: "first"}, model.Task{ID: "b"})
	if err != nil || n != 2 {
		t.Fatalf("Append: n=%d err=%v", n, err)
	}
	n, err = repo.Append(ctx, model.Task{ID: "a", Subject: "dupe"}, model.Task{ID: "c"})
	if err != nil || n != 1 {
		t.Fatalf("Append: n=%d err=%v", n, err)
	}

	got, err := repo.FindByID(ctx, "a")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Subject != "first" {
		t.Fatalf("existing task overwritten: %+v", got)
	}
	tasks, _ = repo.List(ctx)
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
}

func TestTaskRepositoryUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestBlobs(t))
	if _, err := repo.Append(ctx,
		model.Task{ID: "solo", Status: model.StatusAssigned},
		model.Task{ID: "t1-recur-2026-10-19", RecurringTemplateID: "t1"},
		model.Task{ID: "t1-recur-2026-10-20", RecurringTemplateID: "t1"},
		model.Task{ID: "old", RecurrenceTemplateID: "t1"},
	); err != nil {
		t.Fatalf("Append: %v", err)
	}

	updated, err := repo.Update(ctx, "solo", func(task *model.Task) error {
		task.Status = task.Status.Next()
		return nil
	})
	if err != nil || updated.Status != model.StatusInProgress {
		t.Fatalf("Update: %+v err=%v", updated, err)
	}

	if _, err := repo.Update(ctx, "ghost", func(*model.Task) error { return nil }); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Update missing err = %v", err)
	}

	removed, err := repo.DeleteByTemplate(ctx, "t1")
	if err != nil || removed != 3 {
		t.Fatalf("DeleteByTemplate: removed=%d err=%v", removed, err)
	}

	if err := repo.Delete(ctx, "solo"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "solo"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second Delete err = %v", err)
	}
	tasks, _ := repo.List(ctx)
	if len(tasks) != 0 {
		t.Fatalf("expected empty list, got %+v", tasks)
	}
}

func TestTemplateRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(newTestBlobs(t))

	tpl := model.RecurringTemplate{
		ID:       "tpl",
		Subject:  "Pay rent",
		Assignee: "Self",
		Labels:   []string{"Home"},
		Schedule: model.Monthly{MonthDays: []int{1}},
		Status:   model.TemplateActive,
	}
	if err := repo.Create(ctx, tpl); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, tpl); err == nil {
		t.Fatal("expected duplicate create to fail")
	}

	got, err := repo.FindByID(ctx, "tpl")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	monthly, ok := got.Schedule.(model.Monthly)
	if !ok || len(monthly.MonthDays) != 1 || monthly.MonthDays[0] != 1 {
		t.Fatalf("schedule not restored: %#v", got.Schedule)
	}

	updated, err := repo.Update(ctx, "tpl", func(t *model.RecurringTemplate) error {
		t.Status = model.TemplateInactive
		return nil
	})
	if err != nil || updated.IsActive() {
		t.Fatalf("Update: %+v err=%v", updated, err)
	}

	if err := repo.Delete(ctx, "tpl"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, "tpl"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("FindByID after delete err = %v", err)
	}
}

func TestTemplateRepositoryRetire(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(newTestBlobs(t))

	for _, id := range []string{"keep", "drop"} {
		tpl := model.RecurringTemplate{ID: id, Subject: id, Schedule: model.Weekly{WeekDays: []int{1}}, Status: model.TemplateActive}
		if err := repo.Create(ctx, tpl); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	got, dropped, err := repo.Retire(ctx, "keep", func(t *model.RecurringTemplate) (bool, error) {
		t.IsDeleted = true
		return false, nil
	})
	if err != nil || dropped || !got.IsDeleted {
		t.Fatalf("Retire keep: %+v dropped=%v err=%v", got, dropped, err)
	}
	if stored, err := repo.FindByID(ctx, "keep"); err != nil || !stored.IsDeleted {
		t.Fatalf("kept template not updated: %+v err=%v", stored, err)
	}

	if _, dropped, err := repo.Retire(ctx, "drop", func(*model.RecurringTemplate) (bool, error) { return true, nil }); err != nil || !dropped {
		t.Fatalf("Retire drop: dropped=%v err=%v", dropped, err)
	}
	if _, err := repo.FindByID(ctx, "drop"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("dropped template still stored, err = %v", err)
	}
	if all, _ := repo.List(ctx); len(all) != 1 || all[0].ID != "keep" {
		t.Fatalf("remaining templates = %+v", all)
	}

	if _, _, err := repo.Retire(ctx, "missing", func(*model.RecurringTemplate) (bool, error) { return true, nil }); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Retire missing err = %v", err)
	}
}

func TestStoreDSN(t *testing.T) {
	tests := []struct {
		dsn    string
		memory bool
		want   string
	}{
		{"taskflow.db", false, "taskflow.db?_busy_timeout=5000&_journal_mode=WAL"},
		{"file:data/taskflow.db?cache=shared", false, "file:data/taskflow.db?cache=shared&_busy_timeout=5000&_journal_mode=WAL"},
		{"taskflow.db?_journal_mode=DELETE", false, "taskflow.db?_journal_mode=DELETE&_busy_timeout=5000"},
		{"file::memory:?cache=shared", true, "file::memory:?cache=shared&_busy_timeout=5000"},
		{"taskflow.db?_timeout=100&_journal=WAL", false, "taskflow.db?_timeout=100&_journal=WAL"},
	}
	for _, tt := range tests {
		if got := storeDSN(tt.dsn, tt.memory); got != tt.want {
			t.Fatalf("storeDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

func TestSubscriberUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriberRepository(newTestBlobs(t))

	if _, err := repo.UpsertFromTelegram(ctx, 42, "Ann", "ann"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	sub, err := repo.UpsertFromTelegram(ctx, 42, "Anna", "anna")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if sub.FirstName != "Anna" || sub.CreatedAt.IsZero() {
		t.Fatalf("unexpected subscriber %+v", sub)
	}

	all, err := repo.ListAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListAll: %+v err=%v", all, err)
	}
}

func TestMigrateLegacyMovesEmbeddedRecurrence(t *testing.T) {
	ctx := context.Background()
	blobs := newTestBlobs(t)
	legacy := `[
		{"id":"L1","subject":"Stand-up","assignee":"Self","dueDate":"2026-10-01","status":"assigned","labels":["Work"],"isFullDay":true,
		 "recurrence":{"type":"weekly","weekDays":[1,3]},"templateStatus":"inactive"},
		{"id":"L1-recur-2026-10-19","subject":"Stand-up","dueDate":"2026-10-19","status":"assigned","labels":["Work"],"isFullDay":true,
		 "recurrenceTemplateId":"L1"},
		{"id":"plain","subject":"Plain","dueDate":"2026-10-20","status":"closed","labels":[]}
	]`
	if err := blobs.Save(ctx, KeyTasks, []byte(legacy)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tasks := NewTaskRepository(blobs)
	templates := NewTemplateRepository(blobs)

	n, err := MigrateLegacy(ctx, tasks, templates)
	if err != nil || n != 1 {
		t.Fatalf("MigrateLegacy: n=%d err=%v", n, err)
	}

	tpl, err := templates.FindByID(ctx, "L1")
	if err != nil {
		t.Fatalf("template missing: %v", err)
	}
	if tpl.Status != model.TemplateInactive || tpl.Schedule.Kind() != model.ScheduleWeekly {
		t.Fatalf("unexpected template %+v", tpl)
	}

	list, _ := tasks.List(ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks after migration, got %d", len(list))
	}
	inst, err := tasks.FindByID(ctx, "L1-recur-2026-10-19")
	if err != nil {
		t.Fatalf("instance missing: %v", err)
	}
	if inst.RecurringTemplateID != "L1" || inst.RecurrenceTemplateID != "" {
		t.Fatalf("back-reference not rewritten: %+v", inst)
	}

	n, err = MigrateLegacy(ctx, tasks, templates)
	if err != nil || n != 0 {
		t.Fatalf("second MigrateLegacy: n=%d err=%v", n, err)
	}
}
