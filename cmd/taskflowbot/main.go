package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"taskflow/internal/bot"
	"taskflow/internal/config"
	"taskflow/internal/recurrence"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

const jobTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.RequireToken(); err != nil {
		log.Fatalf("config: %v", err)
	}

	lock := flock.New(cfg.DatabaseURL + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		log.Fatalf("acquire lock: %v", err)
	}
	if !ok {
		log.Fatalf("another taskflow bot instance is already running")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Printf("[warn] release lock: %v", err)
		}
	}()

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	blobs := repository.NewBlobRepository(db)
	taskRepo := repository.NewTaskRepository(blobs)
	templateRepo := repository.NewTemplateRepository(blobs)
	subscriberRepo := repository.NewSubscriberRepository(blobs)

	if migrated, err := repository.MigrateLegacy(ctx, taskRepo, templateRepo); err != nil {
		log.Fatalf("migrate legacy records: %v", err)
	} else if migrated > 0 {
		log.Printf("[info] migrated %d legacy recurring task(s)", migrated)
	}

	recurrenceSvc := service.NewRecurrenceService(taskRepo, templateRepo, recurrence.Options{
		LookaheadDays: cfg.LookaheadDays,
		MaxPerRun:     cfg.MaxPerRun,
		RunawayLimit:  cfg.RunawayLimit,
	})
	taskSvc := service.NewTaskService(taskRepo)
	templateSvc := service.NewTemplateService(templateRepo, taskRepo, recurrenceSvc)
	reminderSvc := service.NewReminderService(taskRepo, templateRepo, cfg.ReminderCheck)

	telegramBot, err := bot.New(cfg.TelegramToken, subscriberRepo, taskSvc, templateSvc, reminderSvc)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	materialize := func(ctx context.Context) error {
		_, err := recurrenceSvc.Materialize(ctx, time.Now())
		return err
	}

	scheduler := service.NewSchedulerService(time.Local)
	schedule := []struct {
		name     string
		interval time.Duration
		run      func(context.Context) error
	}{
		{"materialize", cfg.MaterializeInterval, materialize},
		{"reminders", cfg.ReminderCheck, telegramBot.SendReminders},
		{"report", cfg.ReportInterval, telegramBot.SendDailyReports},
	}
	for _, job := range schedule {
		if job.interval <= 0 {
			continue
		}
		if _, err := scheduler.ScheduleInterval(job.name, job.interval, runJob(ctx, job.name, job.run)); err != nil {
			log.Fatalf("schedule %s: %v", job.name, err)
		}
	}
	if _, err := scheduler.ScheduleDaily("midnight-materialize", "00:01", runJob(ctx, "midnight-materialize", materialize)); err != nil {
		log.Fatalf("schedule midnight-materialize: %v", err)
	}

	if err := materialize(ctx); err != nil {
		log.Printf("[warn] initial materialize: %v", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Taskflow bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}

func runJob(parent context.Context, name string, run func(context.Context) error) func() {
	return func() {
		jobCtx, cancel := context.WithTimeout(parent, jobTimeout)
		defer cancel()
		if err := run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[warn] %s: %v", name, err)
		}
	}
}
