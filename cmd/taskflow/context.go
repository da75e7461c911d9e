package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"taskflow/internal/config"
	"taskflow/internal/recurrence"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

type application struct {
	cfg        config.Config
	db         *gorm.DB
	tasks      *service.TaskService
	templates  *service.TemplateService
	recurrence *service.RecurrenceService
}

type commandContext struct {
	configFlag *string
	dbFlag     *string
	now        func() time.Time

	appOnce sync.Once
	app     *application
	appErr  error
}

func newCommandContext(configFlag, dbFlag *string, now func() time.Time) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		dbFlag:     dbFlag,
		now:        now,
	}
}

// ensureApp loads configuration, opens the store and migrates legacy records once per invocation.
func (c *commandContext) ensureApp(ctx context.Context) (*application, error) {
	c.appOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.appErr = err
			return
		}
		if db := strings.TrimSpace(*c.dbFlag); db != "" {
			cfg.DatabaseURL = db
		}

		db, err := repository.NewDB(cfg.DatabaseURL)
		if err != nil {
			c.appErr = fmt.Errorf("db: %w", err)
			return
		}

		blobs := repository.NewBlobRepository(db)
		taskRepo := repository.NewTaskRepository(blobs)
		templateRepo := repository.NewTemplateRepository(blobs)
		if _, err := repository.MigrateLegacy(ctx, taskRepo, templateRepo); err != nil {
			c.appErr = fmt.Errorf("migrate legacy records: %w", err)
			return
		}

		rec := service.NewRecurrenceService(taskRepo, templateRepo, recurrence.Options{
			LookaheadDays: cfg.LookaheadDays,
			MaxPerRun:     cfg.MaxPerRun,
			RunawayLimit:  cfg.RunawayLimit,
		})
		c.app = &application{
			cfg:        cfg,
			db:         db,
			tasks:      service.NewTaskService(taskRepo),
			templates:  service.NewTemplateService(templateRepo, taskRepo, rec),
			recurrence: rec,
		}
	})
	return c.app, c.appErr
}

func (c *commandContext) close() error {
	if c.app == nil {
		return nil
	}
	sqlDB, err := c.app.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
