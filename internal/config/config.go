package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config keeps runtime settings for the bot and the CLI.
type Config struct {
	TelegramToken       string        `toml:"telegram_token"`
	DatabaseURL         string        `toml:"database_url"`
	ReportInterval      time.Duration `toml:"-"`
	MaterializeInterval time.Duration `toml:"-"`
	ReminderCheck       time.Duration `toml:"-"`
	LookaheadDays       int           `toml:"lookahead_days"`
	MaxPerRun           int           `toml:"max_per_run"`
	RunawayLimit        int           `toml:"runaway_limit"`
}

// fileConfig mirrors the TOML layout; intervals are written as plain numbers.
type fileConfig struct {
	Config
	ReportIntervalHours        int `toml:"report_interval_hours"`
	MaterializeIntervalMinutes int `toml:"materialize_interval_minutes"`
	ReminderCheckSeconds       int `toml:"reminder_check_seconds"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		DatabaseURL:         "taskflow.db",
		ReportInterval:      5 * time.Hour,
		MaterializeInterval: 15 * time.Minute,
		ReminderCheck:       time.Minute,
		LookaheadDays:       5,
		MaxPerRun:           3,
		RunawayLimit:        50,
	}
}

// Load reads the optional TOML file at path (or TASKFLOW_CONFIG) and then
// applies environment variables on top of it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("TASKFLOW_CONFIG"))
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RequireToken reports an error when the bot token is missing.
func (c Config) RequireToken() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	fc := fileConfig{Config: *cfg}
	if err := toml.NewDecoder(file).Decode(&fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	*cfg = fc.Config
	if fc.ReportIntervalHours > 0 {
		cfg.ReportInterval = time.Duration(fc.ReportIntervalHours) * time.Hour
	}
	if fc.MaterializeIntervalMinutes > 0 {
		cfg.MaterializeInterval = time.Duration(fc.MaterializeIntervalMinutes) * time.Minute
	}
	if fc.ReminderCheckSeconds > 0 {
		cfg.ReminderCheck = time.Duration(fc.ReminderCheckSeconds) * time.Second
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := env("TELEGRAM_TOKEN"); v != "" {
		cfg.TelegramToken = v
	}
	if v := env("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}

	durations := []struct {
		name string
		unit time.Duration
		dst  *time.Duration
	}{
		{"REPORT_INTERVAL_HOURS", time.Hour, &cfg.ReportInterval},
		{"MATERIALIZE_INTERVAL_MINUTES", time.Minute, &cfg.MaterializeInterval},
		{"REMINDER_CHECK_SECONDS", time.Second, &cfg.ReminderCheck},
	}
	for _, d := range durations {
		n, ok, err := positiveInt(d.name)
		if err != nil {
			return err
		}
		if ok {
			*d.dst = time.Duration(n) * d.unit
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"LOOKAHEAD_DAYS", &cfg.LookaheadDays},
		{"MAX_PER_RUN", &cfg.MaxPerRun},
		{"RUNAWAY_LIMIT", &cfg.RunawayLimit},
	}
	for _, i := range ints {
		n, ok, err := positiveInt(i.name)
		if err != nil {
			return err
		}
		if ok {
			*i.dst = n
		}
	}
	return nil
}

func positiveInt(name string) (int, bool, error) {
	raw := env(name)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return n, true, nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}
