package repository

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskflow/internal/model"
)

// DefaultDSN is the store file used when no database is configured.
const DefaultDSN = "taskflow.db"

// NewDB opens the SQLite file holding the keyed documents and creates the
// blob table. File databases run in WAL mode with a busy timeout so readers
// outside a document update are not turned away while it commits.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}

	memory := isMemoryDSN(dsn)
	if !memory {
		if err := ensureStoreDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(storeDSN(dsn, memory)), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "[gorm] ", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", dsn, err)
	}

	if err := db.AutoMigrate(&model.Blob{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// storeDSN adds the connection pragmas unless the caller already set them.
func storeDSN(dsn string, memory bool) string {
	params := url.Values{}
	if !strings.Contains(dsn, "_busy_timeout") && !strings.Contains(dsn, "_timeout") {
		params.Set("_busy_timeout", "5000")
	}
	if !memory && !strings.Contains(dsn, "_journal") {
		params.Set("_journal_mode", "WAL")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params.Encode()
}

func ensureStoreDir(dsn string) error {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir %q: %w", dir, err)
	}
	return nil
}
