package devbackend

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/crypgo-dev/crypgo-web/internal/models"
)

// MemoryDatabase is the path of a throwaway in-memory database
const MemoryDatabase = ":memory:"

// OpenDatabase opens the SQLite database at path and migrates it
func OpenDatabase(path string, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns      = 8    // Reduced for SQLite efficiency
		maxIdleConns      = 4    // Reduced proportionally
		connMaxLifetime   = 300  // 5 minutes
		busyTimeout       = 5000 // 5 seconds
		cacheSize         = 10000
		walAutocheckpoint = 1000 // WAL auto-checkpoint pages
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Every connection to :memory: opens its own empty database
	inMemory := strings.Contains(path, MemoryDatabase)
	if inMemory {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		fmt.Sprintf("PRAGMA cache_size=-%d", cacheSize),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
	}
	if !inMemory {
		// WAL mode must be set first for optimal concurrency
		pragmas = append([]string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			fmt.Sprintf("PRAGMA wal_autocheckpoint=%d", walAutocheckpoint),
		}, pragmas...)
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	zlog.Info().Str("path", path).Msg("Database ready")
	return db, nil
}
