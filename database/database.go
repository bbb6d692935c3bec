package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"plateau/config"
	"plateau/logging"
	"plateau/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the database described by cfg.
// The sqlite driver treats "memory" (or an empty DSN) as a shared in-memory
// database and anything else as a file path; postgres takes a regular DSN.
func Init(cfg config.Config) (*gorm.DB, error) {
	log := logging.Component("Database")
	dsn := cfg.Database.DSN

	gormLogger := logger.New(
		gormWriter{log: logging.Component("gorm")},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormConfig := &gorm.Config{Logger: gormLogger}

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		log.Info().Msg("initializing postgres database")
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		if dsn == "memory" || dsn == "" {
			log.Info().Msg("initializing in-memory SQLite database")
			dsn = "file::memory:?cache=shared"
		} else {
			log.Info().Str("dsn", dsn).Msg("initializing file-based SQLite database")
			if dir := filepath.Dir(dsn); dir != "." && dir != "/" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("failed to create database directory '%s': %w", dir, err)
				}
			}
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database (driver: '%s'): %w", cfg.Database.Driver, err)
	}
	log.Info().Msg("database connection established")
	return db, nil
}

// gormWriter forwards gorm's logger output to zerolog. gorm only prints at
// the configured level or above, so everything it emits is a warning.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msgf(format, args...)
}

// Migrate creates or updates the knowledge base tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.KnowledgeArticle{},
		&models.ArticleVersion{},
		&models.ArticleView{},
		&models.ArticleFeedback{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	logging.Info().Msg("database migration completed")
	return nil
}
