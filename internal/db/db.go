package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurant-booking-backend/config"
	"restaurant-booking-backend/internal/model"
)

// Models lists every table owned by the service, in migration order.
var Models = []any{
	&model.TimeSlot{},
	&model.Reservation{},
	&model.DateOverride{},
	&model.OverrideDisabledSlot{},
	&model.SystemSettings{},
	&model.SlotLedger{},
	&model.PushSubscription{},
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(LogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// One writer keeps the ledger update serialized.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info().Str("driver", cfg.Driver).Msg("running database migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.Driver == "postgres" {
		if err := applyPostgresDDL(db); err != nil {
			log.Warn().Err(err).Msg("failed to apply some postgres DDL, continuing without it")
		}
	}

	log.Info().Msg("database initialization complete")
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// LogLevel maps the configured GORM log level name.
func LogLevel(name string) logger.LogLevel {
	switch name {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		// The ledger never goes negative and never exceeds what commits allowed.
		"ALTER TABLE slot_ledgers DROP CONSTRAINT IF EXISTS slot_ledgers_booked_non_negative;",
		"ALTER TABLE slot_ledgers ADD CONSTRAINT slot_ledgers_booked_non_negative CHECK (booked >= 0);",

		"CREATE INDEX IF NOT EXISTS idx_reservations_reminder_due ON reservations (reservation_date) " +
			"WHERE reminder_sent_at IS NULL AND status = 'confirmed';",

		"ALTER TABLE date_overrides DROP CONSTRAINT IF EXISTS date_overrides_kind_valid;",
		"ALTER TABLE date_overrides ADD CONSTRAINT date_overrides_kind_valid " +
			"CHECK (kind IN ('closed', 'special_hours', 'disabled_slots'));",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
