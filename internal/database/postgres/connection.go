package postgres

import (
	"ble-linepos/internal/config/components"
	"ble-linepos/internal/models"
	"context"
	"fmt"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"strings"
	"time"
)

type PostgresDB struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// gormWriter routes gorm's slow query and error output into zerolog.
type gormWriter struct {
	logger zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func NewConnection(ctx context.Context, cfg components.PostgresConfigImpl, log zerolog.Logger) (*PostgresDB, error) {
	gormLogger := logger.New(
		gormWriter{logger: log},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.GetDsn()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB: %w", err)
	}

	// only the anchor pair is read, once per session
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("PostgreSQL is not reachable: %w", err)
	}

	postgresDB := &PostgresDB{db: db, logger: log}

	if err := postgresDB.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return postgresDB, nil
}

func (p *PostgresDB) migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(&models.AnchorRecord{}); err != nil {
		return err
	}
	p.logger.Debug().Str("table", models.AnchorRecord{}.TableName()).Msg("Schema up to date")
	return nil
}

func (p *PostgresDB) GetDB() *gorm.DB {
	return p.db
}

func (p *PostgresDB) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
