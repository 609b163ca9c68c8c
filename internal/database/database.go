package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nexusmc-api/internal/config"
	"nexusmc-api/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the GORM handle shared by every repository.
type DB struct {
	*gorm.DB
	cfg *config.DatabaseConfig
}

// schema lists the models GORM AutoMigrate manages when SQL migrations are off.
var schema = []interface{}{
	&models.User{},
	&models.RefreshToken{},
	&models.BlacklistedToken{},
	&models.AuditLog{},
}

// Indexes GORM struct tags cannot express.
var partialIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users(LOWER(email))",
	"CREATE INDEX IF NOT EXISTS idx_users_plaid_item_id ON users(plaid_item_id) WHERE plaid_item_id IS NOT NULL",
	"CREATE INDEX IF NOT EXISTS idx_refresh_tokens_active ON refresh_tokens(user_id) WHERE revoked_at IS NULL",
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_created ON audit_logs(user_id, created_at DESC)",
}

func New(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s@%s: %w", cfg.Name, cfg.Host, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &DB{DB: db, cfg: cfg}, nil
}

// Initialize connects to Postgres and brings the schema up to date.
// With AUTO_MIGRATE the SQL migrations run first and GORM AutoMigrate is only the fallback.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := New(&cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	db.createIndexes()

	slog.Info("database initialized",
		"host", cfg.Database.Host,
		"name", cfg.Database.Name,
		"sql_migrations", cfg.Database.AutoMigrate)
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	if db.cfg.AutoMigrate {
		sqlDB, err := db.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		err = NewMigrator(sqlDB, db.cfg).Run(ctx)
		if err == nil {
			return nil
		}
		slog.Warn("SQL migrations failed, falling back to GORM AutoMigrate", "error", err)
	}

	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(schema...)
}

func (db *DB) createIndexes() {
	for _, statement := range partialIndexes {
		if err := db.Exec(statement).Error; err != nil {
			slog.Warn("failed to create index", "statement", statement, "error", err)
		}
	}
}

func (db *DB) HealthCheck(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
