package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"nexusmc-api/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var ErrMigrationsNotFound = errors.New("migrations directory not found")

// Migrator applies the versioned SQL files under db/migrations and, when enabled, the seed files.
type Migrator struct {
	db         *sql.DB
	migrations string
	seeds      string
	seed       bool
	attempts   int
	interval   time.Duration
	logger     *slog.Logger
}

func NewMigrator(db *sql.DB, cfg *config.DatabaseConfig) *Migrator {
	return &Migrator{
		db:         db,
		migrations: cfg.MigrationsPath,
		seeds:      cfg.SeedsPath,
		seed:       cfg.Seed,
		attempts:   max(cfg.ReadyAttempts, 1),
		interval:   cfg.ReadyInterval,
		logger:     slog.Default().With("component", "migrations"),
	}
}

// Run waits for the database, applies pending migrations and loads seeds.
// Seed failures are logged, never returned.
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.WaitForDatabase(ctx); err != nil {
		return fmt.Errorf("database readiness check failed: %w", err)
	}
	if err := m.Up(); err != nil {
		return fmt.Errorf("migration execution failed: %w", err)
	}
	if err := m.Seed(ctx); err != nil {
		m.logger.Warn("seed data loading failed", "error", err)
	}
	return nil
}

// WaitForDatabase pings at a constant interval until the database answers,
// the attempts are used up or ctx is done.
func (m *Migrator) WaitForDatabase(ctx context.Context) error {
	attempt := 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.interval), uint64(m.attempts-1)),
		ctx,
	)

	err := backoff.Retry(func() error {
		attempt++
		err := m.db.PingContext(ctx)
		if err != nil {
			m.logger.Warn("database not ready", "attempt", attempt, "max_attempts", m.attempts, "error", err)
		}
		return err
	}, policy)
	if err != nil {
		return fmt.Errorf("database not ready after %d attempts: %w", attempt, err)
	}

	m.logger.Info("database is ready", "attempts", attempt)
	return nil
}

// Up applies every pending migration. A missing directory is not an error.
// A dirty schema is forced back to its recorded version before retrying.
func (m *Migrator) Up() error {
	instance, err := m.open()
	if errors.Is(err, ErrMigrationsNotFound) {
		m.logger.Warn("migrations directory not found, skipping", "path", m.migrations)
		return nil
	}
	if err != nil {
		return err
	}

	from, dirty, err := instance.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		m.logger.Warn("database is in dirty state, forcing version", "version", from)
		if err := instance.Force(int(from)); err != nil {
			return fmt.Errorf("failed to force version %d: %w", from, err)
		}
	}

	if err := instance.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("schema is up to date", "version", from)
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	to, _, err := instance.Version()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	m.logger.Info("applied migrations", "from_version", from, "to_version", to)
	return nil
}

// Version reports the applied migration version and whether it is dirty.
func (m *Migrator) Version() (uint, bool, error) {
	instance, err := m.open()
	if err != nil {
		return 0, false, err
	}
	return instance.Version()
}

// Seed executes every *.sql file in the seeds directory in name order.
// A failing file is logged and skipped.
func (m *Migrator) Seed(ctx context.Context) error {
	if !m.seed {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(m.seeds, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to list seed files: %w", err)
	}
	if len(files) == 0 {
		m.logger.Warn("no seed files found", "path", m.seeds)
		return nil
	}

	for _, file := range files {
		statements, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read seed file %s: %w", file, err)
		}
		if _, err := m.db.ExecContext(ctx, string(statements)); err != nil {
			m.logger.Warn("failed to execute seed file", "file", filepath.Base(file), "error", err)
			continue
		}
		m.logger.Info("executed seed file", "file", filepath.Base(file))
	}
	return nil
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	if _, err := os.Stat(m.migrations); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMigrationsNotFound, m.migrations)
	}

	dir, err := filepath.Abs(m.migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve migrations path: %w", err)
	}

	driver, err := postgres.WithInstance(m.db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	instance, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return instance, nil
}
