package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"loan-management/internal/infrastructure/database"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// RunMigrations applies the embedded schema migrations against the database
// at the given URL. Already being at the latest version is not an error.
func RunMigrations(databaseURL string, logger *slog.Logger) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	sourceDriver, err := iofs.New(database.MigrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Database schema already up to date.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("Database schema migrations applied.")
	return nil
}
