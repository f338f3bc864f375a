package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate creates the schema for the given driver ("postgres" or "sqlite3").
// Every statement is idempotent and an already current schema is not an
// error, so it is safe to call on each start.
func Migrate(pool *Pool, driverName string) error {
	var (
		driver migratedb.Driver
		dir    string
		err    error
	)

	switch driverName {
	case "sqlite3":
		driver, err = sqlite3.WithInstance(pool.DB().DB, &sqlite3.Config{})
		dir = "migrations/sqlite"
	case "postgres":
		driver, err = postgres.WithInstance(pool.DB().DB, &postgres.Config{})
		dir = "migrations/postgres"
	default:
		return fmt.Errorf("unsupported driver: %s", driverName)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Migrations completed successfully", "driver", driverName)
	return nil
}
