// Package migrate provisions the record store schema from embedded, versioned
// migrations. Files use golang-migrate naming (0001_name.up.sql /
// 0001_name.down.sql) with one directory per SQL dialect.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"wslink-server/internal/config"
)

//go:embed sql
var sqlFS embed.FS

const tableName = "schema_migrations"

// Run applies every pending up migration for the dialect behind driverName.
// It does not close db.
func Run(db *sql.DB, driverName string) error {
	dir, err := dialectDir(driverName)
	if err != nil {
		return err
	}

	src, err := iofs.New(sqlFS, "sql/"+dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	drv, err := databaseDriver(db, driverName)
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, drv)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}
	// No m.Close: it closes db, which the caller owns.

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}
	slog.Info("schema up to date", "driver", driverName, "version", version)
	return nil
}

func dialectDir(driverName string) (string, error) {
	switch driverName {
	case config.DriverSQLite:
		return "sqlite", nil
	case config.DriverPostgres, config.DriverPGX:
		return "postgres", nil
	default:
		return "", fmt.Errorf("no migrations for driver %q", driverName)
	}
}

func databaseDriver(db *sql.DB, driverName string) (database.Driver, error) {
	switch driverName {
	case config.DriverSQLite:
		return sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: tableName})
	case config.DriverPostgres:
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: tableName})
	case config.DriverPGX:
		return pgxmigrate.WithInstance(db, &pgxmigrate.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported driver %q", driverName)
	}
}
