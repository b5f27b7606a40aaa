package db

import (
	"os"

	applog "github.com/pranaya890/LMS/internal/log"
	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the database drivers and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// runSQLMigrations executes migrations in ./migrations using the file source.
func runSQLMigrations(dsn string) error {
	target := dsn
	if !IsPostgresDSN(dsn) {
		// golang-migrate's sqlite3 driver wants an explicit scheme.
		target = "sqlite3://" + dsn
	}
	m, err := migrate.New("file://migrations", target)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// RunMigrations is a lightweight entry point for the CLI and tests.
// It respects the MIGRATIONS env var just like ConnectAndMigrate.
func RunMigrations(dsn string) error {
	if dsn == "" {
		return nil
	}
	if v := os.Getenv("MIGRATIONS"); v == "" {
		applog.Info("MIGRATIONS env not set; skipping sql migrations (AutoMigrate path used at app start)")
		return nil
	}
	applog.Info("running explicit SQL migrations")
	return runSQLMigrations(dsn)
}
