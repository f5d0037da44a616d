package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

type migrateOptions struct {
	direction  string
	steps      int
	force      int
	forceDirty bool
}

type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (version uint, dirty bool, err error)
}

// Swapped in tests so no Postgres is needed.
var withPostgresInstance = func(db *sql.DB) (migratedb.Driver, error) {
	return postgres.WithInstance(db, &postgres.Config{})
}

var newMigrateWithDB = func(sourceURL string, databaseName string, driver migratedb.Driver) (migrator, error) {
	return migrate.NewWithDatabaseInstance(sourceURL, databaseName, driver)
}

var migrationsSource = "file://db/migrations"

var newMigrator = func(db *sql.DB) (migrator, error) {
	driver, err := withPostgresInstance(db)
	if err != nil {
		return nil, fmt.Errorf("Failed to create migration driver: %w", err)
	}
	m, err := newMigrateWithDB(migrationsSource, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("Failed to create migrate instance: %w", err)
	}
	return m, nil
}

func newMigrateCmd(d deps) *cobra.Command {
	var o migrateOptions
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back Postgres migrations (planner_items, user_settings)",
		Long: `Runs the migrations under db/migrations against DATABASE_URL.

Examples:
  plannerctl migrate
  plannerctl migrate --direction down --steps 1
  plannerctl migrate --force 2
  plannerctl migrate --force-dirty`,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := runMigrate(o, d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&o.direction, "direction", "up", "Migration direction: up or down")
	cmd.Flags().IntVar(&o.steps, "steps", 0, "Number of migration steps (0 = all)")
	cmd.Flags().IntVar(&o.force, "force", -1, "Force set migration version (clears dirty state). Example: --force=2")
	cmd.Flags().BoolVar(&o.forceDirty, "force-dirty", false, "If the database is dirty, force it to the current version and exit")
	return cmd
}

func validateDirection(direction string) error {
	switch direction {
	case "up", "down":
		return nil
	default:
		return fmt.Errorf("Invalid direction: %s (must be 'up' or 'down')", direction)
	}
}

func runMigrate(o migrateOptions, d deps) (string, error) {
	if err := validateDirection(o.direction); err != nil {
		return "", err
	}

	databaseURL := ""
	if d.getenv != nil {
		databaseURL = d.getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if d.openDB == nil {
		return "", fmt.Errorf("openDB dependency is required")
	}
	db, err := d.openDB("postgres", databaseURL)
	if err != nil {
		return "", fmt.Errorf("Failed to connect to database: %w", err)
	}
	defer db.Close()

	if o.force >= 0 || o.forceDirty {
		return forceVersion(db, o)
	}

	if d.migrateF == nil {
		return "", fmt.Errorf("migrateF dependency is required")
	}
	err = d.migrateF(db, o.direction, o.steps)
	if errors.Is(err, migrate.ErrNoChange) {
		return "No migrations to apply", nil
	}
	if err != nil {
		return "", fmt.Errorf("Migration failed: %w", err)
	}
	return fmt.Sprintf("Migration %s completed successfully", o.direction), nil
}

func forceVersion(db *sql.DB, o migrateOptions) (string, error) {
	m, err := newMigrator(db)
	if err != nil {
		return "", err
	}
	if o.forceDirty {
		v, dirty, verr := m.Version()
		if verr != nil {
			return "", fmt.Errorf("Failed to read migration version: %w", verr)
		}
		if !dirty {
			return "Database is not dirty (no force needed)", nil
		}
		if err := m.Force(int(v)); err != nil {
			return "", fmt.Errorf("Failed to force dirty version %d: %w", v, err)
		}
		return fmt.Sprintf("Forced dirty database to version %d", v), nil
	}
	if err := m.Force(o.force); err != nil {
		return "", fmt.Errorf("Failed to force version %d: %w", o.force, err)
	}
	return fmt.Sprintf("Forced database to version %d", o.force), nil
}

func performMigrations(db *sql.DB, direction string, steps int) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	return applyDirection(m, direction, steps)
}

func applyDirection(m migrator, direction string, steps int) error {
	if err := validateDirection(direction); err != nil {
		return err
	}
	if steps > 0 {
		if direction == "down" {
			steps = -steps
		}
		return m.Steps(steps)
	}
	if direction == "down" {
		return m.Down()
	}
	return m.Up()
}
