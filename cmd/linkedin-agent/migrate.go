package main

import (
	"database/sql"
	"fmt"

	"github.com/hairizuan-noorazman/linkedin-agent/database"
	"github.com/spf13/cobra"
)

var (
	migrateDriver string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run history database migration commands",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrationDB(func(db *sql.DB, driver string) error {
			if err := database.RunMigrations(db, driver); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Println("Migrations applied successfully")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrationDB(func(db *sql.DB, driver string) error {
			if err := database.RollbackMigration(db, driver); err != nil {
				return fmt.Errorf("failed to rollback migration: %w", err)
			}
			fmt.Println("Migration rolled back successfully")
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrationDB(func(db *sql.DB, driver string) error {
			version, dirty, ok, err := database.Version(db, driver)
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			if !ok {
				fmt.Println("No migrations applied")
				return nil
			}
			fmt.Printf("Schema version %d (dirty: %t)\n", version, dirty)
			return nil
		})
	},
}

// withMigrationDB opens the history database selected by --driver, or by
// history.backend when the flag is empty.
func withMigrationDB(fn func(db *sql.DB, driver string) error) error {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	driver := migrateDriver
	if driver == "" {
		driver = cfg.History.Backend
	}
	if driver != database.DriverSQLite && driver != database.DriverMySQL {
		return fmt.Errorf("%w: %q (set --driver or history.backend)", database.ErrUnsupportedDriver, driver)
	}

	db, err := database.Connect(databaseConfig(cfg, driver))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	return fn(sqlDB, driver)
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrateDriver, "driver", "", "database driver: sqlite or mysql")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
