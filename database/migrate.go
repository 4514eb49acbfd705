package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql
var sqliteFS embed.FS

//go:embed migrations/mysql/*.sql
var mysqlFS embed.FS

func newMigrate(db *sql.DB, driver string) (*migrate.Migrate, error) {
	var (
		instance migratedb.Driver
		fsys     embed.FS
		dir      string
		err      error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		instance, err = sqlite3.WithInstance(db, &sqlite3.Config{})
		fsys, dir = sqliteFS, "migrations/sqlite"
	case DriverMySQL:
		instance, err = migratemysql.WithInstance(db, &migratemysql.Config{})
		fsys, dir = mysqlFS, "migrations/mysql"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, driver, instance)
}

// RunMigrations applies all pending migrations.
func RunMigrations(db *sql.DB, driver string) error {
	m, err := newMigrate(db, driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// RollbackMigration rolls back the most recent migration.
func RollbackMigration(db *sql.DB, driver string) error {
	m, err := newMigrate(db, driver)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version reports the applied schema version. ok is false on an empty
// database.
func Version(db *sql.DB, driver string) (version uint, dirty bool, ok bool, err error) {
	m, err := newMigrate(db, driver)
	if err != nil {
		return 0, false, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, err
	}
	return version, dirty, true, nil
}
