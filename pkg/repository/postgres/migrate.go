package postgres

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationStatus describes the schema version after a migration run
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Migrate applies all pending up migrations. dsn must use the postgres://
// scheme understood by golang-migrate.
func Migrate(dsn string) (*MigrationStatus, error) {
	m, err := newMigrator(dsn)
	if err != nil {
		return nil, err
	}
	defer func() { _, _ = m.Close() }()

	changed := true
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return nil, goerr.Wrap(err, "failed to apply migrations")
		}
		changed = false
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, goerr.Wrap(err, "failed to read schema version")
	}

	return &MigrationStatus{Version: version, Dirty: dirty, Changed: changed}, nil
}

// MigrationVersion reports the current schema version without changing it
func MigrationVersion(dsn string) (*MigrationStatus, error) {
	m, err := newMigrator(dsn)
	if err != nil {
		return nil, err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, goerr.Wrap(err, "failed to read schema version")
	}
	return &MigrationStatus{Version: version, Dirty: dirty}, nil
}

func newMigrator(dsn string) (*migrate.Migrate, error) {
	if dsn == "" {
		return nil, goerr.New("postgres DSN is required for migration")
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create migrator")
	}
	return m, nil
}
