// Package store selects the persistence backend for the ledger and pricing
// configuration.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"artifactlive.org/internal/ledger"
	"artifactlive.org/internal/migrate"
	"artifactlive.org/internal/pricing"
	"artifactlive.org/internal/store/pg"
	"artifactlive.org/internal/store/sqlite"
	"artifactlive.org/ops/migrations"
)

// Backend drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrNoMigrations is returned by Backend.Migrator for backends without a
// versioned schema.
var ErrNoMigrations = errors.New("backend has no versioned migrations")

// Options chooses and configures a backend. At most one of PGDSN and
// SQLitePath may be set; neither yields in-memory stores.
type Options struct {
	PGDSN      string
	SQLitePath string
	Pricing    pricing.Config
	// MigrateUp applies pending PostgreSQL migrations on open.
	MigrateUp bool
}

// Backend bundles the stores of one deployment.
type Backend struct {
	Driver  string
	Ledger  ledger.Store
	Pricing pricing.ConfigStore
	// DB is nil for the in-memory backend.
	DB *sql.DB

	persistent bool
	close      func() error
}

// Close releases the database handle, if any.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Persistent reports whether the backend survives restarts.
func (b *Backend) Persistent() bool { return b.persistent }

// Migrator returns the migration manager of a PostgreSQL backend. SQLite
// creates its schema on open.
func (b *Backend) Migrator() (*migrate.Manager, error) {
	if b.Driver != DriverPostgres {
		return nil, fmt.Errorf("%s: %w", b.Driver, ErrNoMigrations)
	}
	return Migrator(b.DB), nil
}

// Open connects the backend described by opts.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	dsn := strings.TrimSpace(opts.PGDSN)
	path := strings.TrimSpace(opts.SQLitePath)
	switch {
	case dsn != "" && path != "":
		return nil, errors.New("choose either a postgres dsn or a sqlite path")
	case dsn != "":
		return openPostgres(ctx, dsn, opts)
	case path != "":
		return openSQLite(path, opts)
	}
	return &Backend{
		Driver:  DriverMemory,
		Ledger:  ledger.NewInMemory(),
		Pricing: pricing.NewMemoryStore(opts.Pricing),
	}, nil
}

func openPostgres(ctx context.Context, dsn string, opts Options) (*Backend, error) {
	s, err := pg.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if opts.MigrateUp {
		if _, err := Migrator(s.DB()).Up(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	return &Backend{
		Driver:     DriverPostgres,
		Ledger:     s,
		Pricing:    s.Pricing(opts.Pricing),
		DB:         s.DB(),
		persistent: true,
		close:      s.Close,
	}, nil
}

func openSQLite(path string, opts Options) (*Backend, error) {
	s, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Backend{
		Driver:     DriverSQLite,
		Ledger:     s,
		Pricing:    s.Pricing(opts.Pricing),
		DB:         s.DB(),
		persistent: s.Path() != sqlite.MemoryPath,
		close:      s.Close,
	}, nil
}

// migrationLockKey is the PostgreSQL advisory lock held during schema changes.
const migrationLockKey int64 = 0x61727466 // "artf"

// Migrator returns a migration manager over the embedded schema and seeds.
func Migrator(db *sql.DB) *migrate.Manager {
	return migrate.NewManager(db, migrations.Schema(),
		migrate.WithSeeds(migrations.Seeds()),
		migrate.WithAdvisoryLock(migrationLockKey))
}
