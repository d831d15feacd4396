// Package store implements the trust broker's persistent cache of past
// decisions. It is backed by gorm over SQLite (default) or PostgreSQL, with
// schema migrations applied by golang-migrate before gorm ever touches the
// table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver used by runPostgresMigrations
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/store/migrations"
	"github.com/trustbrokerd/trustbroker/internal/trusterr"
)

// Store is the persistent, thread-safe cache of past trust decisions.
//
// Concurrency: a single mutex serializes Add and Reset against each other
// and against Query stepping. Multiple Query objects may exist but must
// not be stepped concurrently on the same store.
type Store struct {
	mu sync.Mutex
	db *gorm.DB
}

// New opens (creating if necessary) the store described by cfg, applying
// schema migrations first.
func New(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", trusterr.ErrStoreOpen, err)
	}

	db, err := openGorm(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", trusterr.ErrStoreOpen, err)
	}

	return &Store{db: db}, nil
}

func openGorm(cfg Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch cfg.Backend {
	case BackendSQLite:
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, err
			}
		}
		return gorm.Open(sqlite.Open(cfg.SQLite.Path), gormCfg)
	case BackendPostgres:
		return gorm.Open(gormpostgres.Open(cfg.Postgres.DSN()), gormCfg)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", trusterr.ErrConfiguration, cfg.Backend)
	}
}

func runMigrations(cfg Config) error {
	switch cfg.Backend {
	case BackendSQLite:
		return runSQLiteMigrations(cfg.SQLite.Path)
	case BackendPostgres:
		return runPostgresMigrations(cfg.Postgres.DSN())
	default:
		return fmt.Errorf("%w: unknown backend %q", trusterr.ErrConfiguration, cfg.Backend)
	}
}

func runSQLiteMigrations(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}

	sourceDriver, err := iofs.New(migrations.SQLite, "sqlite")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return err
	}

	logger.Debug("applying store migrations", "backend", "sqlite", "path", path)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func runPostgresMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "trustbroker_schema_migrations"})
	if err != nil {
		return err
	}

	sourceDriver, err := iofs.New(migrations.Postgres, "postgres")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return err
	}

	logger.Debug("applying store migrations", "backend", "postgres")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Add inserts a new row for req. Requests are never mutated in place.
func (s *Store) Add(ctx context.Context, req request.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := fromRequest(req)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: %v", trusterr.ErrStoreOpen, err)
	}
	return nil
}

// Reset deletes all rows.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithContext(ctx).Exec("DELETE FROM requests").Error; err != nil {
		return fmt.Errorf("%w: %v", trusterr.ErrStoreReset, err)
	}
	return nil
}

// Query obtains a fresh Query in state "armed" with the default filter
// "all" (matches everything).
func (s *Store) Query() *Query {
	return &Query{store: s}
}
