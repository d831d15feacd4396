package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/trustbrokerd/trustbroker/internal/trusterr"
)

// BackendType selects the store's SQL backend.
type BackendType string

const (
	// BackendSQLite uses an embedded, cgo-free SQLite database. This is
	// the default: one file per service name under the user's data
	// directory.
	BackendSQLite BackendType = "sqlite"

	// BackendPostgres uses PostgreSQL, for a broker that wants a
	// centrally administered cache. Still single-writer per service: the
	// broker process is the only writer.
	BackendPostgres BackendType = "postgres"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path. Empty uses the default location
	// under $XDG_DATA_HOME/trustbroker/<service>.db.
	Path string
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// Config describes how to open a persistent store for one service.
type Config struct {
	// ServiceName identifies the host service this store caches
	// decisions for (e.g. "camera", "location"). Used to derive the
	// default SQLite file name.
	ServiceName string
	Backend     BackendType
	SQLite      SQLiteConfig
	Postgres    PostgresConfig
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.Backend == BackendSQLite && c.SQLite.Path == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, _ := os.UserHomeDir()
			dataDir = filepath.Join(home, ".local", "share")
		}
		name := c.ServiceName
		if name == "" {
			name = "default"
		}
		c.SQLite.Path = filepath.Join(dataDir, "trustbroker", name+".db")
	}
	if c.Backend == BackendPostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 10
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 2
		}
	}
}

// Validate reports a configuration error if the config is unusable.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("%w: sqlite path is empty", trusterr.ErrConfiguration)
		}
	case BackendPostgres:
		if c.Postgres.Database == "" {
			return fmt.Errorf("%w: postgres database is empty", trusterr.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", trusterr.ErrConfiguration, c.Backend)
	}
	return nil
}
