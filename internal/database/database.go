package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/automail/automail/internal/config"
	"github.com/automail/automail/internal/database/migrations"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrStorageUnavailable is returned when the backing store cannot be opened,
// reached or brought up to date.
var ErrStorageUnavailable = errors.New("storage unavailable")

// DB wraps the SQL database connection together with its driver name
type DB struct {
	*sql.DB
	driver string
}

// Open connects to the configured backend and brings the schema up to date.
// Missing tables are created on first open.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m, err := db.Migrator()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w: %w", ErrStorageUnavailable, err)
	}

	return db, nil
}

// Connect opens and pings the database without touching the schema
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	var driverName string
	switch cfg.Driver {
	case DriverSQLite, "":
		driverName = DriverSQLite
	case DriverPostgres:
		driverName = DriverPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	sqlDB, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w: %w", ErrStorageUnavailable, err)
	}

	if driverName == DriverSQLite {
		// One writer at a time prevents SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConnections)
		sqlDB.SetMaxIdleConns(max(1, cfg.MaxConnections/4))
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w: %w", ErrStorageUnavailable, err)
	}

	return &DB{DB: sqlDB, driver: driverName}, nil
}

// Driver returns the driver name
func (d *DB) Driver() string {
	return d.driver
}

// Migrator returns a migrate instance over the embedded schema for this driver
func (d *DB) Migrator() (*migrate.Migrate, error) {
	var (
		files    fs.FS
		dir      string
		instance migratedb.Driver
		err      error
	)

	switch d.driver {
	case DriverPostgres:
		files, dir = migrations.PostgresFS, "postgres"
		instance, err = postgres.WithInstance(d.DB, &postgres.Config{})
	default:
		files, dir = migrations.SQLiteFS, "sqlite"
		instance, err = sqlite.WithInstance(d.DB, &sqlite.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w: %w", ErrStorageUnavailable, err)
	}

	source, err := iofs.New(files, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, d.driver, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// Rebind rewrites '?' placeholders into the driver's positional form
func (d *DB) Rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HealthCheck verifies the database connection is healthy
func (d *DB) HealthCheck(ctx context.Context) error {
	return d.PingContext(ctx)
}
