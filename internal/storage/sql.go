package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var queries = map[string]struct{ get, set string }{
	DialectSQLite: {
		get: `SELECT value FROM cart_storage WHERE cart_key = ?`,
		set: `INSERT INTO cart_storage (cart_key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		      ON CONFLICT (cart_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	},
	DialectPostgres: {
		get: `SELECT value FROM cart_storage WHERE cart_key = $1`,
		set: `INSERT INTO cart_storage (cart_key, value, updated_at) VALUES ($1, $2, NOW())
		      ON CONFLICT (cart_key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	},
}

// SQL stores carts in the cart_storage table of a sqlite or postgres database.
type SQL struct {
	db      *sql.DB
	dialect string
}

// NewSQL opens dsn with the driver for dialect. For sqlite dsn is a file path
// or ":memory:".
func NewSQL(dialect, dsn string) (*SQL, error) {
	if _, ok := queries[dialect]; !ok {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == DialectSQLite {
		// one connection keeps ":memory:" databases shared and writes serialized
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(10)
	}
	return &SQL{db: db, dialect: dialect}, nil
}

func (s *SQL) RunMigrations() error {
	var (
		driver database.Driver
		err    error
	)
	switch s.dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(s.db, &postgres.Config{
			MigrationsTable: "cart_schema_migrations",
		})
	default:
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, s.dialect, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, queries[s.dialect].get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query cart: %w", err)
	}
	return value, true, nil
}

func (s *SQL) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, queries[s.dialect].set, key, value); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}
