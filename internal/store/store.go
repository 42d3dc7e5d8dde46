// Package store is the persistence boundary for the virtual filesystem:
// concrete sqlite and Postgres backends implementing vfs.DomainStore, plus
// the schema migrations that create their tables.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // registers the "sqlite" database/sql driver

	"github.com/chebykinn/browser-code/internal/config"
	"github.com/chebykinn/browser-code/internal/store/pg"
	"github.com/chebykinn/browser-code/internal/store/sqlite"
	"github.com/chebykinn/browser-code/internal/vfs"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Open opens the configured backend, applies any outstanding migrations,
// and returns the raw *sql.DB plus the resolved driver name ("sqlite" or
// "postgres") for the caller to pick the matching DomainStore constructor.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, string, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	switch driver {
	case "sqlite":
		path := cfg.SqlitePath
		if path == "" {
			path = "browsercode.db"
		}
		path = config.ExpandHome(path)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, "", fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite: %w", err)
		}
		// modernc.org/sqlite is a single-writer driver; the daemon is a
		// single process anyway, so one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		if err := applySQLiteMigrations(ctx, db); err != nil {
			db.Close()
			return nil, "", err
		}
		return db, "sqlite", nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, "", fmt.Errorf("database.driver is postgres but no DSN was provided (set BROWSERCODE_POSTGRES_DSN)")
		}
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres: %w", err)
		}
		if err := applyPostgresMigrations(db); err != nil {
			db.Close()
			return nil, "", err
		}
		return db, "postgres", nil

	default:
		return nil, "", fmt.Errorf("unknown database.driver %q", driver)
	}
}

// NewDomainStore picks the vfs.DomainStore implementation matching the
// driver name Open returned.
func NewDomainStore(db *sql.DB, driverName string) (vfs.DomainStore, error) {
	switch driverName {
	case "sqlite":
		return sqlite.New(db), nil
	case "postgres":
		return pg.New(db), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driverName)
	}
}

// NewPostgresMigrator builds a *migrate.Migrate against the embedded
// postgres migrations, for callers (the migrate CLI) that need Down/
// Version/Force rather than just Up.
func NewPostgresMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return nil, fmt.Errorf("load embedded postgres migrations: %w", err)
	}
	dbDriver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// applyPostgresMigrations uses golang-migrate proper (teacher go.mod and
// cmd/migrate.go both already wire the postgres driver this way).
func applyPostgresMigrations(db *sql.DB) error {
	m, err := NewPostgresMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply postgres migrations: %w", err)
	}
	return nil
}

// applySQLiteMigrations runs the embedded *.up.sql files in order, tracked
// in a schema_migrations table. golang-migrate's own sqlite3 driver assumes
// mattn/go-sqlite3 (cgo); this daemon uses the pure-Go modernc.org/sqlite
// instead (no cgo toolchain requirement for end users), so migrations for
// that backend are applied directly rather than through golang-migrate.
func applySQLiteMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TEXT NOT NULL DEFAULT (datetime('now')))`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(sqliteMigrations, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("read embedded sqlite migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && len(e.Name()) > 7 && e.Name()[len(e.Name())-7:] == ".up.sql" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, name).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}
		sqlBytes, err := fs.ReadFile(sqliteMigrations, "migrations/sqlite/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, name); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}
