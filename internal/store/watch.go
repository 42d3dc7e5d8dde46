package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/jackc/pgx/v5"

	"github.com/chebykinn/browser-code/internal/config"
)

// WatchChanges relays storage-level writes back to onChange so the
// gateway can broadcast VFS_STORAGE_CHANGED (spec's storage-change
// relay): the sqlite backend is watched at the filesystem level since
// every write lands in one file, while Postgres uses its own LISTEN/
// NOTIFY channel (see pg.DomainStore.notify) since there is no single
// file to watch. Returns once the watcher goroutine is running; the
// watcher stops when ctx is canceled.
func WatchChanges(ctx context.Context, cfg config.DatabaseConfig, driverName string, onChange func()) error {
	driver := driverName
	if driver == "" {
		driver = "sqlite"
	}

	switch driver {
	case "sqlite":
		path := cfg.SqlitePath
		if path == "" {
			path = "browsercode.db"
		}
		return watchSQLiteFile(ctx, config.ExpandHome(path), onChange)
	case "postgres":
		return watchPostgresNotify(ctx, cfg.PostgresDSN, onChange)
	default:
		return fmt.Errorf("unknown database.driver %q", driver)
	}
}

func watchSQLiteFile(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch sqlite file %s: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("store.watch.fsnotify_error", "error", err)
			}
		}
	}()
	return nil
}

func watchPostgresNotify(ctx context.Context, dsn string, onChange func()) error {
	if dsn == "" {
		return fmt.Errorf("database.postgres_dsn is required for the storage-change relay")
	}

	// A dedicated native pgx connection, separate from the database/sql
	// pool store.Open manages: LISTEN/NOTIFY needs a session-scoped
	// connection that lives for the relay's lifetime, not one borrowed
	// from a pool that might recycle it mid-listen.
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect for LISTEN: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN vfs_changed"); err != nil {
		conn.Close(ctx)
		return fmt.Errorf("listen vfs_changed: %w", err)
	}

	go func() {
		defer conn.Close(context.Background())
		for {
			if _, err := conn.WaitForNotification(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("store.watch.notify_error", "error", err)
				return
			}
			onChange()
		}
	}()
	return nil
}
